package matching

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/wandermatch/wandermatch-backend/internal/auth"
	"github.com/wandermatch/wandermatch-backend/internal/common/utils"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Swipe records a directional action from the authenticated user
func (h *Handler) Swipe(w http.ResponseWriter, r *http.Request) {
	actorID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var dto SwipeRequest
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := utils.ValidateStruct(dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	swipe, err := h.service.RecordSwipe(r.Context(), actorID, &dto)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAction),
			errors.Is(err, ErrSelfSwipe),
			errors.Is(err, ErrDuplicateSwipe):
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrUserNotFound):
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to record swipe")
		}
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, swipe)
}

// Candidates returns a handler serving one heuristic strategy's feed
func (h *Handler) Candidates(strategyName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := pathUserID(r)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid user ID")
			return
		}

		candidates, err := h.service.FindCandidates(r.Context(), userID, strategyName, pageParams(r))
		if err != nil {
			switch {
			case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrNoTrips):
				utils.RespondWithError(w, http.StatusNotFound, err.Error())
			default:
				utils.RespondWithError(w, http.StatusInternalServerError, "Failed to find candidates")
			}
			return
		}

		utils.RespondWithJSON(w, http.StatusOK, candidates)
	}
}

// GetMatches returns the user's match list
func (h *Handler) GetMatches(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUserID(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	matches, err := h.service.GetMatches(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get matches")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, matches)
}

func pathUserID(r *http.Request) (int64, error) {
	vars := mux.Vars(r)
	return strconv.ParseInt(vars["userId"], 10, 64)
}

func pageParams(r *http.Request) Page {
	var page Page
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			page.Page = n
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			page.Limit = n
		}
	}
	return page
}
