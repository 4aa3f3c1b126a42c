package matching

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wandermatch/wandermatch-backend/internal/auth"
)

func swipeRequest(t *testing.T, actorID int64, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/v1/swipe", strings.NewReader(body))
	ctx := context.WithValue(req.Context(), auth.ContextUserID, actorID)
	return req.WithContext(ctx)
}

func TestSwipeHandlerCreates(t *testing.T) {
	repo := newFakeRepository()
	repo.addUser(1, "ada")
	repo.addUser(2, "ben")
	handler := NewHandler(newTestService(repo, newFakeNotifier()))

	rec := httptest.NewRecorder()
	handler.Swipe(rec, swipeRequest(t, 1, `{"target_id": 2, "action": "like"}`))

	require.Equal(t, http.StatusCreated, rec.Code)

	var swipe Swipe
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &swipe))
	assert.Equal(t, int64(1), swipe.ActorID)
	assert.Equal(t, int64(2), swipe.TargetID)
	assert.Equal(t, ActionLike, swipe.Action)
}

func TestSwipeHandlerRequiresAuth(t *testing.T) {
	handler := NewHandler(newTestService(newFakeRepository(), newFakeNotifier()))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/swipe", strings.NewReader(`{"target_id": 2, "action": "like"}`))
	handler.Swipe(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSwipeHandlerStatusMapping(t *testing.T) {
	repo := newFakeRepository()
	repo.addUser(1, "ada")
	repo.addUser(2, "ben")
	handler := NewHandler(newTestService(repo, newFakeNotifier()))

	cases := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{`, http.StatusBadRequest},
		{"missing action", `{"target_id": 2}`, http.StatusBadRequest},
		{"unknown action", `{"target_id": 2, "action": "wink"}`, http.StatusBadRequest},
		{"self swipe", `{"target_id": 1, "action": "like"}`, http.StatusBadRequest},
		{"unknown target", `{"target_id": 99, "action": "like"}`, http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.Swipe(rec, swipeRequest(t, 1, tc.body))
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestSwipeHandlerDuplicateIsBadRequest(t *testing.T) {
	repo := newFakeRepository()
	repo.addUser(1, "ada")
	repo.addUser(2, "ben")
	handler := NewHandler(newTestService(repo, newFakeNotifier()))

	rec := httptest.NewRecorder()
	handler.Swipe(rec, swipeRequest(t, 1, `{"target_id": 2, "action": "like"}`))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	handler.Swipe(rec, swipeRequest(t, 1, `{"target_id": 2, "action": "like"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCandidatesHandler(t *testing.T) {
	repo := newFakeRepository()
	repo.addUser(1, "ada")
	repo.profiles[1].TravelMode = "backpacking"
	repo.candidates = []*Candidate{{ID: 2, Username: "ben", TravelMode: "backpacking"}}
	handler := NewHandler(newTestService(repo, newFakeNotifier()))

	req := httptest.NewRequest("GET", "/api/v1/travel-mode/1?page=2&limit=10", nil)
	req = mux.SetURLVars(req, map[string]string{"userId": "1"})

	rec := httptest.NewRecorder()
	handler.Candidates("travel-mode")(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var candidates []*Candidate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &candidates))
	require.Len(t, candidates, 1)
	assert.Equal(t, int64(2), candidates[0].ID)

	// Query parameters propagated to the repository
	assert.Equal(t, Page{Page: 2, Limit: 10}, repo.lastPage)
}

func TestCandidatesHandlerNotFound(t *testing.T) {
	repo := newFakeRepository()
	repo.addUser(1, "ada")
	handler := NewHandler(newTestService(repo, newFakeNotifier()))

	// Unknown user
	req := httptest.NewRequest("GET", "/api/v1/travel-mode/9", nil)
	req = mux.SetURLVars(req, map[string]string{"userId": "9"})
	rec := httptest.NewRecorder()
	handler.Candidates("travel-mode")(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Known user without trips on a trip-based strategy
	req = httptest.NewRequest("GET", "/api/v1/matching/1", nil)
	req = mux.SetURLVars(req, map[string]string{"userId": "1"})
	rec = httptest.NewRecorder()
	handler.Candidates("same-destination")(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetMatchesHandler(t *testing.T) {
	repo := newFakeRepository()
	repo.addUser(1, "ada")
	repo.addUser(2, "ben")
	svc := newTestService(repo, newFakeNotifier())
	handler := NewHandler(svc)

	_, err := svc.RecordSwipe(context.Background(), 1, &SwipeRequest{TargetID: 2, Action: "like"})
	require.NoError(t, err)
	_, err = svc.RecordSwipe(context.Background(), 2, &SwipeRequest{TargetID: 1, Action: "like"})
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/v1/matching/1/matches", nil)
	req = mux.SetURLVars(req, map[string]string{"userId": "1"})
	rec := httptest.NewRecorder()
	handler.GetMatches(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var matches []*Match
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &matches))
	require.Len(t, matches, 1)
	assert.Equal(t, int64(2), matches[0].OtherUser(1))
}
