package matching

import (
	"github.com/gorilla/mux"
	"github.com/wandermatch/wandermatch-backend/internal/auth"
)

func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware) {
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(authMiddleware.Authenticate)

	// Swipes
	api.HandleFunc("/swipe", handler.Swipe).Methods("POST")

	// Matches
	api.HandleFunc("/matching/{userId:[0-9]+}/matches", handler.GetMatches).Methods("GET")

	// Candidate feeds, one endpoint per heuristic
	api.HandleFunc("/matching/{userId:[0-9]+}", handler.Candidates("same-destination")).Methods("GET")
	api.HandleFunc("/nearby/{userId:[0-9]+}", handler.Candidates("nearby")).Methods("GET")
	api.HandleFunc("/waypoints/{userId:[0-9]+}", handler.Candidates("waypoints")).Methods("GET")
	api.HandleFunc("/same-dest-mode/{userId:[0-9]+}", handler.Candidates("same-dest-mode")).Methods("GET")
	api.HandleFunc("/travel-style/{userId:[0-9]+}", handler.Candidates("travel-style")).Methods("GET")
	api.HandleFunc("/exact-routes/{userId:[0-9]+}", handler.Candidates("exact-routes")).Methods("GET")
	api.HandleFunc("/travel-mode/{userId:[0-9]+}", handler.Candidates("travel-mode")).Methods("GET")
	api.HandleFunc("/language/{userId:[0-9]+}", handler.Candidates("language")).Methods("GET")
	api.HandleFunc("/culinary-contrast/{userId:[0-9]+}", handler.Candidates("culinary-contrast")).Methods("GET")
	api.HandleFunc("/culinary-niche/{userId:[0-9]+}", handler.Candidates("culinary-niche")).Methods("GET")
	api.HandleFunc("/complementary-interests/{userId:[0-9]+}", handler.Candidates("complementary-interests")).Methods("GET")
}
