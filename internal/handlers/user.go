package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jason-s-yu/blackjack/internal/database"
	"github.com/sirupsen/logrus"
)

type joinRequest struct {
	Name string `json:"name"`
}

// JoinHandler loads the named user or creates a new one with the default stake.
//
// Request payload:
//
//	{
//	  "name": "alice"
//	}
//
// Response payload:
//
//	{
//	  "name": "alice",
//	  "chips": 1000,
//	  "highest_amount": 1000
//	}
func JoinHandler(s *BlackjackServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethods(w, r, http.MethodPost) {
			return
		}
		var req joinRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid payload"})
			return
		}
		name := strings.TrimSpace(req.Name)
		if name == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "name is required"})
			return
		}

		user, created, err := database.LoadOrCreateUser(r.Context(), s.Users, name, s.DefaultChips)
		if err != nil {
			s.Logger.Errorf("join %q: %v", name, err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load user"})
			return
		}
		if created {
			s.Logger.WithFields(logrus.Fields{"name": name, "chips": user.Chips}).Info("user created")
		}
		writeJSON(w, http.StatusOK, user)
	}
}
