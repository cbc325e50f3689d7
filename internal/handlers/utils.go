package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusForError(err), errorResponse{Error: err.Error()})
}

// parseRoundRequest reads an optional JSON body, then lets query parameters override it.
func parseRoundRequest(r *http.Request) (RoundRequest, error) {
	var req RoundRequest
	if r.Body != nil && r.Method == http.MethodPost {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			return req, fmt.Errorf("%w: invalid payload", errBadRequest)
		}
	}

	q := r.URL.Query()
	if v := q.Get("round_id"); v != "" {
		req.RoundID = v
	}
	if v := q.Get("name"); v != "" {
		req.Name = v
	}
	if v := q.Get("bet"); v != "" {
		bet, err := strconv.Atoi(v)
		if err != nil {
			return req, fmt.Errorf("%w: bet must be an integer", errBadRequest)
		}
		req.Bet = bet
	}
	return req, nil
}

// allowMethods rejects requests whose method is not listed.
func allowMethods(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", fmt.Sprint(methods))
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	return false
}
