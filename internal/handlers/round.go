package handlers

import (
	"net/http"
)

// StartHandler deals a new round.
//
// Query parameters (or a JSON body on POST): round_id, name, bet. All optional;
// without round_id the default table is used.
//
// Response payload:
//
//	{
//	  "round_id": "00000000-0000-0000-0000-000000000000",
//	  "deal_id": "5f0c3b8e-2f1c-4d7a-9a43-0e8f8c1d2b6a",
//	  "player": ["A of HEART", "10 of SPADE"],
//	  "dealer": ["hidden", "7 of CLUB"]
//	}
func StartHandler(s *BlackjackServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethods(w, r, http.MethodGet, http.MethodPost) {
			return
		}
		req, err := parseRoundRequest(r)
		if err != nil {
			writeError(w, err)
			return
		}
		res, err := s.StartRound(r.Context(), req)
		if err != nil {
			s.logError("start", err)
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// HitHandler draws one card for the player. On bust the response carries
// "status": "Player busted!".
func HitHandler(s *BlackjackServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethods(w, r, http.MethodGet, http.MethodPost) {
			return
		}
		req, err := parseRoundRequest(r)
		if err != nil {
			writeError(w, err)
			return
		}
		res, err := s.Hit(r.Context(), req)
		if err != nil {
			s.logError("hit", err)
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// StandHandler plays out the dealer and returns the outcome with the dealer's full hand.
func StandHandler(s *BlackjackServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethods(w, r, http.MethodGet, http.MethodPost) {
			return
		}
		req, err := parseRoundRequest(r)
		if err != nil {
			writeError(w, err)
			return
		}
		res, err := s.Stand(r.Context(), req)
		if err != nil {
			s.logError("stand", err)
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// logError logs server-side failures; client errors are already logged by the middleware.
func (s *BlackjackServer) logError(op string, err error) {
	if statusForError(err) >= http.StatusInternalServerError {
		s.Logger.Errorf("%s failed: %v", op, err)
	}
}
