package api

import (
	"encoding/json"
	"net/http"

	"github.com/vinayprograms/reverie/errors"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError renders err as a structured error. Errors without a code are
// reported as INTERNAL; server-side failures are logged.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	se := errors.As(err)
	if se == nil {
		se = errors.Wrap(err, "internal error")
	}
	if status := errors.WriteJSON(w, se); status >= http.StatusInternalServerError {
		s.requestLogger(r).Error("request failed", map[string]interface{}{
			"code":  string(se.Code()),
			"error": se.Error(),
			"path":  r.URL.Path,
		})
	}
}

func (s *Server) rejectRateLimited(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, errors.RateLimited("too many writes, slow down"))
}
