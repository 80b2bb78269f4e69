package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// writeJSON serializes v to the response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError sends a JSON error body with the given status code.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// extractBearerToken pulls the token out of an "Authorization: Bearer"
// header, or returns empty if absent.
func extractBearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// gameIDFromPath parses the trailing game id out of paths shaped like
// /game/<verb>/{game_id}.
func gameIDFromPath(r *http.Request, prefix string) (uuid.UUID, bool) {
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	rest = strings.Trim(rest, "/")
	if rest == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(strings.Split(rest, "/")[0])
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
