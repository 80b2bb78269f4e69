// internal/handlers/admin.go
package handlers

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/jason-s-yu/nomic/internal/auth"
)

// AdminLoginRequest is the body for POST /admin/login.
type AdminLoginRequest struct {
	Password string `json:"password"`
}

// AdminLoginHandler exchanges the operator password for a signed admin
// token. The expected Argon2id hash comes from ADMIN_PASSWORD_HASH;
// when unset the control API's mutating endpoints are effectively
// locked out.
func AdminLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "POST required")
			return
		}
		encodedHash := os.Getenv("ADMIN_PASSWORD_HASH")
		if encodedHash == "" {
			writeError(w, http.StatusServiceUnavailable, "admin login not configured")
			return
		}

		var req AdminLoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		match, err := auth.ComparePasswordAndHash(req.Password, encodedHash)
		if err != nil || !match {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		token, err := auth.CreateJWT("admin")
		if err != nil {
			writeError(w, http.StatusInternalServerError, "token creation failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"token": token})
	}
}

// requireAdmin wraps a handler with bearer-token verification.
func requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if _, err := auth.AuthenticateJWT(token); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next(w, r)
	}
}
