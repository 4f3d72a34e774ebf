package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/tableload/internal/config"
	"github.com/JonMunkholm/tableload/internal/core"
)

// APIKeyHeader carries the API key.
const APIKeyHeader = "X-API-Key"

// authError mirrors the JSON error shape of the API handlers.
type authError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

var (
	errMissingKey = authError{
		Error:   "missing API key",
		Message: "This endpoint requires an API key.",
		Action:  "Send a configured key in the " + APIKeyHeader + " header.",
		Code:    "AUTH001",
	}
	errInvalidKey = authError{
		Error:   "invalid API key",
		Message: "The API key was not accepted.",
		Action:  "Check the key against the server's API_KEYS setting.",
		Code:    "AUTH002",
	}
)

// APIKeyAuth rejects requests without a configured X-API-Key when
// security.RequireAPIKey is set; with no keys configured every request is
// rejected. The fingerprint of the accepted key is recorded in the request
// context so loads are attributed to it.
func APIKeyAuth(security config.SecurityConfig) func(http.Handler) http.Handler {
	keys := newKeyring(security.APIKeys)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !security.RequireAPIKey {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get(APIKeyHeader)
			switch {
			case key == "":
				reject(w, r, http.StatusUnauthorized, errMissingKey)
				return
			case !keys.match(key):
				reject(w, r, http.StatusForbidden, errInvalidKey)
				return
			}

			ctx := core.ContextWithAPIKey(r.Context(), Fingerprint(key))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Fingerprint identifies a key in logs and history without revealing it.
func Fingerprint(key string) string {
	sum := sha256.Sum256([]byte(key))
	return "key:" + hex.EncodeToString(sum[:4])
}

type keyring [][]byte

func newKeyring(keys []string) keyring {
	var k keyring
	for _, key := range keys {
		if key = strings.TrimSpace(key); key != "" {
			k = append(k, []byte(key))
		}
	}
	return k
}

// match compares against every key in constant time per key, so the
// duration does not reveal which key matched.
func (k keyring) match(key string) bool {
	valid := 0
	for _, candidate := range k {
		valid |= subtle.ConstantTimeCompare([]byte(key), candidate)
	}
	return valid == 1
}

func reject(w http.ResponseWriter, r *http.Request, status int, body authError) {
	slog.Warn("auth: request rejected",
		"code", body.Code,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", ClientIP(r),
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
