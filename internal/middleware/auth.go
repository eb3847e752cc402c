package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dukerupert/flatmate/internal/auth"
	"github.com/dukerupert/flatmate/internal/model"
)

// UserLookup resolves the user named by a token.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// RequireAuth validates the bearer token, loads the user it names and
// populates AuthContext. Failures get a 401 JSON response.
func RequireAuth(tokens *auth.TokenIssuer, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				unauthorized(w, "Not authorized, no token")
				return
			}

			claims, err := tokens.Parse(raw)
			if err != nil {
				unauthorized(w, "Not authorized, token failed")
				return
			}

			user, err := users.GetByID(r.Context(), claims.Subject)
			if err != nil || user == nil {
				unauthorized(w, "Not authorized, token failed")
				return
			}

			ac := auth.AuthContext{
				UserID:        user.ID,
				Name:          user.Name,
				HouseholdCode: user.HouseholdCode,
			}

			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusUnauthorized, msg)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
