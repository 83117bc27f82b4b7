package http

import (
	"context"
	"net/http"
	"strings"

	"monthly-quiz-service/internal/domain"
)

type contextKey string

const adminKey contextKey = "admin"

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return after
	}
	// Websocket clients cannot set headers from the browser.
	return r.URL.Query().Get("token")
}

// requireAdmin guards admin routes. Any failure to positively verify the
// caller, including transient store errors, is a 401; nothing falls open.
func (h *Handler) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, domain.ErrUnauthenticated)
			return
		}
		admin, err := h.auth.Authorize(r.Context(), token)
		if err != nil {
			writeError(w, err)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), adminKey, admin)))
	}
}

func adminFrom(ctx context.Context) domain.Admin {
	admin, _ := ctx.Value(adminKey).(domain.Admin)
	return admin
}
