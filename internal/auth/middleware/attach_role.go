package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mind-engage/mindengage-practice/internal/exam"
	"github.com/mind-engage/mindengage-practice/internal/rbac"
)

// UserGetter is the slice of exam.Store the role lookup needs.
type UserGetter interface {
	GetUser(ctx context.Context, id string) (exam.User, error)
}

// AttachRoleFromStore replaces the token's role claim with the role stored
// for the subject, so role changes and deleted accounts take effect before
// the token expires. Runs after JWTMiddleware.
func AttachRoleFromStore(users UserGetter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			u, err := users.GetUser(ctx, rbac.SubjectFromContext(ctx))
			switch {
			case err == nil:
				next.ServeHTTP(w, r.WithContext(rbac.WithRole(ctx, string(u.Role))))
			case errors.Is(err, exam.ErrNotFound):
				http.Error(w, "unknown user", http.StatusUnauthorized)
			default:
				log.ErrorContext(ctx, "role lookup", slog.Any("err", err))
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
		})
	}
}
