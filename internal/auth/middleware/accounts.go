package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-practice/internal/exam"
)

// Accounts is the slice of exam.Store that registration and login use.
type Accounts interface {
	CreateUser(ctx context.Context, u exam.User) (exam.User, error)
	GetUserByEmail(ctx context.Context, email string) (exam.User, error)
}

type registerRequest struct {
	Email    string    `json:"email"`
	Password string    `json:"password"`
	FullName string    `json:"fullName"`
	Role     exam.Role `json:"role"`
}

func (r registerRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 128)),
		validation.Field(&r.FullName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Role, validation.In(exam.RoleStudent, exam.RoleAdmin)),
	)
}

type sessionResponse struct {
	User  exam.User `json:"user"`
	Token string    `json:"token"`
}

// POST /api/auth/register  { "email", "password", "fullName", "role"? }
// Self-registration only creates STUDENT accounts; admins are provisioned.
func RegisterHandler(a *AuthService, users Accounts, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.Role == "" {
			req.Role = exam.RoleStudent
		}
		if err := req.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Role != exam.RoleStudent {
			http.Error(w, "admin accounts cannot self-register", http.StatusForbidden)
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			http.Error(w, "hash password", http.StatusInternalServerError)
			return
		}
		u, err := users.CreateUser(r.Context(), exam.User{
			Email:        req.Email,
			PasswordHash: string(hash),
			FullName:     strings.TrimSpace(req.FullName),
			Role:         req.Role,
		})
		if errors.Is(err, exam.ErrConflict) {
			http.Error(w, "User already exists", http.StatusBadRequest)
			return
		}
		if err != nil {
			log.ErrorContext(r.Context(), "create user", slog.Any("err", err))
			http.Error(w, "registration failed", http.StatusInternalServerError)
			return
		}
		tok, err := a.IssueJWT(u.ID, string(u.Role))
		if err != nil {
			http.Error(w, "issue token", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(sessionResponse{User: u, Token: tok})
	}
}

// POST /api/auth/login  { "email", "password", "role"? }
// A supplied role must match the account's role.
func LoginHandler(a *AuthService, users Accounts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string    `json:"email"`
			Password string    `json:"password"`
			Role     exam.Role `json:"role"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		u, err := users.GetUserByEmail(r.Context(), req.Email)
		if err != nil && !errors.Is(err, exam.ErrNotFound) {
			http.Error(w, "login failed", http.StatusInternalServerError)
			return
		}
		if err != nil || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		if req.Role != "" && req.Role != u.Role {
			http.Error(w, "invalid role for this user", http.StatusForbidden)
			return
		}
		tok, err := a.IssueJWT(u.ID, string(u.Role))
		if err != nil {
			http.Error(w, "issue token", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(sessionResponse{User: u, Token: tok})
	}
}

// EnsureAdmin creates the bootstrap admin account unless the email is taken.
func EnsureAdmin(ctx context.Context, users Accounts, email, passHash string) (exam.User, error) {
	if email == "" || passHash == "" {
		return exam.User{}, errors.New("admin email and password hash are required")
	}
	u, err := users.GetUserByEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, exam.ErrNotFound) {
		return exam.User{}, err
	}
	u, err = users.CreateUser(ctx, exam.User{
		Email:        email,
		PasswordHash: passHash,
		FullName:     "Administrator",
		Role:         exam.RoleAdmin,
	})
	if err != nil {
		return exam.User{}, fmt.Errorf("create admin: %w", err)
	}
	return u, nil
}
