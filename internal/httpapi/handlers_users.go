package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/alexmorten/rconsole/internal/auth"
	"github.com/alexmorten/rconsole/internal/domain"
	"github.com/alexmorten/rconsole/internal/httpapi/middleware"
)

// errNotAdmin is returned by requireAdmin when the authenticated caller's
// account exists but is not flagged IsAdmin.
var errNotAdmin = errors.New("httpapi: caller is not an admin")

// requireAdmin resolves the authenticated username (set by AuthMiddleware)
// against UserRepository and reports whether that account is an admin.
func requireAdmin(r *http.Request, users domain.UserRepository) error {
	username := middleware.GetUserID(r.Context())
	user, err := users.GetByUsername(r.Context(), username)
	if err != nil {
		return err
	}
	if !user.IsAdmin {
		return errNotAdmin
	}
	return nil
}

func writeAdminCheckError(w http.ResponseWriter, err error) {
	if errors.Is(err, errNotAdmin) {
		Error(w, http.StatusForbidden, ErrCodeForbidden, "admin privileges required")
		return
	}
	if errors.Is(err, domain.ErrNotFound) {
		Error(w, http.StatusUnauthorized, ErrCodeUnauthorized, "authenticated account no longer exists")
		return
	}
	Error(w, http.StatusInternalServerError, ErrCodeInternalError, "failed to verify admin privileges")
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	IsAdmin  bool   `json:"is_admin"`
}

type setDisabledRequest struct {
	Disabled bool `json:"disabled"`
}

// NewListUsersHandler returns every operator account. Admin-only.
func NewListUsersHandler(users domain.UserRepository) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := requireAdmin(r, users); err != nil {
			writeAdminCheckError(w, err)
			return
		}

		all, err := users.GetAll(r.Context())
		if err != nil {
			Error(w, http.StatusInternalServerError, ErrCodeInternalError, "failed to list users")
			return
		}
		JSON(w, http.StatusOK, all)
	})
}

// NewCreateUserHandler creates a new operator account. Admin-only.
func NewCreateUserHandler(users domain.UserRepository) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := requireAdmin(r, users); err != nil {
			writeAdminCheckError(w, err)
			return
		}

		var req createUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			Error(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")
			return
		}
		if req.Username == "" || req.Password == "" {
			Error(w, http.StatusBadRequest, ErrCodeInvalidRequest, "username and password are required")
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			Error(w, http.StatusInternalServerError, ErrCodeInternalError, "failed to hash password")
			return
		}

		newUser := &domain.User{
			Username:     req.Username,
			PasswordHash: hash,
			IsAdmin:      req.IsAdmin,
		}
		if err := users.CreateUser(r.Context(), newUser); err != nil {
			Error(w, http.StatusInternalServerError, ErrCodeInternalError, "failed to create user")
			return
		}

		JSON(w, http.StatusCreated, newUser)
	})
}

// NewSetUserDisabledHandler flips an account's disabled flag. Admin-only.
func NewSetUserDisabledHandler(users domain.UserRepository) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := requireAdmin(r, users); err != nil {
			writeAdminCheckError(w, err)
			return
		}

		username := mux.Vars(r)["username"]

		var req setDisabledRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			Error(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")
			return
		}

		if err := users.SetDisabled(r.Context(), username, req.Disabled); err != nil {
			writeRepositoryError(w, err, "user")
			return
		}
		JSON(w, http.StatusOK, nil)
	})
}
