package domain

import (
	"context"

	"github.com/google/uuid"
)

// ServerRepository is the storage-agnostic contract the RCON service layer
// and the HTTP server CRUD handlers depend on. Concrete implementations
// (internal/storage) are never imported by the core packages directly.
type ServerRepository interface {
	GetByUID(ctx context.Context, uid uuid.UUID) (*Server, error)
	GetAll(ctx context.Context) ([]*Server, error)
	GetUserServers(ctx context.Context, userID uuid.UUID) ([]*Server, error)
	Create(ctx context.Context, server *Server) error
	Update(ctx context.Context, server *Server) error
	Delete(ctx context.Context, uid uuid.UUID) error
}

// UserRepository is the storage-agnostic contract for operator accounts,
// consumed by the auth package and the HTTP authorization gate.
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetWithPassword(ctx context.Context, username string) (*User, error)
	GetAll(ctx context.Context) ([]*User, error)
	CreateUser(ctx context.Context, user *User) error
	SetDisabled(ctx context.Context, username string, disabled bool) error
}

// ErrNotFound is returned by a repository when the requested record does
// not exist.
var ErrNotFound = notFoundError{}

type notFoundError struct{}

func (notFoundError) Error() string { return "domain: not found" }
