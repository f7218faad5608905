// Package domain holds the value types shared between storage,
// services, and the HTTP layer: the persisted shape of a server and a
// user, independent of any particular collaborator's representation of
// them.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/alexmorten/rconsole/internal/messages"
)

// Server is the persisted descriptor for one RCON-reachable game server.
// An RconService refetches this on every reconnect attempt (via
// ServerRepository.GetByUID) so operator edits take effect on the next
// retry cycle without requiring a process restart.
type Server struct {
	UID          uuid.UUID           `json:"uid" db:"uid"`
	Type         messages.ServerType `json:"type" db:"type"`
	Host         string              `json:"host" db:"host"`
	Port         int                 `json:"port" db:"port"`
	RconPort     int                 `json:"rcon_port" db:"rcon_port"`
	RconPassword string              `json:"-" db:"rcon_password"`
	Name         string              `json:"name" db:"name"`
	Description  string              `json:"description" db:"description"`
	CreatedAt    time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at" db:"updated_at"`
}

// User is an operator account. PasswordHash is never serialized to JSON;
// it only ever leaves storage through UserRepository.GetWithPassword,
// which internal/auth consumes directly.
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Disabled     bool      `json:"disabled" db:"disabled"`
	IsAdmin      bool      `json:"is_admin" db:"is_admin"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// ServerAccess records that a user is permitted to operate a server; the
// empty set for a user means "no servers" rather than "all servers" —
// UserRepository.GetUserServers returns exactly the granted set.
type ServerAccess struct {
	UserID    uuid.UUID `db:"user_id"`
	ServerUID uuid.UUID `db:"server_uid"`
}
