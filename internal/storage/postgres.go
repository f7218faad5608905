package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alexmorten/rconsole/internal/domain"
)

// IsNotFound returns true if the error indicates a record was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}

// PostgresClient wraps a pgx connection pool. ServerRepository and
// UserRepository are layered on top of the same pool rather than opening
// their own, matching the teacher's one-client-many-repositories shape.
type PostgresClient struct {
	pool *pgxpool.Pool
}

// NewPostgresClient creates a new PostgreSQL client from the given DSN.
func NewPostgresClient(ctx context.Context, dsn string) (*PostgresClient, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	return &PostgresClient{pool: pool}, nil
}

// Close releases all connections in the pool.
func (p *PostgresClient) Close() {
	p.pool.Close()
}

// Ping verifies connectivity to PostgreSQL.
func (p *PostgresClient) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// --------------------------------------------------------------------------
// Servers
// --------------------------------------------------------------------------

// ServerRepository implements domain.ServerRepository against the servers
// and server_access tables.
type ServerRepository struct {
	pool *pgxpool.Pool
}

// NewServerRepository returns a ServerRepository backed by client's pool.
func NewServerRepository(client *PostgresClient) *ServerRepository {
	return &ServerRepository{pool: client.pool}
}

const serverColumns = `uid, type, host, port, rcon_port, rcon_password, name, description, created_at, updated_at`

// GetByUID fetches a server by its primary key.
func (r *ServerRepository) GetByUID(ctx context.Context, uid uuid.UUID) (*domain.Server, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+serverColumns+` FROM servers WHERE uid = $1`, uid)
	var s domain.Server
	err := row.Scan(
		&s.UID, &s.Type, &s.Host, &s.Port, &s.RconPort, &s.RconPassword,
		&s.Name, &s.Description, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get server: %w", err)
	}
	return &s, nil
}

// GetAll returns every registered server, ordered by name.
func (r *ServerRepository) GetAll(ctx context.Context) ([]*domain.Server, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+serverColumns+` FROM servers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list servers: %w", err)
	}
	defer rows.Close()
	return collectServers(rows)
}

// GetUserServers returns the servers a user has been granted access to.
func (r *ServerRepository) GetUserServers(ctx context.Context, userID uuid.UUID) ([]*domain.Server, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.uid, s.type, s.host, s.port, s.rcon_port, s.rcon_password,
		       s.name, s.description, s.created_at, s.updated_at
		FROM servers s
		JOIN server_access a ON a.server_uid = s.uid
		WHERE a.user_id = $1
		ORDER BY s.name
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list user servers: %w", err)
	}
	defer rows.Close()
	return collectServers(rows)
}

func collectServers(rows pgx.Rows) ([]*domain.Server, error) {
	var servers []*domain.Server
	for rows.Next() {
		var s domain.Server
		if err := rows.Scan(
			&s.UID, &s.Type, &s.Host, &s.Port, &s.RconPort, &s.RconPassword,
			&s.Name, &s.Description, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan server: %w", err)
		}
		servers = append(servers, &s)
	}
	return servers, rows.Err()
}

// Create inserts a new server, assigning a UID and timestamps if unset.
func (r *ServerRepository) Create(ctx context.Context, s *domain.Server) error {
	if s.UID == uuid.Nil {
		s.UID = uuid.New()
	}
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now

	_, err := r.pool.Exec(ctx, `
		INSERT INTO servers (uid, type, host, port, rcon_port, rcon_password, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, s.UID, s.Type, s.Host, s.Port, s.RconPort, s.RconPassword, s.Name, s.Description, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: create server: %w", err)
	}
	return nil
}

// Update overwrites the mutable fields of a server row.
func (r *ServerRepository) Update(ctx context.Context, s *domain.Server) error {
	s.UpdatedAt = time.Now().UTC()
	tag, err := r.pool.Exec(ctx, `
		UPDATE servers
		SET type = $1, host = $2, port = $3, rcon_port = $4, rcon_password = $5,
		    name = $6, description = $7, updated_at = $8
		WHERE uid = $9
	`, s.Type, s.Host, s.Port, s.RconPort, s.RconPassword, s.Name, s.Description, s.UpdatedAt, s.UID)
	if err != nil {
		return fmt.Errorf("postgres: update server: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a server and cascades to its access grants.
func (r *ServerRepository) Delete(ctx context.Context, uid uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM servers WHERE uid = $1`, uid)
	if err != nil {
		return fmt.Errorf("postgres: delete server: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// --------------------------------------------------------------------------
// Users
// --------------------------------------------------------------------------

// UserRepository implements domain.UserRepository against the users table.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository backed by client's pool.
func NewUserRepository(client *PostgresClient) *UserRepository {
	return &UserRepository{pool: client.pool}
}

// GetByUsername fetches a user without its password hash.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var u domain.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, username, disabled, is_admin, created_at FROM users WHERE username = $1
	`, username).Scan(&u.ID, &u.Username, &u.Disabled, &u.IsAdmin, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get user: %w", err)
	}
	return &u, nil
}

// GetAll returns every operator account, ordered by username.
func (r *UserRepository) GetAll(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, username, disabled, is_admin, created_at FROM users ORDER BY username
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Disabled, &u.IsAdmin, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan user: %w", err)
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

// GetWithPassword fetches a user including its password hash, for use by
// internal/auth only.
func (r *UserRepository) GetWithPassword(ctx context.Context, username string) (*domain.User, error) {
	var u domain.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, disabled, is_admin, created_at FROM users WHERE username = $1
	`, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Disabled, &u.IsAdmin, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get user with password: %w", err)
	}
	return &u, nil
}

// CreateUser inserts a new operator account.
func (r *UserRepository) CreateUser(ctx context.Context, u *domain.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = time.Now().UTC()

	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, username, password_hash, disabled, is_admin, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, u.ID, u.Username, u.PasswordHash, u.Disabled, u.IsAdmin, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: create user: %w", err)
	}
	return nil
}

// SetDisabled flips an account's disabled flag.
func (r *UserRepository) SetDisabled(ctx context.Context, username string, disabled bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET disabled = $1 WHERE username = $2`, disabled, username)
	if err != nil {
		return fmt.Errorf("postgres: set disabled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
