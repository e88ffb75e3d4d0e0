// Package store is the durable ticket store (C5): every public mutator
// is a single atomic transaction, and read operations see consistent
// snapshots without taking locks.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/5knew/deskcore/pkg/errs"
	"github.com/5knew/deskcore/pkg/models"
)

// Store wraps the shared connection pool. All mutators open their own
// transaction; callers never see a partially applied write.
type Store struct {
	db       *sql.DB
	onNotify func(ctx context.Context, tx *sql.Tx, n *models.Notification) error
}

// Option configures optional Store behavior.
type Option func(*Store)

// WithNotifier registers a hook invoked inside the same transaction as
// every Notification row insert, so a live-push layer (pkg/notify) can
// pg_notify the recipient without ever firing for a write that rolls
// back. Left nil, Store only writes the durable row.
func WithNotifier(fn func(ctx context.Context, tx *sql.Tx, n *models.Notification) error) Option {
	return func(s *Store) { s.onNotify = fn }
}

// New builds a Store over an already-migrated database connection.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewID generates an opaque 128-bit identifier in canonical UUID form.
func NewID() string {
	return uuid.NewString()
}

// HashPassword hashes a plaintext password for the User.password-hash
// field. Unauthenticated ingestion paths synthesize a random password
// for placeholder users, which is never presented back to a caller.
func HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("store: hash password: %w", err)
	}
	return string(hash), nil
}

// UpsertAuthorByID fetches an existing user by id, or creates a
// placeholder Client user under that id when the caller is
// unauthenticated and no such user exists yet.
func (s *Store) UpsertAuthorByID(ctx context.Context, id, email, name string) (*models.User, error) {
	if u, err := s.GetUser(ctx, id); err == nil {
		return u, nil
	} else if !errs.Is(err, errs.NotFound) {
		return nil, err
	}

	if email == "" {
		email = id + "@placeholder.local"
	}
	if name == "" {
		name = "Guest"
	}
	hash, err := HashPassword(uuid.NewString())
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, role, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 ON CONFLICT (id) DO NOTHING`,
		id, email, name, models.RoleClient, hash)
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "create placeholder user", err)
	}
	return s.GetUser(ctx, id)
}

// GetUser fetches a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, role, password_hash, coalesce(phone, ''), created_at FROM users WHERE id = $1`, id)
	var u models.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.PasswordHash, &u.Phone, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.New(errs.NotFound, "user not found")
		}
		return nil, errs.Wrap(errs.Unavailable, "get user", err)
	}
	return &u, nil
}

// ListAdmins returns every Admin user except excludeID, the notification
// recipient set for ticket-created and non-admin-comment events.
func (s *Store) ListAdmins(ctx context.Context, excludeID string) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, email, name, role, password_hash, coalesce(phone, ''), created_at
		 FROM users WHERE role = $1 AND id <> $2`, models.RoleAdmin, excludeID)
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "list admins", err)
	}
	defer rows.Close()

	var out []*models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.PasswordHash, &u.Phone, &u.CreatedAt); err != nil {
			return nil, errs.Wrap(errs.Internal, "scan admin", err)
		}
		out = append(out, &u)
	}
	return out, nil
}

// ListCategories returns every category, ordered by name.
func (s *Store) ListCategories(ctx context.Context) ([]*models.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, coalesce(description, ''), sla_minutes FROM categories ORDER BY name`)
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "list categories", err)
	}
	defer rows.Close()
	var out []*models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.SLAMinutes); err != nil {
			return nil, errs.Wrap(errs.Internal, "scan category", err)
		}
		out = append(out, &c)
	}
	return out, nil
}

// ListDepartments returns every department, ordered by name.
func (s *Store) ListDepartments(ctx context.Context) ([]*models.Department, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM departments ORDER BY name`)
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "list departments", err)
	}
	defer rows.Close()
	var out []*models.Department
	for rows.Next() {
		var d models.Department
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, errs.Wrap(errs.Internal, "scan department", err)
		}
		out = append(out, &d)
	}
	return out, nil
}

// FindCategoryByName looks up a category case-insensitively, used by the
// orchestrator to set a new ticket's category id.
func (s *Store) FindCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, coalesce(description, ''), sla_minutes FROM categories WHERE lower(name) = lower($1)`,
		strings.TrimSpace(name))
	var c models.Category
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.SLAMinutes); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.New(errs.NotFound, "category not found")
		}
		return nil, errs.Wrap(errs.Unavailable, "find category", err)
	}
	return &c, nil
}

func now() time.Time { return time.Now().UTC() }
