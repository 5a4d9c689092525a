/*
Package auth resolves the current operator and enforces role checks.

PURPOSE:
  Every mutation in the bookkeeping core runs on behalf of an
  authenticated operator. Rekonsiliasi create/delete additionally
  requires the admin role, and the role is re-read from the store on
  every check (never cached) because an operator's role can change
  between page loads.

PASSWORDS:
  Stored as bcrypt hashes. Authentication failures are deliberately
  uniform ("invalid credentials") to avoid leaking which half failed.
*/
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// =============================================================================
// OPERATOR AND ROLES
// =============================================================================

type Role string

const (
	RoleAdmin   Role = "admin"
	RolePetugas Role = "petugas"
)

// Operator is a back-office user of the collection desk.
type Operator struct {
	ID             string
	Username       string
	NamaLengkap    string
	Role           Role
	HashedPassword []byte
	CreatedAt      time.Time
}

// Store persists operators.
type Store interface {
	GetOperator(ctx context.Context, id string) (*Operator, error)
	GetOperatorByUsername(ctx context.Context, username string) (*Operator, error)
	InsertOperator(ctx context.Context, op Operator) error
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotAuthenticated aborts an entire operation; nothing is written.
	ErrNotAuthenticated = errors.New("user tidak terautentikasi")

	// ErrInvalidCredentials is the uniform login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAdminRequired is returned when a petugas attempts an admin-only
	// mutation.
	ErrAdminRequired = errors.New("only admin can perform this operation")
)

// =============================================================================
// SERVICE
// =============================================================================

// Service authenticates operators and performs role checks.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Authenticate verifies a username/password pair.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*Operator, error) {
	username = strings.TrimSpace(username)
	op, err := s.store.GetOperatorByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if op == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(op.HashedPassword, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return op, nil
}

// CurrentOperator loads an operator by id, or ErrNotAuthenticated when
// the id is empty or unknown.
func (s *Service) CurrentOperator(ctx context.Context, operatorID string) (*Operator, error) {
	if operatorID == "" {
		return nil, ErrNotAuthenticated
	}
	op, err := s.store.GetOperator(ctx, operatorID)
	if err != nil {
		return nil, err
	}
	if op == nil {
		return nil, ErrNotAuthenticated
	}
	return op, nil
}

// RequireAdmin re-reads the operator's role and rejects non-admins.
// The fresh read is intentional: roles are not cached across calls.
func (s *Service) RequireAdmin(ctx context.Context, operatorID string) error {
	op, err := s.CurrentOperator(ctx, operatorID)
	if err != nil {
		return err
	}
	if op.Role != RoleAdmin {
		return ErrAdminRequired
	}
	return nil
}

// HashPassword produces the bcrypt hash stored on an operator row.
func HashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
}
