package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/deliciousroute/delicious-route/internal/constants"
	"github.com/deliciousroute/delicious-route/internal/logging"
)

// NewUser is the input for creating an account
type NewUser struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         string
}

// DisplayName joins first and last name
func (n NewUser) DisplayName() string {
	return strings.TrimSpace(strings.TrimSpace(n.FirstName) + " " + strings.TrimSpace(n.LastName))
}

// CreatedAccount describes what CreateUser inserted
type CreatedAccount struct {
	User     *User
	VendorID string // set for vendor accounts
}

// UserStore handles accounts and roles
type UserStore struct {
	db     *sql.DB
	logger zerolog.Logger
	now    func() time.Time
}

// NewUserStore creates a new user store
func NewUserStore(db *DB) (*UserStore, error) {
	return &UserStore{db: db.Conn(), logger: logging.GetLogger("user-store"), now: db.now}, nil
}

// CreateUser inserts the user, assigns the role, records the first password
// history entry and creates the vendor row (vendor_admin) or customer profile
// (consumer), all in one transaction. A duplicate email yields ErrConflict.
func (s *UserStore) CreateUser(ctx context.Context, in NewUser) (*CreatedAccount, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	now := s.now()
	stamp := FormatTime(now)
	user := &User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: in.PasswordHash,
		DisplayName:  in.DisplayName(),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Roles:        []string{in.Role},
		CreatedAt:    now.UTC(),
		UpdatedAt:    now.UTC(),
	}
	account := &CreatedAccount{User: user}

	s.logger.Debug().Str("email", email).Str("role", in.Role).Msg("Creating user")

	err := withTransaction(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, email, password_hash, display_name, first_name, last_name, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, user.ID, user.Email, user.PasswordHash, user.DisplayName, user.FirstName, user.LastName, stamp, stamp); err != nil {
			return fmt.Errorf("failed to insert user: %w", classify(err))
		}

		roleID, err := ensureRole(ctx, tx, in.Role)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO user_roles (user_id, role_id) VALUES (?, ?)
		`, user.ID, roleID); err != nil {
			return fmt.Errorf("failed to assign role: %w", err)
		}

		if err := insertPasswordHistory(ctx, tx, user.ID, user.PasswordHash, now); err != nil {
			return err
		}

		switch in.Role {
		case constants.RoleVendorAdmin:
			vendor := &Vendor{
				OwnerUserID: user.ID,
				VendorType:  constants.VendorTypeFoodTruck,
				Name:        user.DisplayName,
			}
			if err := insertVendor(ctx, tx, vendor, now); err != nil {
				return err
			}
			account.VendorID = vendor.ID
		default:
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO customer_profiles (id, user_id, display_name, created_at)
				VALUES (?, ?, ?, ?)
			`, uuid.NewString(), user.ID, user.DisplayName, stamp); err != nil {
				return fmt.Errorf("failed to insert customer profile: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			s.logger.Debug().Str("email", email).Msg("Email already registered")
		} else {
			s.logger.Error().Err(err).Str("email", email).Msg("Failed to create user")
		}
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID).Str("role", in.Role).Msg("User created")
	return account, nil
}

// GetByEmail looks a user up by email, case-insensitively
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.getUser(ctx, `WHERE u.email = ?`, strings.ToLower(strings.TrimSpace(email)))
}

// GetByID looks a user up by id
func (s *UserStore) GetByID(ctx context.Context, id string) (*User, error) {
	return s.getUser(ctx, `WHERE u.id = ?`, id)
}

func (s *UserStore) getUser(ctx context.Context, where string, arg any) (*User, error) {
	var (
		u                    User
		hash                 sql.NullString
		createdAt, updatedAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.email, u.password_hash, u.display_name, u.first_name, u.last_name, u.created_at, u.updated_at
		FROM users u
		`+where, arg).Scan(&u.ID, &u.Email, &hash, &u.DisplayName, &u.FirstName, &u.LastName, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	u.PasswordHash = hash.String
	if u.CreatedAt, err = ParseTime(createdAt); err != nil {
		return nil, err
	}
	if u.UpdatedAt, err = ParseTime(updatedAt); err != nil {
		return nil, err
	}

	roles, err := s.Roles(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	u.Roles = roles
	return &u, nil
}

// Roles returns the lowercased role names of a user
func (s *UserStore) Roles(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.name
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = ?
		ORDER BY r.name
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query roles: %w", err)
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, strings.ToLower(name))
	}
	return roles, rows.Err()
}

// ensureRole returns the id of the named role, inserting it when missing
func ensureRole(ctx context.Context, q querier, name string) (int64, error) {
	if _, err := q.ExecContext(ctx, `INSERT OR IGNORE INTO roles (name) VALUES (?)`, name); err != nil {
		return 0, fmt.Errorf("failed to ensure role %s: %w", name, err)
	}
	var id int64
	if err := q.QueryRowContext(ctx, `SELECT id FROM roles WHERE name = ?`, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to load role %s: %w", name, err)
	}
	return id, nil
}
