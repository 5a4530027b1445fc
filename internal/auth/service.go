package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/deliciousroute/delicious-route/internal/constants"
	"github.com/deliciousroute/delicious-route/internal/database"
	"github.com/deliciousroute/delicious-route/internal/logging"
	"github.com/deliciousroute/delicious-route/internal/metrics"
	"github.com/deliciousroute/delicious-route/internal/signals"
	"github.com/deliciousroute/delicious-route/internal/token"
)

var (
	ErrEmailTaken             = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrInvalidResetToken      = errors.New("invalid or expired reset token")
	ErrPasswordReused         = errors.New("password was used recently")
	ErrPasswordTooLong        = errors.New("password exceeds 72 bytes")
	ErrInvalidCurrentPassword = errors.New("current password is incorrect")
	ErrPasswordMismatch       = errors.New("passwords do not match")
	ErrPasswordUnchanged      = errors.New("new password matches the current one")
	ErrNoPassword             = errors.New("account has no password set")
)

// ValidationError lists the request fields that failed validation
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid request fields: " + strings.Join(e.Fields, ", ")
}

// Account types accepted at signup
const (
	AccountVendor   = "vendor"
	AccountCustomer = "customer"
)

// SignupRequest represents signup request data
type SignupRequest struct {
	FirstName   string `json:"firstName" validate:"required,max=100"`
	LastName    string `json:"lastName" validate:"required,max=100"`
	Email       string `json:"email" validate:"required,email,max=254"`
	Password    string `json:"password" validate:"required"`
	AccountType string `json:"accountType" validate:"required,oneof=vendor customer"`
}

// LoginRequest represents login request data
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ChangePasswordRequest represents a signed-in password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

// Result is the outcome of a signup or login
type Result struct {
	User     *database.User
	Session  *database.Session
	VendorID string
}

// Service handles authentication logic
type Service struct {
	users        *database.UserStore
	passwords    *database.PasswordStore
	tokens       *token.Manager
	hasher       *Hasher
	validate     *validator.Validate
	historyLimit int
	baseURL      string
	logger       zerolog.Logger
}

// NewService creates a new auth service. baseURL prefixes reset links.
func NewService(users *database.UserStore, passwords *database.PasswordStore, tokens *token.Manager, hasher *Hasher, historyLimit int, baseURL string) *Service {
	return &Service{
		users:        users,
		passwords:    passwords,
		tokens:       tokens,
		hasher:       hasher,
		validate:     validator.New(),
		historyLimit: historyLimit,
		baseURL:      strings.TrimRight(baseURL, "/"),
		logger:       logging.GetLogger("auth-service"),
	}
}

// HistoryLimit returns how many previous passwords may not be reused
func (s *Service) HistoryLimit() int {
	return s.historyLimit
}

func (s *Service) validateStruct(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Field())
		}
		return &ValidationError{Fields: fields}
	}
	return fmt.Errorf("failed to validate request: %w", err)
}

// Signup creates an account and opens a session for it
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*Result, error) {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validateStruct(req); err != nil {
		return nil, err
	}
	if err := CheckComplexity(req.Password); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing account: %w", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	role := constants.RoleConsumer
	if req.AccountType == AccountVendor {
		role = constants.RoleVendorAdmin
	}
	account, err := s.users.CreateUser(ctx, database.NewUser{
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         role,
	})
	if errors.Is(err, database.ErrConflict) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	session, err := s.tokens.IssueSession(ctx, account.User.ID)
	if err != nil {
		return nil, err
	}

	metrics.AuthEvents.WithLabelValues(metrics.EventSignup).Inc()
	s.logger.Info().Str("user_id", account.User.ID).Str("role", role).Msg("Account created")
	signals.EmitAccountCreated(ctx, signals.AccountCreatedData{
		UserID:      account.User.ID,
		Email:       account.User.Email,
		DisplayName: account.User.DisplayName,
		Role:        role,
		VendorID:    account.VendorID,
	})

	return &Result{User: account.User, Session: session, VendorID: account.VendorID}, nil
}

// Login checks the credentials and opens a session. Unknown emails and wrong
// passwords both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*Result, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validateStruct(req); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, database.ErrNotFound) {
		metrics.AuthEvents.WithLabelValues(metrics.EventLoginFailed).Inc()
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		metrics.AuthEvents.WithLabelValues(metrics.EventLoginFailed).Inc()
		s.logger.Debug().Str("user_id", user.ID).Msg("Password mismatch on login")
		return nil, ErrInvalidCredentials
	}

	session, err := s.tokens.IssueSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	metrics.AuthEvents.WithLabelValues(metrics.EventLogin).Inc()
	return &Result{User: user, Session: session}, nil
}

// Logout revokes the session
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if err := s.tokens.RevokeSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to log out: %w", err)
	}
	metrics.AuthEvents.WithLabelValues(metrics.EventLogout).Inc()
	return nil
}

// Authenticate resolves a session id to its user
func (s *Service) Authenticate(ctx context.Context, sessionID string) (*database.User, error) {
	session, err := s.tokens.ValidateSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, session.UserID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, token.ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session user: %w", err)
	}
	return user, nil
}

// RequestPasswordReset issues a reset token for the account. Unknown emails
// succeed silently so the response does not reveal which emails exist.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return &ValidationError{Fields: []string{"Email"}}
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, database.ErrNotFound) {
		s.logger.Debug().Msg("Password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}

	t, err := s.tokens.IssueResetToken(ctx, user.ID)
	if err != nil {
		return err
	}

	metrics.AuthEvents.WithLabelValues(metrics.EventResetRequested).Inc()
	signals.EmitPasswordResetRequested(ctx, signals.PasswordResetRequestedData{
		UserID:    user.ID,
		Email:     user.Email,
		ResetURL:  s.ResetURL(t.Token),
		ExpiresAt: t.ExpiresAt,
	})
	return nil
}

// ResetURL builds the link mailed for a reset token. A base URL without a
// scheme is treated as https; an empty base URL yields a relative link.
func (s *Service) ResetURL(resetToken string) string {
	path := "/reset-password/" + url.PathEscape(resetToken)
	if s.baseURL == "" {
		return path
	}
	origin := s.baseURL
	if !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
		origin = "https://" + origin
	}
	return origin + path
}

// ResetPassword sets a new password using a reset token
func (s *Service) ResetPassword(ctx context.Context, resetToken, password string) error {
	resetToken = strings.TrimSpace(resetToken)
	var missing []string
	if resetToken == "" {
		missing = append(missing, "Token")
	}
	if password == "" {
		missing = append(missing, "Password")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	if err := CheckComplexity(password); err != nil {
		return err
	}

	t, err := s.tokens.LookupResetToken(ctx, resetToken)
	if errors.Is(err, token.ErrInvalidToken) {
		metrics.AuthEvents.WithLabelValues(metrics.EventPasswordResetInvalid).Inc()
		return ErrInvalidResetToken
	}
	if err != nil {
		return err
	}

	if err := s.checkReuse(ctx, t.UserID, password); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}

	if _, err := s.tokens.ConsumeResetToken(ctx, resetToken, hash); err != nil {
		if errors.Is(err, token.ErrInvalidToken) {
			return ErrInvalidResetToken
		}
		return err
	}

	metrics.AuthEvents.WithLabelValues(metrics.EventPasswordReset).Inc()
	s.emitPasswordChanged(ctx, t.UserID)
	return nil
}

// ChangePassword replaces the signed-in user's password
func (s *Service) ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest) error {
	if err := s.validateStruct(req); err != nil {
		return err
	}
	if err := CheckComplexity(req.NewPassword); err != nil {
		return err
	}
	if req.NewPassword != req.ConfirmPassword {
		return ErrPasswordMismatch
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}
	if user.PasswordHash == "" {
		return ErrNoPassword
	}
	if !s.hasher.Verify(req.CurrentPassword, user.PasswordHash) {
		return ErrInvalidCurrentPassword
	}
	if req.CurrentPassword == req.NewPassword {
		return ErrPasswordUnchanged
	}
	if err := s.checkReuse(ctx, userID, req.NewPassword); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.passwords.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	metrics.AuthEvents.WithLabelValues(metrics.EventPasswordChanged).Inc()
	s.emitPasswordChanged(ctx, userID)
	return nil
}

func (s *Service) checkReuse(ctx context.Context, userID, password string) error {
	hashes, err := s.passwords.RecentHashes(ctx, userID, s.historyLimit)
	if err != nil {
		return err
	}
	if s.hasher.MatchesAny(password, hashes) {
		return ErrPasswordReused
	}
	return nil
}

func (s *Service) emitPasswordChanged(ctx context.Context, userID string) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Password changed but user could not be reloaded")
		return
	}
	role := constants.RoleConsumer
	if user.HasRole(constants.RoleVendorAdmin) {
		role = constants.RoleVendorAdmin
	}
	signals.EmitPasswordChanged(ctx, signals.PasswordChangedData{UserID: user.ID, Email: user.Email, Role: role})
}
