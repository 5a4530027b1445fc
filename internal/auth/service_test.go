package auth

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/deliciousroute/delicious-route/internal/constants"
	"github.com/deliciousroute/delicious-route/internal/database"
	"github.com/deliciousroute/delicious-route/internal/signals"
	"github.com/deliciousroute/delicious-route/internal/token"
)

const strongPassword = "Tacos4Ever!"

type fixture struct {
	svc       *Service
	db        *database.DB
	passwords *database.PasswordStore
}

func setupService(t *testing.T, baseURL string) *fixture {
	t.Helper()

	db, err := database.New(database.NewDefaultOptions(filepath.Join(t.TempDir(), "auth.db")))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.MigrateDatabase())

	now := time.Date(2025, time.February, 3, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	db.SetClock(clock)

	users, err := database.NewUserStore(db)
	require.NoError(t, err)
	passwords, err := database.NewPasswordStore(db)
	require.NoError(t, err)
	sessions, err := database.NewSessionStore(db)
	require.NoError(t, err)

	tokens := token.NewManager(sessions, passwords, time.Hour, 2*time.Hour, clock)
	svc := NewService(users, passwords, tokens, NewHasher(bcrypt.MinCost), 3, baseURL)
	return &fixture{svc: svc, db: db, passwords: passwords}
}

func signupCustomer(t *testing.T, f *fixture, email string) *Result {
	t.Helper()
	res, err := f.svc.Signup(context.Background(), SignupRequest{
		FirstName:   "Ana",
		LastName:    "Lopez",
		Email:       email,
		Password:    strongPassword,
		AccountType: AccountCustomer,
	})
	require.NoError(t, err)
	return res
}

func TestSignup(t *testing.T) {
	f := setupService(t, "")
	ctx := context.Background()

	var mu sync.Mutex
	var created []signals.AccountCreatedData
	signals.OnAccountCreated(func(_ context.Context, d signals.AccountCreatedData) {
		mu.Lock()
		defer mu.Unlock()
		created = append(created, d)
	}, "auth-test-signup")
	t.Cleanup(func() { signals.RemoveListeners("auth-test-signup") })

	t.Run("vendor account gets a vendor row", func(t *testing.T) {
		res, err := f.svc.Signup(ctx, SignupRequest{
			FirstName:   "Taco",
			LastName:    "Truck",
			Email:       "  Owner@Example.com ",
			Password:    strongPassword,
			AccountType: AccountVendor,
		})
		require.NoError(t, err)
		assert.Equal(t, "owner@example.com", res.User.Email)
		assert.True(t, res.User.HasRole(constants.RoleVendorAdmin))
		assert.NotEmpty(t, res.VendorID)
		require.NotNil(t, res.Session)
		assert.Equal(t, res.User.ID, res.Session.UserID)
	})

	t.Run("customer account", func(t *testing.T) {
		res := signupCustomer(t, f, "eater@example.com")
		assert.True(t, res.User.HasRole(constants.RoleConsumer))
		assert.Empty(t, res.VendorID)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := f.svc.Signup(ctx, SignupRequest{
			FirstName: "A", LastName: "B", Email: "EATER@example.com",
			Password: strongPassword, AccountType: AccountCustomer,
		})
		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("weak password", func(t *testing.T) {
		_, err := f.svc.Signup(ctx, SignupRequest{
			FirstName: "A", LastName: "B", Email: "weak@example.com",
			Password: "short", AccountType: AccountCustomer,
		})
		var policyErr *PolicyError
		require.ErrorAs(t, err, &policyErr)
		assert.Contains(t, policyErr.Codes, CodeTooShort)
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := f.svc.Signup(ctx, SignupRequest{Email: "nobody@example.com", Password: strongPassword, AccountType: "admin"})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.ElementsMatch(t, []string{"FirstName", "LastName", "AccountType"}, verr.Fields)
	})

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(created) == 2
	}, time.Second, 5*time.Millisecond)
}

func TestLoginLogout(t *testing.T) {
	f := setupService(t, "")
	ctx := context.Background()
	signupCustomer(t, f, "login@example.com")

	_, err := f.svc.Login(ctx, LoginRequest{Email: "login@example.com", Password: "Wrong123!"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, LoginRequest{Email: "unknown@example.com", Password: strongPassword})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	res, err := f.svc.Login(ctx, LoginRequest{Email: "LOGIN@example.com", Password: strongPassword})
	require.NoError(t, err)

	user, err := f.svc.Authenticate(ctx, res.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, user.ID)

	require.NoError(t, f.svc.Logout(ctx, res.Session.ID))
	_, err = f.svc.Authenticate(ctx, res.Session.ID)
	assert.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestResetURL(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		want    string
	}{
		{"no base url", "", "/reset-password/abc"},
		{"https base", "https://deliciousroute.com/", "https://deliciousroute.com/reset-password/abc"},
		{"http base", "http://localhost:8080", "http://localhost:8080/reset-password/abc"},
		{"bare host", "deliciousroute.com", "https://deliciousroute.com/reset-password/abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &Service{baseURL: strings.TrimRight(tt.baseURL, "/")}
			assert.Equal(t, tt.want, svc.ResetURL("abc"))
		})
	}
}

func TestPasswordResetFlow(t *testing.T) {
	f := setupService(t, "https://deliciousroute.com")
	ctx := context.Background()
	signupCustomer(t, f, "reset@example.com")

	links := make(chan signals.PasswordResetRequestedData, 1)
	signals.OnPasswordResetRequested(func(_ context.Context, d signals.PasswordResetRequestedData) {
		links <- d
	}, "auth-test-reset")
	t.Cleanup(func() { signals.RemoveListeners("auth-test-reset") })

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "nobody@example.com"), "unknown email succeeds silently")
	require.NoError(t, f.svc.RequestPasswordReset(ctx, "Reset@Example.com"))

	var link signals.PasswordResetRequestedData
	select {
	case link = <-links:
	case <-time.After(time.Second):
		t.Fatal("no reset link emitted")
	}
	assert.Equal(t, "reset@example.com", link.Email)
	require.True(t, strings.HasPrefix(link.ResetURL, "https://deliciousroute.com/reset-password/"))
	resetToken := strings.TrimPrefix(link.ResetURL, "https://deliciousroute.com/reset-password/")
	assert.Len(t, resetToken, 64)

	err := f.svc.ResetPassword(ctx, resetToken, strongPassword)
	assert.ErrorIs(t, err, ErrPasswordReused)

	var policyErr *PolicyError
	err = f.svc.ResetPassword(ctx, resetToken, "alllowercase")
	require.ErrorAs(t, err, &policyErr)

	err = f.svc.ResetPassword(ctx, "not-a-token", "Brand9New!")
	assert.ErrorIs(t, err, ErrInvalidResetToken)

	var verr *ValidationError
	err = f.svc.ResetPassword(ctx, "", "")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"Token", "Password"}, verr.Fields)

	require.NoError(t, f.svc.ResetPassword(ctx, resetToken, "Brand9New!"))
	err = f.svc.ResetPassword(ctx, resetToken, "Another9New!")
	assert.ErrorIs(t, err, ErrInvalidResetToken, "token is single use")

	_, err = f.svc.Login(ctx, LoginRequest{Email: "reset@example.com", Password: "Brand9New!"})
	assert.NoError(t, err)
}

func TestChangePassword(t *testing.T) {
	f := setupService(t, "")
	ctx := context.Background()
	res := signupCustomer(t, f, "change@example.com")
	userID := res.User.ID

	tests := []struct {
		name    string
		req     ChangePasswordRequest
		wantErr error
	}{
		{
			name:    "mismatched confirmation",
			req:     ChangePasswordRequest{CurrentPassword: strongPassword, NewPassword: "Fresh9Pass!", ConfirmPassword: "Fresh9Pass?"},
			wantErr: ErrPasswordMismatch,
		},
		{
			name:    "wrong current password",
			req:     ChangePasswordRequest{CurrentPassword: "Nope1234!", NewPassword: "Fresh9Pass!", ConfirmPassword: "Fresh9Pass!"},
			wantErr: ErrInvalidCurrentPassword,
		},
		{
			name:    "unchanged password",
			req:     ChangePasswordRequest{CurrentPassword: strongPassword, NewPassword: strongPassword, ConfirmPassword: strongPassword},
			wantErr: ErrPasswordUnchanged,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.svc.ChangePassword(ctx, userID, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("weak new password", func(t *testing.T) {
		err := f.svc.ChangePassword(ctx, userID, ChangePasswordRequest{
			CurrentPassword: strongPassword, NewPassword: "weak", ConfirmPassword: "weak",
		})
		var policyErr *PolicyError
		assert.ErrorAs(t, err, &policyErr)
	})

	t.Run("success then reuse is rejected", func(t *testing.T) {
		require.NoError(t, f.svc.ChangePassword(ctx, userID, ChangePasswordRequest{
			CurrentPassword: strongPassword, NewPassword: "Fresh9Pass!", ConfirmPassword: "Fresh9Pass!",
		}))
		err := f.svc.ChangePassword(ctx, userID, ChangePasswordRequest{
			CurrentPassword: "Fresh9Pass!", NewPassword: strongPassword, ConfirmPassword: strongPassword,
		})
		assert.ErrorIs(t, err, ErrPasswordReused)

		hashes, err := f.passwords.RecentHashes(ctx, userID, 10)
		require.NoError(t, err)
		assert.Len(t, hashes, 2)
	})
}
