package mail

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/deliciousroute/delicious-route/internal/constants"
	"github.com/deliciousroute/delicious-route/internal/logging"
	"github.com/deliciousroute/delicious-route/internal/metrics"
	"github.com/deliciousroute/delicious-route/internal/signals"
)

// ListenerKey identifies the mail handlers registered on the signals
const ListenerKey = "mail-notifier"

// Notifier turns domain signals into emails
type Notifier struct {
	mailer Mailer
	logger zerolog.Logger
}

// NewNotifier creates a notifier that delivers through mailer
func NewNotifier(mailer Mailer) *Notifier {
	return &Notifier{mailer: mailer, logger: logging.GetLogger("mail-notifier")}
}

// Register attaches the notifier to the account and vendor signals
func (n *Notifier) Register() {
	signals.OnAccountCreated(n.onAccountCreated, ListenerKey)
	signals.OnPasswordResetRequested(n.onPasswordResetRequested, ListenerKey)
	signals.OnPasswordChanged(n.onPasswordChanged, ListenerKey)
	signals.OnVendorProfileChanged(n.onVendorProfileChanged, ListenerKey)
}

// Unregister detaches every handler added by Register
func (n *Notifier) Unregister() {
	signals.RemoveListeners(ListenerKey)
}

func (n *Notifier) onAccountCreated(ctx context.Context, data signals.AccountCreatedData) {
	if data.Role == constants.RoleVendorAdmin {
		n.deliver(ctx, VendorWelcome(data.Email, data.DisplayName))
		return
	}
	n.deliver(ctx, CustomerWelcome(data.Email, data.DisplayName))
}

func (n *Notifier) onPasswordResetRequested(ctx context.Context, data signals.PasswordResetRequestedData) {
	n.deliver(ctx, PasswordReset(data.Email, data.ResetURL))
}

func (n *Notifier) onPasswordChanged(ctx context.Context, data signals.PasswordChangedData) {
	n.deliver(ctx, PasswordChanged(data.Email))
}

func (n *Notifier) onVendorProfileChanged(ctx context.Context, data signals.VendorProfileChangedData) {
	if data.Email == "" || len(data.Changes) == 0 {
		return
	}
	n.deliver(ctx, VendorProfileChanged(data.Email, data.VendorName, data.Changes))
}

// deliver sends msg and records the outcome. Failures are logged only.
func (n *Notifier) deliver(ctx context.Context, msg Message) {
	if msg.To == "" {
		return
	}
	err := n.mailer.Send(ctx, msg)
	switch {
	case err == nil:
		metrics.Emails.WithLabelValues(string(msg.Kind), metrics.EmailSent).Inc()
	case errors.Is(err, ErrNotConfigured):
		metrics.Emails.WithLabelValues(string(msg.Kind), metrics.EmailSkipped).Inc()
	default:
		metrics.Emails.WithLabelValues(string(msg.Kind), metrics.EmailFailed).Inc()
		n.logger.Error().Err(err).Str("kind", string(msg.Kind)).Msg("Failed to send email")
	}
}
