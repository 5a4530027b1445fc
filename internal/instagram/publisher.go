// Package instagram republishes vendor reels to an Instagram business account.
package instagram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/deliciousroute/delicious-route/internal/config"
	"github.com/deliciousroute/delicious-route/internal/logging"
	"github.com/deliciousroute/delicious-route/internal/signals"
)

// ListenerKey identifies the publisher's handler on the ReelPublished signal
const ListenerKey = "instagram-publisher"

// ErrNotConfigured is returned when the user id or access token is missing
var ErrNotConfigured = errors.New("instagram credentials missing")

// Publisher posts reels through the Graph API in two steps: create a REELS
// media container, then publish it.
type Publisher struct {
	baseURL     string
	userID      string
	accessToken string
	client      *http.Client
	logger      zerolog.Logger
}

// NewPublisher creates a publisher from the instagram config
func NewPublisher(cfg config.InstagramConfig) *Publisher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Publisher{
		baseURL:     strings.TrimRight(cfg.GraphBaseURL, "/"),
		userID:      cfg.UserID,
		accessToken: cfg.AccessToken,
		client:      &http.Client{Timeout: timeout},
		logger:      logging.GetLogger("instagram"),
	}
}

type graphResponse struct {
	ID    string `json:"id"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// PublishReel creates and publishes a reel container. It returns the id of
// the published media.
func (p *Publisher) PublishReel(ctx context.Context, videoURL, caption string) (string, error) {
	if p.userID == "" || p.accessToken == "" {
		return "", ErrNotConfigured
	}

	container, err := p.post(ctx, "media", url.Values{
		"media_type":   {"REELS"},
		"video_url":    {videoURL},
		"caption":      {caption},
		"access_token": {p.accessToken},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create reel container: %w", err)
	}

	published, err := p.post(ctx, "media_publish", url.Values{
		"creation_id":  {container},
		"access_token": {p.accessToken},
	})
	if err != nil {
		return "", fmt.Errorf("failed to publish reel container %s: %w", container, err)
	}
	return published, nil
}

func (p *Publisher) post(ctx context.Context, edge string, form url.Values) (string, error) {
	endpoint := fmt.Sprintf("%s/%s/%s", p.baseURL, url.PathEscape(p.userID), edge)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("graph request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("graph request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("graph read: %w", err)
	}

	var payload graphResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("graph decode (status %s): %w", resp.Status, err)
	}
	if payload.Error != nil {
		return "", fmt.Errorf("graph error %d: %s", payload.Error.Code, payload.Error.Message)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("graph bad status: %s", resp.Status)
	}
	if payload.ID == "" {
		return "", errors.New("graph response has no id")
	}
	return payload.ID, nil
}

// Register publishes every ReelPublished signal. Failures are logged only.
func (p *Publisher) Register() {
	signals.OnReelPublished(p.onReelPublished, ListenerKey)
}

// Unregister detaches the handler added by Register
func (p *Publisher) Unregister() {
	signals.RemoveListeners(ListenerKey)
}

func (p *Publisher) onReelPublished(ctx context.Context, data signals.ReelPublishedData) {
	logger := p.logger.With().Str("vendor_id", data.VendorID).Str("reel_id", data.ReelID).Logger()

	// The request context may already be done once the handler has responded.
	ctx = context.WithoutCancel(ctx)
	mediaID, err := p.PublishReel(ctx, data.VideoURL, data.Caption)
	if errors.Is(err, ErrNotConfigured) {
		logger.Warn().Msg("Instagram credentials missing; set INSTAGRAM_IG_USER_ID and INSTAGRAM_ACCESS_TOKEN to enable auto-posting")
		return
	}
	if err != nil {
		logger.Error().Err(err).Msg("Failed to publish reel to Instagram")
		return
	}
	logger.Info().Str("media_id", mediaID).Msg("Reel published to Instagram")
}
