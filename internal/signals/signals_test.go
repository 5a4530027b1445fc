package signals

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recorder[T any] struct {
	mu   sync.Mutex
	seen []T
}

func (r *recorder[T]) handle(_ context.Context, data T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, data)
}

func (r *recorder[T]) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

func (r *recorder[T]) first() T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seen[0]
}

func TestAccountCreated(t *testing.T) {
	rec := &recorder[AccountCreatedData]{}
	OnAccountCreated(rec.handle, "test-account-created")
	t.Cleanup(func() { RemoveListeners("test-account-created") })

	EmitAccountCreated(context.Background(), AccountCreatedData{UserID: "u1", Role: "consumer"})

	assert.Eventually(t, func() bool { return rec.len() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "u1", rec.first().UserID)
}

func TestListenerKeyDeduplicates(t *testing.T) {
	rec := &recorder[ReelPublishedData]{}
	OnReelPublished(rec.handle, "test-reel")
	OnReelPublished(rec.handle, "test-reel")
	t.Cleanup(func() { RemoveListeners("test-reel") })

	EmitReelPublished(context.Background(), ReelPublishedData{ReelID: "r1"})

	assert.Eventually(t, func() bool { return rec.len() >= 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, rec.len())
}

func TestRemoveListeners(t *testing.T) {
	rec := &recorder[PasswordChangedData]{}
	OnPasswordChanged(rec.handle, "test-removed")
	RemoveListeners("test-removed")

	EmitPasswordChanged(context.Background(), PasswordChangedData{UserID: "u1"})

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, rec.len())
}
