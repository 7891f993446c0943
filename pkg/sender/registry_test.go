package sender_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerops/notifykit/pkg/notify"
	"github.com/dealerops/notifykit/pkg/sender"
)

func TestRegistry_Send(t *testing.T) {
	r := sender.NewRegistry()
	r.Register(notify.ChannelEmail, sender.Func(func(ctx context.Context, req sender.Request) (sender.Result, error) {
		return sender.Result{Success: true, ProviderMessageID: "email-1"}, nil
	}))

	result, err := r.Send(context.Background(), sender.Request{Channel: notify.ChannelEmail})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "email-1", result.ProviderMessageID)

	_, err = r.Send(context.Background(), sender.Request{Channel: notify.ChannelSMS})
	assert.ErrorIs(t, err, sender.ErrNoSender)
}

func TestRegistry_Register(t *testing.T) {
	r := sender.NewRegistry()

	// Nil senders and invalid channels are ignored.
	r.Register(notify.ChannelEmail, nil)
	r.Register(notify.Channel("fax"), sender.NoOpSender{})
	assert.Empty(t, r.Channels())

	r.Register(notify.ChannelEmail, sender.NoOpSender{})
	assert.Equal(t, []notify.Channel{notify.ChannelEmail}, r.Channels())

	// Re-registering replaces the binding.
	replaced := false
	r.Register(notify.ChannelEmail, sender.Func(func(ctx context.Context, req sender.Request) (sender.Result, error) {
		replaced = true
		return sender.Result{Success: true}, nil
	}))
	_, err := r.Send(context.Background(), sender.Request{Channel: notify.ChannelEmail})
	require.NoError(t, err)
	assert.True(t, replaced)
}

type memoryInAppStore struct {
	created []sender.InAppNotification
	err     error
}

func (s *memoryInAppStore) Create(ctx context.Context, n sender.InAppNotification) error {
	if s.err != nil {
		return s.err
	}
	s.created = append(s.created, n)
	return nil
}

func TestInAppSender_Send(t *testing.T) {
	store := &memoryInAppStore{}
	s := sender.NewInAppSender(store)

	result, err := s.Send(context.Background(), sender.Request{
		NotificationID: "n-1",
		UserID:         "user-1",
		DealerID:       42,
		Channel:        notify.ChannelInApp,
		Title:          "Order update",
		Body:           "Order #7 was approved",
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.NotEmpty(t, result.ProviderMessageID)

	require.Len(t, store.created, 1)
	assert.Equal(t, "user-1", store.created[0].UserID)
	assert.Equal(t, result.ProviderMessageID, store.created[0].ID)
}

func TestInAppSender_StoreFailure(t *testing.T) {
	s := sender.NewInAppSender(&memoryInAppStore{err: errors.New("disk full")})

	result, err := s.Send(context.Background(), sender.Request{UserID: "user-1"})
	require.Error(t, err)
	assert.False(t, result.Success)
}

func TestNoOpSender(t *testing.T) {
	result, err := sender.NoOpSender{}.Send(context.Background(), sender.Request{})
	require.NoError(t, err)
	assert.True(t, result.Success)
}
