package delivery_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerops/notifykit/pkg/delivery"
	"github.com/dealerops/notifykit/pkg/notify"
	"github.com/dealerops/notifykit/pkg/throttle"
)

func validLog(mutate ...func(*delivery.Log)) delivery.Log {
	l := delivery.Log{
		DealerID:       42,
		NotificationID: "notif-1",
		UserID:         "user-1",
		Channel:        notify.ChannelEmail,
	}
	for _, fn := range mutate {
		fn(&l)
	}
	return l
}

func TestMemoryStore_InsertAndGet(t *testing.T) {
	ctx := context.Background()
	store := delivery.NewMemoryStore()

	entry := validLog()
	require.NoError(t, store.Insert(ctx, &entry))
	require.NotEqual(t, uuid.Nil, entry.ID)
	assert.Equal(t, delivery.StatusPending, entry.Status)
	assert.False(t, entry.CreatedAt.IsZero())

	got, err := store.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, got.ID)
	assert.Equal(t, "user-1", got.UserID)

	_, err = store.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, delivery.ErrNotFound)
}

func TestMemoryStore_InFlightUniqueness(t *testing.T) {
	ctx := context.Background()
	store := delivery.NewMemoryStore()

	first := validLog()
	require.NoError(t, store.Insert(ctx, &first))

	// Second pending row for the same (notification, user, channel) is
	// rejected while the first is in flight.
	second := validLog()
	assert.ErrorIs(t, store.Insert(ctx, &second), delivery.ErrDuplicateInFlight)

	// A different channel is a separate delivery stream.
	sms := validLog(func(l *delivery.Log) { l.Channel = notify.ChannelSMS })
	assert.NoError(t, store.Insert(ctx, &sms))

	// Resolving the first row frees the slot.
	require.NoError(t, store.UpdateStatus(ctx, first.ID, delivery.StatusSent, delivery.Extra{}))
	third := validLog()
	assert.NoError(t, store.Insert(ctx, &third))
}

func TestMemoryStore_InsertBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("commits all rows", func(t *testing.T) {
		store := delivery.NewMemoryStore()
		a := validLog()
		b := validLog(func(l *delivery.Log) { l.Channel = notify.ChannelSMS })

		require.NoError(t, store.InsertBatch(ctx, []*delivery.Log{&a, &b}))
		_, err := store.Get(ctx, a.ID)
		assert.NoError(t, err)
		_, err = store.Get(ctx, b.ID)
		assert.NoError(t, err)
	})

	t.Run("intra-batch duplicate commits nothing", func(t *testing.T) {
		store := delivery.NewMemoryStore()
		a := validLog()
		b := validLog()

		err := store.InsertBatch(ctx, []*delivery.Log{&a, &b})
		require.ErrorIs(t, err, delivery.ErrDuplicateInFlight)

		// The slot is still free: no row from the failed batch leaked in.
		single := validLog()
		assert.NoError(t, store.Insert(ctx, &single))
	})

	t.Run("duplicate against an existing row commits nothing", func(t *testing.T) {
		store := delivery.NewMemoryStore()
		existing := validLog()
		require.NoError(t, store.Insert(ctx, &existing))

		other := validLog(func(l *delivery.Log) { l.Channel = notify.ChannelSMS })
		dup := validLog()
		err := store.InsertBatch(ctx, []*delivery.Log{&other, &dup})
		require.ErrorIs(t, err, delivery.ErrDuplicateInFlight)

		// The valid entry must not have been committed either.
		free := validLog(func(l *delivery.Log) { l.Channel = notify.ChannelSMS })
		assert.NoError(t, store.Insert(ctx, &free))
	})

	t.Run("resolved statuses do not claim in-flight slots", func(t *testing.T) {
		store := delivery.NewMemoryStore()
		a := validLog(func(l *delivery.Log) { l.Status = delivery.StatusSent })
		b := validLog(func(l *delivery.Log) { l.Status = delivery.StatusSent })

		assert.NoError(t, store.InsertBatch(ctx, []*delivery.Log{&a, &b}))
	})
}

func TestMemoryStore_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC)
	store := delivery.NewMemoryStore(delivery.WithMemoryStoreClock(func() time.Time { return now }))

	entry := validLog()
	require.NoError(t, store.Insert(ctx, &entry))

	require.NoError(t, store.UpdateStatus(ctx, entry.ID, delivery.StatusSent, delivery.Extra{
		Provider:          "sendgrid",
		ProviderMessageID: "sg-123",
	}))

	got, err := store.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, delivery.StatusSent, got.Status)
	require.NotNil(t, got.SentAt)
	assert.True(t, got.SentAt.Equal(now))
	assert.Equal(t, "sendgrid", got.Provider)

	// Skipping states is rejected.
	err = store.UpdateStatus(ctx, entry.ID, delivery.StatusClicked, delivery.Extra{})
	assert.ErrorIs(t, err, delivery.ErrInvalidTransition)

	require.NoError(t, store.UpdateStatus(ctx, entry.ID, delivery.StatusDelivered, delivery.Extra{}))
	got, err = store.Get(ctx, entry.ID)
	require.NoError(t, err)
	require.NotNil(t, got.DeliveredAt)
	firstStamp := *got.DeliveredAt

	// A duplicate webhook replaying the same status keeps the first stamp.
	require.NoError(t, store.UpdateStatus(ctx, entry.ID, delivery.StatusDelivered, delivery.Extra{}))
	got, err = store.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.True(t, got.DeliveredAt.Equal(firstStamp))
}

func TestMemoryStore_UpdateStatusByProviderID(t *testing.T) {
	ctx := context.Background()
	store := delivery.NewMemoryStore()

	entry := validLog()
	require.NoError(t, store.Insert(ctx, &entry))
	require.NoError(t, store.UpdateStatus(ctx, entry.ID, delivery.StatusSent, delivery.Extra{
		ProviderMessageID: "sg-456",
	}))

	require.NoError(t, store.UpdateStatusByProviderID(ctx, "sg-456", delivery.StatusDelivered, delivery.Extra{}))
	got, err := store.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, delivery.StatusDelivered, got.Status)

	err = store.UpdateStatusByProviderID(ctx, "unknown", delivery.StatusDelivered, delivery.Extra{})
	assert.ErrorIs(t, err, delivery.ErrNotFound)
}

func TestMemoryStore_ListFailed(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC)
	store := delivery.NewMemoryStore()

	fail := func(notifID string, retries int, failedAt time.Time) {
		entry := validLog(func(l *delivery.Log) { l.NotificationID = notifID })
		require.NoError(t, store.Insert(ctx, &entry))
		ts := failedAt
		require.NoError(t, store.UpdateStatus(ctx, entry.ID, delivery.StatusFailed, delivery.Extra{
			Timestamp:     &ts,
			SetRetryCount: &retries,
		}))
	}

	fail("n-old", 1, now.Add(-5*time.Hour))
	fail("n-new", 1, now.Add(-30*time.Minute))
	fail("n-exhausted", 3, now.Add(-6*time.Hour))

	rows, err := store.ListFailed(ctx, delivery.FailedFilter{MaxRetryCount: 3})
	require.NoError(t, err)
	require.Len(t, rows, 2, "rows at the retry budget are excluded")
	assert.Equal(t, "n-old", rows[0].NotificationID, "oldest failure first")
	assert.Equal(t, "n-new", rows[1].NotificationID)

	rows, err = store.ListFailed(ctx, delivery.FailedFilter{
		MaxRetryCount: 3,
		FailedBefore:  now.Add(-time.Hour),
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "n-old", rows[0].NotificationID)

	rows, err = store.ListFailed(ctx, delivery.FailedFilter{MaxRetryCount: 3, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestMemoryStore_ClaimForRetry(t *testing.T) {
	ctx := context.Background()
	store := delivery.NewMemoryStore()

	entry := validLog()
	require.NoError(t, store.Insert(ctx, &entry))
	require.NoError(t, store.UpdateStatus(ctx, entry.ID, delivery.StatusFailed, delivery.Extra{}))

	claimed, err := store.ClaimForRetry(ctx, entry.ID)
	require.NoError(t, err)
	assert.True(t, claimed)

	// A second claimant loses: the row is already processing.
	claimed, err = store.ClaimForRetry(ctx, entry.ID)
	require.NoError(t, err)
	assert.False(t, claimed)

	got, err := store.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, delivery.StatusProcessing, got.Status)
}

func TestMemoryStore_CountDeliveries(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC)
	store := delivery.NewMemoryStore()

	add := func(notifID string, status delivery.Status, sentAt time.Time) {
		entry := validLog(func(l *delivery.Log) { l.NotificationID = notifID })
		require.NoError(t, store.Insert(ctx, &entry))
		if status == delivery.StatusPending {
			return
		}
		ts := sentAt
		require.NoError(t, store.UpdateStatus(ctx, entry.ID, delivery.StatusSent, delivery.Extra{Timestamp: &ts}))
		if status != delivery.StatusSent {
			require.NoError(t, store.UpdateStatus(ctx, entry.ID, status, delivery.Extra{}))
		}
	}

	add("n-1", delivery.StatusSent, now.Add(-10*time.Minute))
	add("n-2", delivery.StatusDelivered, now.Add(-20*time.Minute))
	add("n-3", delivery.StatusSent, now.Add(-2*time.Hour)) // outside the hour window
	add("n-4", delivery.StatusPending, time.Time{})        // never sent, no budget consumed

	failed := validLog(func(l *delivery.Log) { l.NotificationID = "n-5" })
	require.NoError(t, store.Insert(ctx, &failed))
	require.NoError(t, store.UpdateStatus(ctx, failed.ID, delivery.StatusFailed, delivery.Extra{}))

	hourly, err := store.CountDeliveries(ctx, "user-1", 42, throttle.WindowHour, now)
	require.NoError(t, err)
	assert.Equal(t, 2, hourly)

	daily, err := store.CountDeliveries(ctx, "user-1", 42, throttle.WindowDay, now)
	require.NoError(t, err)
	assert.Equal(t, 3, daily)
}

func TestMemoryStore_DeleteOlderThan(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	current := now
	store := delivery.NewMemoryStore(delivery.WithMemoryStoreClock(func() time.Time { return current }))

	current = now.Add(-100 * 24 * time.Hour)
	old := validLog(func(l *delivery.Log) { l.NotificationID = "n-old" })
	require.NoError(t, store.Insert(ctx, &old))

	current = now
	fresh := validLog(func(l *delivery.Log) { l.NotificationID = "n-fresh" })
	require.NoError(t, store.Insert(ctx, &fresh))

	deleted, err := store.DeleteOlderThan(ctx, now.Add(-90*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = store.Get(ctx, old.ID)
	assert.ErrorIs(t, err, delivery.ErrNotFound)
	_, err = store.Get(ctx, fresh.ID)
	assert.NoError(t, err)
}
