package async_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerops/notifykit/pkg/async"
)

func TestAsync(t *testing.T) {
	t.Run("returns result", func(t *testing.T) {
		f := async.Async(context.Background(), 21, func(ctx context.Context, n int) (int, error) {
			return n * 2, nil
		})
		got, err := f.Await()
		require.NoError(t, err)
		assert.Equal(t, 42, got)
	})

	t.Run("propagates error", func(t *testing.T) {
		wantErr := errors.New("lookup failed")
		f := async.Async(context.Background(), "u1", func(ctx context.Context, id string) (string, error) {
			return "", wantErr
		})
		_, err := f.Await()
		assert.ErrorIs(t, err, wantErr)
	})

	t.Run("pre-canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		f := async.Async(ctx, 0, func(ctx context.Context, n int) (int, error) {
			return 1, nil
		})
		_, err := f.Await()
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("await timeout", func(t *testing.T) {
		f := async.Async(context.Background(), 0, func(ctx context.Context, n int) (int, error) {
			time.Sleep(200 * time.Millisecond)
			return 1, nil
		})
		_, err := f.AwaitWithTimeout(10 * time.Millisecond)
		assert.ErrorIs(t, err, async.ErrTimeout)
	})
}

func TestWaitAllSettled(t *testing.T) {
	boom := errors.New("boom")

	fs := []*async.Future[int]{
		async.Async(context.Background(), 1, func(ctx context.Context, n int) (int, error) { return n, nil }),
		async.Async(context.Background(), 2, func(ctx context.Context, n int) (int, error) { return 0, boom }),
		async.Async(context.Background(), 3, func(ctx context.Context, n int) (int, error) { return n, nil }),
	}

	results, errs := async.WaitAllSettled(fs...)
	assert.Equal(t, []int{1, 0, 3}, results)
	assert.NoError(t, errs[0])
	assert.ErrorIs(t, errs[1], boom)
	assert.NoError(t, errs[2])
}
