package logger_test

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dealerops/notifykit/pkg/logger"
)

func TestError(t *testing.T) {
	t.Run("nil error returns empty attr", func(t *testing.T) {
		attr := logger.Error(nil)
		assert.Equal(t, slog.Attr{}, attr)
	})

	t.Run("non-nil error keyed as error", func(t *testing.T) {
		err := errors.New("boom")
		attr := logger.Error(err)
		assert.Equal(t, "error", attr.Key)
	})
}

func TestErrors(t *testing.T) {
	t.Run("all nil returns empty attr", func(t *testing.T) {
		attr := logger.Errors(nil, nil)
		assert.Equal(t, slog.Attr{}, attr)
	})

	t.Run("mixed errors grouped", func(t *testing.T) {
		attr := logger.Errors(nil, errors.New("one"), errors.New("two"))
		assert.Equal(t, "errors", attr.Key)
		assert.Len(t, attr.Value.Group(), 2)
	})
}

func TestDomainAttrs(t *testing.T) {
	assert.Equal(t, slog.Attr{}, logger.UserID(""))
	assert.Equal(t, "user_id", logger.UserID("u1").Key)
	assert.Equal(t, "dealer_id", logger.DealerID(42).Key)
	assert.Equal(t, "channel", logger.Channel("sms").Key)
	assert.Equal(t, slog.Attr{}, logger.NotificationID(""))
	assert.Equal(t, "notification_id", logger.NotificationID("n1").Key)
	assert.Equal(t, "retry_count", logger.RetryCount(2).Key)
}
