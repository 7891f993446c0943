package delivery_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dealerops/notifykit/pkg/delivery"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from delivery.Status
		to   delivery.Status
		want bool
	}{
		{delivery.StatusPending, delivery.StatusSent, true},
		{delivery.StatusPending, delivery.StatusFailed, true},
		{delivery.StatusPending, delivery.StatusDelivered, false},
		{delivery.StatusSent, delivery.StatusDelivered, true},
		{delivery.StatusSent, delivery.StatusBounced, true},
		{delivery.StatusSent, delivery.StatusPending, false},
		{delivery.StatusDelivered, delivery.StatusClicked, true},
		{delivery.StatusDelivered, delivery.StatusRead, true},
		{delivery.StatusDelivered, delivery.StatusSent, false},
		{delivery.StatusFailed, delivery.StatusProcessing, true},
		{delivery.StatusFailed, delivery.StatusSent, false},
		{delivery.StatusProcessing, delivery.StatusSent, true},
		{delivery.StatusProcessing, delivery.StatusFailed, true},
		{delivery.StatusBounced, delivery.StatusSent, false},
		{delivery.StatusUnsubscribed, delivery.StatusPending, false},
		{delivery.StatusRead, delivery.StatusUnsubscribed, true},
		{delivery.StatusClicked, delivery.StatusUnsubscribed, true},
		// Same-state transitions are idempotent no-ops.
		{delivery.StatusDelivered, delivery.StatusDelivered, true},
		{delivery.StatusFailed, delivery.StatusFailed, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, delivery.CanTransition(tt.from, tt.to))
		})
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.True(t, delivery.StatusBounced.IsTerminal())
	assert.True(t, delivery.StatusUnsubscribed.IsTerminal())
	assert.False(t, delivery.StatusFailed.IsTerminal())
	assert.False(t, delivery.StatusRead.IsTerminal())
}

func TestStatus_InFlight(t *testing.T) {
	assert.True(t, delivery.StatusPending.InFlight())
	assert.True(t, delivery.StatusProcessing.InFlight())
	assert.False(t, delivery.StatusSent.InFlight())
	assert.False(t, delivery.StatusFailed.InFlight())
}

func TestStatus_Valid(t *testing.T) {
	assert.True(t, delivery.StatusPending.Valid())
	assert.False(t, delivery.Status("queued").Valid())
	assert.False(t, delivery.Status("").Valid())
}
