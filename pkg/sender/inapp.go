package sender

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// InAppNotification is the record an in-app send produces: an entry in the
// user's notification tray.
type InAppNotification struct {
	ID        string
	UserID    string
	DealerID  int64
	Title     string
	Body      string
	Metadata  map[string]any
	CreatedAt time.Time
}

// InAppStore persists in-app notifications. The tray's read/unread
// surface lives with the UI layer; the sender only appends.
type InAppStore interface {
	Create(ctx context.Context, n InAppNotification) error
}

// InAppSender delivers notifications to the user's in-app tray. In-app is
// the one channel whose "transport" is our own storage, so it lives inside
// the core while SMS, email, and push stay external.
type InAppSender struct {
	store InAppStore
}

// NewInAppSender creates an in-app sender over the given store.
func NewInAppSender(store InAppStore) *InAppSender {
	return &InAppSender{store: store}
}

func (s *InAppSender) Send(ctx context.Context, req Request) (Result, error) {
	id := uuid.New().String()
	err := s.store.Create(ctx, InAppNotification{
		ID:        id,
		UserID:    req.UserID,
		DealerID:  req.DealerID,
		Title:     req.Title,
		Body:      req.Body,
		Metadata:  req.Metadata,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return Result{}, fmt.Errorf("store in-app notification: %w", err)
	}
	return Result{Success: true, ProviderMessageID: id}, nil
}
