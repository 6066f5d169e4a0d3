// Package notify delivers user-facing notifications. Delivery is
// fire-and-forget from the engine's point of view: a failed notification is
// logged by the caller and never fails an assignment.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/civicdesk/backend/internal/models"
)

type Sink interface {
	Notify(ctx context.Context, userID, typ, title, message string, data map[string]any) error
}

type Inserter interface {
	InsertNotification(ctx context.Context, n models.Notification) error
}

// StoreSink persists notifications for the recipient's inbox.
type StoreSink struct {
	Store Inserter
}

func (s StoreSink) Notify(ctx context.Context, userID, typ, title, message string, data map[string]any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return s.Store.InsertNotification(ctx, models.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Message:   message,
		Data:      payload,
		CreatedAt: time.Now().UTC(),
	})
}

// LogSink is the fallback when no notification store is wired.
type LogSink struct {
	Logger zerolog.Logger
}

func (s LogSink) Notify(_ context.Context, userID, typ, title, message string, _ map[string]any) error {
	s.Logger.Info().
		Str("user_id", userID).
		Str("type", typ).
		Str("title", title).
		Str("message", message).
		Msg("notification")
	return nil
}
