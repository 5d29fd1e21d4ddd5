package meeting

import (
	"context"
	"time"
)

// Details is what a video provider returns for a scheduled call.
type Details struct {
	ExternalID string
	JoinURL    string
	StartURL   string
	Password   string
}

// Provider is a video-conferencing backend. Implementations wrap the
// provider's HTTP API; non-production environments use the mock.
type Provider interface {
	Name() string
	Create(ctx context.Context, topic string, startsAt time.Time, durationMinutes int) (*Details, error)
	Update(ctx context.Context, externalID string, startsAt time.Time, durationMinutes int) error
	Cancel(ctx context.Context, externalID string) error
}
