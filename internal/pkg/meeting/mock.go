package meeting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockProvider is an in-memory provider for development and tests.
type MockProvider struct {
	mu       sync.Mutex
	meetings map[string]mockMeeting

	// FailNext makes the next call fail with the given error, once.
	FailNext error
}

type mockMeeting struct {
	startsAt        time.Time
	durationMinutes int
	cancelled       bool
}

func NewMockProvider() *MockProvider {
	return &MockProvider{meetings: make(map[string]mockMeeting)}
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) failNext() error {
	if m.FailNext != nil {
		err := m.FailNext
		m.FailNext = nil
		return err
	}
	return nil
}

func (m *MockProvider) Create(ctx context.Context, topic string, startsAt time.Time, durationMinutes int) (*Details, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failNext(); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	m.meetings[id] = mockMeeting{startsAt: startsAt, durationMinutes: durationMinutes}
	return &Details{
		ExternalID: id,
		JoinURL:    fmt.Sprintf("https://meet.example.test/join/%s", id),
		StartURL:   fmt.Sprintf("https://meet.example.test/start/%s", id),
		Password:   uuid.New().String()[:8],
	}, nil
}

func (m *MockProvider) Update(ctx context.Context, externalID string, startsAt time.Time, durationMinutes int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failNext(); err != nil {
		return err
	}

	mm, ok := m.meetings[externalID]
	if !ok {
		return fmt.Errorf("mock meeting %s not found", externalID)
	}
	mm.startsAt = startsAt
	mm.durationMinutes = durationMinutes
	m.meetings[externalID] = mm
	return nil
}

func (m *MockProvider) Cancel(ctx context.Context, externalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failNext(); err != nil {
		return err
	}

	mm, ok := m.meetings[externalID]
	if !ok {
		return fmt.Errorf("mock meeting %s not found", externalID)
	}
	mm.cancelled = true
	m.meetings[externalID] = mm
	return nil
}

// Count returns how many meetings were ever created, for duplicate checks in
// tests.
func (m *MockProvider) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.meetings)
}
