package services

import (
	"context"
	"time"

	"github.com/ruralpay/atm/internal/journal"
	"github.com/stretchr/testify/mock"
)

type MockJournal struct {
	mock.Mock
}

func (m *MockJournal) Publish(ctx context.Context, event journal.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) ObserveOperation(operation, outcome string, duration time.Duration) {
	m.Called(operation, outcome, duration)
}

func (m *MockRecorder) IncRetry(operation string) {
	m.Called(operation)
}

func (m *MockRecorder) IncJournalFailure(sink string) {
	m.Called(sink)
}
