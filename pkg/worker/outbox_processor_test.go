package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/dentalclinic-api/internal/model"
	"github.com/jwalitptl/dentalclinic-api/pkg/metrics"
)

type mockOutbox struct{ mock.Mock }

func (m *mockOutbox) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	return fn(nil)
}

func (m *mockOutbox) GetPendingEventsWithLock(ctx context.Context, tx *sqlx.Tx, limit int) ([]*model.OutboxEvent, error) {
	args := m.Called(ctx, limit)
	events, _ := args.Get(0).([]*model.OutboxEvent)
	return events, args.Error(1)
}

func (m *mockOutbox) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error {
	return m.Called(id, status, errorMessage, retryAt).Error(0)
}

func (m *mockOutbox) CountPending(ctx context.Context) (int, error) {
	args := m.Called()
	return args.Int(0), args.Error(1)
}

func (m *mockOutbox) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(before)
	return args.Get(0).(int64), args.Error(1)
}

type mockBroker struct{ mock.Mock }

func (m *mockBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	return m.Called(channel, message).Error(0)
}

func (m *mockBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	args := m.Called(channel)
	ch, _ := args.Get(0).(<-chan []byte)
	return ch, args.Error(1)
}

func (m *mockBroker) Close() error { return nil }

var cfg = OutboxProcessorConfig{BatchSize: 10, PollInterval: time.Second, MaxAttempts: 3, RetryDelay: time.Second}

func newProcessor(t *testing.T, repo *mockOutbox, broker *mockBroker) (*OutboxProcessor, *metrics.Metrics) {
	t.Helper()
	m := metrics.New("test")
	p, err := NewOutboxProcessor(repo, broker, cfg, zerolog.Nop(), m)
	require.NoError(t, err)
	p.now = func() time.Time { return time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC) }
	return p, m
}

func event(retries int) *model.OutboxEvent {
	return &model.OutboxEvent{
		ID:         uuid.New(),
		EventType:  model.EventAppointmentCreated,
		Payload:    json.RawMessage(`{"entity":"appointment","id":4}`),
		Status:     model.OutboxStatusPending,
		RetryCount: retries,
	}
}

func TestNewOutboxProcessorValidatesConfig(t *testing.T) {
	_, err := NewOutboxProcessor(&mockOutbox{}, &mockBroker{}, OutboxProcessorConfig{}, zerolog.Nop(), metrics.New("test"))
	assert.Error(t, err)
}

func TestProcessBatchMarksPublishedEvents(t *testing.T) {
	repo, broker := &mockOutbox{}, &mockBroker{}
	ev := event(0)

	repo.On("GetPendingEventsWithLock", mock.Anything, 10).Return([]*model.OutboxEvent{ev}, nil)
	broker.On("Publish", model.EventAppointmentCreated, ev.Payload).Return(nil)
	repo.On("UpdateStatusTx", ev.ID, model.OutboxStatusProcessed, (*string)(nil), (*time.Time)(nil)).Return(nil)
	repo.On("CountPending").Return(0, nil)

	p, m := newProcessor(t, repo, broker)
	require.NoError(t, p.ProcessBatch(context.Background()))

	repo.AssertExpectations(t)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutboxEventsProcessed))
}

func TestProcessBatchSchedulesRetry(t *testing.T) {
	repo, broker := &mockOutbox{}, &mockBroker{}
	ev := event(1)
	wantRetry := time.Date(2024, 3, 4, 10, 0, 2, 0, time.UTC)

	repo.On("GetPendingEventsWithLock", mock.Anything, 10).Return([]*model.OutboxEvent{ev}, nil)
	broker.On("Publish", ev.EventType, ev.Payload).Return(errors.New("redis down"))
	repo.On("UpdateStatusTx", ev.ID, model.OutboxStatusRetry,
		mock.MatchedBy(func(s *string) bool { return s != nil && *s == "redis down" }),
		mock.MatchedBy(func(at *time.Time) bool { return at != nil && at.Equal(wantRetry) }),
	).Return(nil)
	repo.On("CountPending").Return(1, nil)

	p, m := newProcessor(t, repo, broker)
	require.NoError(t, p.ProcessBatch(context.Background()))

	repo.AssertExpectations(t)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutboxQueueSize))
}

func TestProcessBatchFailsExhaustedEvents(t *testing.T) {
	repo, broker := &mockOutbox{}, &mockBroker{}
	ev := event(2)

	repo.On("GetPendingEventsWithLock", mock.Anything, 10).Return([]*model.OutboxEvent{ev}, nil)
	broker.On("Publish", ev.EventType, ev.Payload).Return(errors.New("redis down"))
	repo.On("UpdateStatusTx", ev.ID, model.OutboxStatusFailed, mock.Anything, (*time.Time)(nil)).Return(nil)
	repo.On("CountPending").Return(0, nil)

	p, m := newProcessor(t, repo, broker)
	require.NoError(t, p.ProcessBatch(context.Background()))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutboxEventsFailed))
}

func TestProcessBatchReturnsClaimErrors(t *testing.T) {
	repo := &mockOutbox{}
	repo.On("GetPendingEventsWithLock", mock.Anything, 10).Return(nil, errors.New("db down"))

	p, _ := newProcessor(t, repo, &mockBroker{})
	assert.Error(t, p.ProcessBatch(context.Background()))
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, time.Second, Backoff(time.Second, 0))
	assert.Equal(t, 4*time.Second, Backoff(time.Second, 2))
	assert.Equal(t, time.Hour, Backoff(time.Minute, 10))
}
