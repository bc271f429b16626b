package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BorcilaVasile/medical-appointment-api/internal/model"
	"github.com/BorcilaVasile/medical-appointment-api/internal/repository/memory"
	"github.com/BorcilaVasile/medical-appointment-api/pkg/logger"
)

type fakeBroker struct {
	mu        sync.Mutex
	published []string
	failures  int
}

func (b *fakeBroker) Publish(_ context.Context, channel string, _ interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failures > 0 {
		b.failures--
		return errors.New("broker down")
	}
	b.published = append(b.published, channel)
	return nil
}

func (b *fakeBroker) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, errors.New("not implemented")
}

func (b *fakeBroker) Close() error { return nil }

func (b *fakeBroker) channels() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.published...)
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []string
}

func (m *fakeMailer) Send(_ context.Context, to, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to)
	return nil
}

func testConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:     10,
		PollInterval:  10 * time.Millisecond,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
	}
}

func quietLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
}

func addEvent(t *testing.T, repo *memory.OutboxRepository, recipient uuid.UUID) *model.OutboxEvent {
	t.Helper()

	notif := model.NotificationEvent{
		ID:            uuid.New(),
		Type:          model.NotificationCreated,
		AppointmentID: uuid.New(),
		RecipientID:   recipient,
		Message:       "Appointment booked for 2026-09-15 at 10:00",
		CreatedAt:     time.Now(),
	}
	payload, err := json.Marshal(notif)
	require.NoError(t, err)

	event := &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: "appointment.created",
		Payload:   payload,
	}
	require.NoError(t, repo.Create(context.Background(), event))
	return event
}

func TestProcessEvents(t *testing.T) {
	repo := memory.NewOutboxRepository()
	broker := &fakeBroker{}
	p := NewOutboxProcessor(repo, broker, nil, nil, testConfig(), quietLogger(), nil)

	addEvent(t, repo, uuid.New())
	addEvent(t, repo, uuid.New())

	require.NoError(t, p.ProcessEvents(context.Background()))

	assert.Equal(t, []string{"appointment.created", "appointment.created"}, broker.channels())
	for _, evt := range repo.All() {
		assert.Equal(t, model.OutboxStatusProcessed, evt.Status)
		assert.NotNil(t, evt.ProcessedAt)
	}
}

func TestProcessEventsRetriesThenSucceeds(t *testing.T) {
	repo := memory.NewOutboxRepository()
	broker := &fakeBroker{failures: 1}
	p := NewOutboxProcessor(repo, broker, nil, nil, testConfig(), quietLogger(), nil)

	addEvent(t, repo, uuid.New())

	require.NoError(t, p.ProcessEvents(context.Background()))

	assert.Len(t, broker.channels(), 1)
	assert.Equal(t, model.OutboxStatusProcessed, repo.All()[0].Status)
}

func TestProcessEventsMarksFailed(t *testing.T) {
	repo := memory.NewOutboxRepository()
	broker := &fakeBroker{failures: 100}
	p := NewOutboxProcessor(repo, broker, nil, nil, testConfig(), quietLogger(), nil)

	addEvent(t, repo, uuid.New())

	require.NoError(t, p.ProcessEvents(context.Background()))

	evt := repo.All()[0]
	assert.Equal(t, model.OutboxStatusFailed, evt.Status)
	require.NotNil(t, evt.ErrorMessage)
	assert.Contains(t, *evt.ErrorMessage, "broker down")
	assert.Equal(t, 1, evt.RetryCount)
}

func TestConcurrentProcessorsDeliverOnce(t *testing.T) {
	repo := memory.NewOutboxRepository()
	broker := &fakeBroker{}

	addEvent(t, repo, uuid.New())

	// The API binary and the dedicated worker poll the same table.
	first := NewOutboxProcessor(repo, broker, nil, nil, testConfig(), quietLogger(), nil)
	second := NewOutboxProcessor(repo, broker, nil, nil, testConfig(), quietLogger(), nil)

	var wg sync.WaitGroup
	for _, p := range []*OutboxProcessor{first, second} {
		wg.Add(1)
		go func(p *OutboxProcessor) {
			defer wg.Done()
			assert.NoError(t, p.ProcessEvents(context.Background()))
		}(p)
	}
	wg.Wait()

	assert.Equal(t, []string{"appointment.created"}, broker.channels())
	assert.Equal(t, model.OutboxStatusProcessed, repo.All()[0].Status)
}

func TestStaleClaimsAreRequeued(t *testing.T) {
	repo := memory.NewOutboxRepository()
	broker := &fakeBroker{}
	p := NewOutboxProcessor(repo, broker, nil, nil, testConfig(), quietLogger(), nil)

	addEvent(t, repo, uuid.New())

	// A claim with no follow-up mark is what a crashed poller leaves.
	claimed, err := repo.ClaimPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	require.NoError(t, p.ProcessEvents(context.Background()))
	assert.Empty(t, broker.channels())

	n, err := repo.RequeueStale(context.Background(), time.Now().Add(time.Second))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, p.ProcessEvents(context.Background()))
	assert.Equal(t, []string{"appointment.created"}, broker.channels())
}

func TestProcessEventsEmailMirror(t *testing.T) {
	repo := memory.NewOutboxRepository()
	broker := &fakeBroker{}
	mailer := &fakeMailer{}
	known := uuid.New()

	lookup := func(_ context.Context, event *model.NotificationEvent) (string, bool) {
		if event.RecipientID == known {
			return "patient@example.com", true
		}
		return "", false
	}
	p := NewOutboxProcessor(repo, broker, mailer, lookup, testConfig(), quietLogger(), nil)

	addEvent(t, repo, known)
	addEvent(t, repo, uuid.New()) // no contact on file

	require.NoError(t, p.ProcessEvents(context.Background()))

	assert.Equal(t, []string{"patient@example.com"}, mailer.sent)
	// Missing contact never blocks the event itself.
	for _, evt := range repo.All() {
		assert.Equal(t, model.OutboxStatusProcessed, evt.Status)
	}
}

func TestStartDrainsAndStops(t *testing.T) {
	repo := memory.NewOutboxRepository()
	broker := &fakeBroker{}
	p := NewOutboxProcessor(repo, broker, nil, nil, testConfig(), quietLogger(), nil)

	addEvent(t, repo, uuid.New())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return len(broker.channels()) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("processor did not stop")
	}
}

func TestNewOutboxProcessorValidatesConfig(t *testing.T) {
	repo := memory.NewOutboxRepository()
	broker := &fakeBroker{}

	bad := testConfig()
	bad.BatchSize = 0
	assert.Panics(t, func() {
		NewOutboxProcessor(repo, broker, nil, nil, bad, quietLogger(), nil)
	})
}
