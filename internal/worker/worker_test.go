package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"crewplanner/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeOutbox struct {
	mu        sync.Mutex
	pending   []domain.QueuedNotification
	sent      []string
	failed    map[string]string
	batchErr  error
	lastLimit int
	lastMax   int
}

func (f *fakeOutbox) NextBatch(_ context.Context, limit, maxAttempts int) ([]domain.QueuedNotification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLimit, f.lastMax = limit, maxAttempts
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	var out []domain.QueuedNotification
	for _, n := range f.pending {
		if n.Attempts < maxAttempts && len(out) < limit {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeOutbox) MarkSent(_ context.Context, id string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, id)
	f.remove(id)
	return nil
}

func (f *fakeOutbox) MarkFailed(_ context.Context, id string, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failed == nil {
		f.failed = map[string]string{}
	}
	f.failed[id] = reason
	for i := range f.pending {
		if f.pending[i].Request.ID == id {
			f.pending[i].Attempts++
		}
	}
	return nil
}

func (f *fakeOutbox) remove(id string) {
	for i, n := range f.pending {
		if n.Request.ID == id {
			f.pending = append(f.pending[:i], f.pending[i+1:]...)
			return
		}
	}
}

type fakeSender struct {
	failFor map[string]bool
	sent    []string
}

func (f *fakeSender) SendNotification(_ context.Context, req domain.NotificationRequest) error {
	if f.failFor[req.ID] {
		return errors.New("mailbox unavailable")
	}
	f.sent = append(f.sent, req.ID)
	return nil
}

type fakeRecorder struct {
	mu     sync.Mutex
	sent   int
	failed int
	sweeps map[string]int
}

func (f *fakeRecorder) NotificationSent(domain.NotificationType)   { f.sent++ }
func (f *fakeRecorder) NotificationFailed(domain.NotificationType) { f.failed++ }
func (f *fakeRecorder) SweepRun(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sweeps == nil {
		f.sweeps = map[string]int{}
	}
	key := name
	if err != nil {
		key += ":error"
	}
	f.sweeps[key]++
}

func queued(id string, attempts int) domain.QueuedNotification {
	return domain.QueuedNotification{
		Request:  domain.NotificationRequest{ID: id, Type: domain.NotificationAddedToCrew, To: id + "@example.com"},
		Attempts: attempts,
	}
}

func TestQueueDrainer_DrainOnce(t *testing.T) {
	outbox := &fakeOutbox{pending: []domain.QueuedNotification{queued("n1", 0), queued("n2", 0), queued("n3", 2)}}
	sender := &fakeSender{failFor: map[string]bool{"n2": true}}
	rec := &fakeRecorder{}
	d := NewQueueDrainer(outbox, sender, rec, discardLogger, DrainerConfig{BatchSize: 10, MaxAttempts: 3})

	sent, err := d.DrainOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Equal(t, []string{"n1", "n3"}, outbox.sent)
	assert.Equal(t, "mailbox unavailable", outbox.failed["n2"])
	assert.Equal(t, 2, rec.sent)
	assert.Equal(t, 1, rec.failed)
	assert.Equal(t, 10, outbox.lastLimit)
	assert.Equal(t, 3, outbox.lastMax)

	// n2 is retried until it reaches the attempt limit
	for i := 0; i < 3; i++ {
		_, err = d.DrainOnce(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 3, outbox.pending[0].Attempts)
	sent, err = d.DrainOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Equal(t, 3, rec.failed)
}

func TestQueueDrainer_DrainOnce_BatchError(t *testing.T) {
	outbox := &fakeOutbox{batchErr: errors.New("db down")}
	d := NewQueueDrainer(outbox, &fakeSender{}, nil, discardLogger, DrainerConfig{})

	_, err := d.DrainOnce(context.Background())
	assert.EqualError(t, err, "db down")
	assert.Equal(t, 50, outbox.lastLimit)
	assert.Equal(t, 5, outbox.lastMax)
}

func TestQueueDrainer_Run_StopsOnCancel(t *testing.T) {
	outbox := &fakeOutbox{pending: []domain.QueuedNotification{queued("n1", 0)}}
	d := NewQueueDrainer(outbox, &fakeSender{}, nil, discardLogger, DrainerConfig{Interval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	assert.Eventually(t, func() bool {
		outbox.mu.Lock()
		defer outbox.mu.Unlock()
		return len(outbox.sent) == 1
	}, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("drainer did not stop")
	}
}

type fakeSweep struct {
	name  string
	err   error
	calls int
}

func (f *fakeSweep) Name() string { return f.name }

func (f *fakeSweep) Run(context.Context) error {
	f.calls++
	return f.err
}

func TestScheduler_RunAll(t *testing.T) {
	failing := &fakeSweep{name: "confirmation_requests", err: errors.New("db down")}
	ok := &fakeSweep{name: "qualification_expiry"}
	rec := &fakeRecorder{}
	s, err := NewScheduler("0 7 * * *", nil, rec, discardLogger, failing, ok)
	require.NoError(t, err)

	s.RunAll(context.Background())
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, ok.calls)
	assert.Equal(t, map[string]int{"confirmation_requests:error": 1, "qualification_expiry": 1}, rec.sweeps)
}

func TestScheduler_RunAll_CanceledContext(t *testing.T) {
	sweep := &fakeSweep{name: "confirmation_requests"}
	s, err := NewScheduler("@daily", nil, nil, discardLogger, sweep)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.RunAll(ctx)
	assert.Zero(t, sweep.calls)
}

func TestNewScheduler_InvalidSpec(t *testing.T) {
	_, err := NewScheduler("every morning", nil, nil, discardLogger)
	assert.Error(t, err)
}

func TestScheduler_Run_StopsOnCancel(t *testing.T) {
	s, err := NewScheduler("0 7 * * *", time.UTC, nil, discardLogger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
