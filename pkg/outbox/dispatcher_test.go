package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ganttservice/pkg/circuitbreaker"
	"ganttservice/pkg/trace"
)

type memStore struct {
	mu         sync.Mutex
	events     []Event
	sent       []int64
	failed     []int64
	maxRetries []int
	pendErr    error
}

func (m *memStore) Pending(_ context.Context, limit int) ([]Event, error) {
	if m.pendErr != nil {
		return nil, m.pendErr
	}
	if len(m.events) > limit {
		return m.events[:limit], nil
	}
	return m.events, nil
}

func (m *memStore) MarkSent(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, id)
	return nil
}

func (m *memStore) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *memStore) MarkFailed(_ context.Context, id int64, maxRetries int) error {
	m.failed = append(m.failed, id)
	m.maxRetries = append(m.maxRetries, maxRetries)
	return nil
}

type delivery struct {
	routingKey string
	body       string
	traceID    string
}

type recordingPublisher struct {
	got    []delivery
	failOn map[string]bool
}

func (p *recordingPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	raw, _ := json.Marshal(payload)
	if p.failOn[string(raw)] {
		return errors.New("nack")
	}
	p.got = append(p.got, delivery{routingKey: routingKey, body: string(raw), traceID: trace.FromContext(ctx)})
	return nil
}

func event(id int64, body string) Event {
	return Event{ID: id, RoutingKey: "task.dates_shifted", Payload: json.RawMessage(body), Status: StatusPending}
}

func TestDispatchOnce_PublishesAndMarks(t *testing.T) {
	store := &memStore{events: []Event{
		event(1, `{"task_id":2,"trace_id":"abc"}`),
		event(2, `{"task_id":3}`),
	}}
	pub := &recordingPublisher{}
	d := NewDispatcher(store, pub, zap.NewNop())

	sent, err := d.DispatchOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, sent)
	assert.Equal(t, []int64{1, 2}, store.sent)
	require.Len(t, pub.got, 2)
	assert.Equal(t, delivery{"task.dates_shifted", `{"task_id":2,"trace_id":"abc"}`, "abc"}, pub.got[0])
	assert.Equal(t, "", pub.got[1].traceID)
}

func TestDispatchOnce_FailedPublishIsRetried(t *testing.T) {
	store := &memStore{events: []Event{event(1, `{"n":1}`), event(2, `{"n":2}`)}}
	pub := &recordingPublisher{failOn: map[string]bool{`{"n":1}`: true}}
	d := NewDispatcher(store, pub, zap.NewNop())

	sent, err := d.DispatchOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, sent)
	assert.Equal(t, []int64{1}, store.failed)
	assert.Equal(t, []int{5}, store.maxRetries)
	assert.Equal(t, []int64{2}, store.sent)
}

func TestDispatchOnce_ConfiguredMaxRetries(t *testing.T) {
	store := &memStore{events: []Event{event(1, `{"n":1}`)}}
	pub := &recordingPublisher{failOn: map[string]bool{`{"n":1}`: true}}
	d := NewDispatcher(store, pub, zap.NewNop()).WithMaxRetries(8)

	_, err := d.DispatchOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{8}, store.maxRetries)
}

func TestDispatchOnce_OpenBreakerPostponesBatch(t *testing.T) {
	store := &memStore{events: []Event{event(1, `{"n":1}`), event(2, `{"n":2}`), event(3, `{"n":3}`)}}
	pub := &recordingPublisher{failOn: map[string]bool{`{"n":1}`: true, `{"n":2}`: true}}
	cb := circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{
		FailureThreshold:    2,
		SuccessThreshold:    1,
		Timeout:             time.Hour,
		HalfOpenMaxRequests: 1,
	})
	d := NewDispatcher(store, pub, zap.NewNop()).WithBreaker(cb)

	sent, err := d.DispatchOnce(context.Background())
	require.NoError(t, err)

	assert.Zero(t, sent)
	// the third event is neither sent nor charged a retry
	assert.Equal(t, []int64{1, 2}, store.failed)
	assert.Empty(t, store.sent)
	assert.Empty(t, pub.got)
}

func TestDispatchOnce_BatchSize(t *testing.T) {
	store := &memStore{events: []Event{event(1, `{}`), event(2, `{}`), event(3, `{}`)}}
	d := NewDispatcher(store, &recordingPublisher{}, zap.NewNop()).WithBatchSize(2)

	sent, err := d.DispatchOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
}

func TestDispatchOnce_StoreError(t *testing.T) {
	store := &memStore{pendErr: errors.New("db down")}
	d := NewDispatcher(store, &recordingPublisher{}, zap.NewNop())

	_, err := d.DispatchOnce(context.Background())
	assert.Error(t, err)
}

func TestStart_StopsOnCancel(t *testing.T) {
	store := &memStore{events: []Event{event(1, `{}`)}}
	d := NewDispatcher(store, &recordingPublisher{}, zap.NewNop()).WithInterval(time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		d.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return store.sentCount() > 0 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop")
	}
}
