package event

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"gitee.com/flycash/labour-tracker/internal/domain"
	"gitee.com/flycash/labour-tracker/internal/pkg/idempotent"
	"gitee.com/flycash/labour-tracker/internal/pkg/retry"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConsumer replays a queue of messages and honours Seek by re-queueing.
type fakeConsumer struct {
	mu         sync.Mutex
	log        []*kafka.Message
	next       int
	subscribed []string
	committed  []kafka.Offset
	seeks      []kafka.Offset
	assigned   []kafka.TopicPartition
	closed     bool
}

func (f *fakeConsumer) SubscribeTopics(topics []string, _ kafka.RebalanceCb) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribed = topics
	return nil
}

func (f *fakeConsumer) ReadMessage(timeout time.Duration) (*kafka.Message, error) {
	f.mu.Lock()
	if f.next < len(f.log) {
		msg := f.log[f.next]
		f.next++
		f.mu.Unlock()
		return msg, nil
	}
	f.mu.Unlock()
	time.Sleep(min(timeout, 5*time.Millisecond))
	return nil, kafka.NewError(kafka.ErrTimedOut, "timed out", false)
}

func (f *fakeConsumer) CommitMessage(m *kafka.Message) ([]kafka.TopicPartition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = append(f.committed, m.TopicPartition.Offset)
	return nil, nil
}

func (f *fakeConsumer) Seek(partition kafka.TopicPartition, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seeks = append(f.seeks, partition.Offset)
	for i, m := range f.log {
		if m.TopicPartition.Offset == partition.Offset {
			f.next = i
			break
		}
	}
	return nil
}

func (f *fakeConsumer) Assignment() ([]kafka.TopicPartition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.assigned, nil
}

func (f *fakeConsumer) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConsumer) commits() []kafka.Offset {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]kafka.Offset(nil), f.committed...)
}

func message(t *testing.T, topic string, offset kafka.Offset, evt *domain.DomainEvent) *kafka.Message {
	t.Helper()
	val := []byte("{not json")
	if evt != nil {
		var err error
		val, err = json.Marshal(evt)
		require.NoError(t, err)
	}
	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: 0, Offset: offset},
		Value:          val,
	}
}

func newEvent(id, typ string) *domain.DomainEvent {
	return &domain.DomainEvent{
		ID:   id,
		Type: typ,
		Data: map[string]any{"labour_id": "l-1"},
		Time: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestConsumer_Start(t *testing.T) {
	t.Parallel()
	begun := Topic("labour", domain.EventTypeLabourBegun)

	var (
		mu      sync.Mutex
		handled []string
		failed  = map[string]int{"evt-3": 1}
		batches = map[string]struct{}{}
	)
	registry := NewRegistry("labour", map[string]HandlerFactory{
		domain.EventTypeLabourBegun: func(scope *Scope) Handler {
			return HandlerFunc(func(_ context.Context, evt domain.DomainEvent) error {
				mu.Lock()
				defer mu.Unlock()
				batches[scope.BatchID] = struct{}{}
				if failed[evt.ID] > 0 {
					failed[evt.ID]--
					return errors.New("gateway down")
				}
				handled = append(handled, evt.ID)
				return nil
			})
		},
	})
	idem := idempotent.NewLocalService(time.Minute)
	require.NoError(t, idem.MarkProcessed(context.Background(), "evt-2"))

	fc := &fakeConsumer{
		assigned: []kafka.TopicPartition{{Topic: &begun}},
		log: []*kafka.Message{
			message(t, begun, 0, newEvent("evt-1", domain.EventTypeLabourBegun)),
			message(t, begun, 1, nil),
			message(t, begun, 2, newEvent("evt-2", domain.EventTypeLabourBegun)),
			message(t, "labour.unknown", 3, newEvent("evt-9", "unknown")),
			message(t, begun, 4, newEvent("evt-3", domain.EventTypeLabourBegun)),
			message(t, begun, 5, newEvent("evt-4", domain.EventTypeLabourBegun)),
		},
	}
	c := NewConsumer(fc, registry, idem, ConsumerConfig{
		BatchSize:   10,
		PollTimeout: 50 * time.Millisecond,
		Redelivery:  fastRedelivery(3),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- c.Start(ctx)
	}()

	assert.Eventually(t, func() bool {
		return len(fc.commits()) == 6
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, c.IsHealthy())
	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"evt-1", "evt-3", "evt-4"}, handled)
	assert.Equal(t, []kafka.Offset{0, 1, 2, 3, 4, 5}, fc.commits())
	assert.Equal(t, []kafka.Offset{4}, fc.seeks)
	assert.Equal(t, []string{begun}, fc.subscribed)
	assert.GreaterOrEqual(t, len(batches), 2)
	assert.True(t, fc.closed)
	assert.False(t, c.IsHealthy())

	ok, err := idem.Processed(context.Background(), "evt-3")
	require.NoError(t, err)
	assert.True(t, ok)
}

func fastRedelivery(maxRetries int32) retry.Config {
	return retry.Config{
		Type:          "fixed",
		FixedInterval: &retry.FixedIntervalConfig{Interval: 1, MaxRetries: maxRetries},
	}
}

// runUntil starts c and stops it once cond holds.
func runUntil(t *testing.T, c *Consumer, cond func() bool) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- c.Start(ctx)
	}()
	assert.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestConsumer_RedeliveryGivesUp(t *testing.T) {
	t.Parallel()
	begun := Topic("labour", domain.EventTypeLabourBegun)

	var (
		mu       sync.Mutex
		attempts = map[string]int{}
	)
	registry := NewRegistry("labour", map[string]HandlerFactory{
		domain.EventTypeLabourBegun: func(*Scope) Handler {
			return HandlerFunc(func(_ context.Context, evt domain.DomainEvent) error {
				mu.Lock()
				defer mu.Unlock()
				attempts[evt.ID]++
				if evt.ID == "evt-1" {
					return errors.New("template rendering failed")
				}
				return nil
			})
		},
	})
	idem := idempotent.NewLocalService(time.Minute)
	fc := &fakeConsumer{
		assigned: []kafka.TopicPartition{{Topic: &begun}},
		log: []*kafka.Message{
			message(t, begun, 0, newEvent("evt-1", domain.EventTypeLabourBegun)),
			message(t, begun, 1, newEvent("evt-2", domain.EventTypeLabourBegun)),
		},
	}
	c := NewConsumer(fc, registry, idem, ConsumerConfig{PollTimeout: 20 * time.Millisecond, Redelivery: fastRedelivery(2)})

	runUntil(t, c, func() bool {
		return len(fc.commits()) == 2
	})

	mu.Lock()
	defer mu.Unlock()
	// first delivery plus two redeliveries
	assert.Equal(t, 3, attempts["evt-1"])
	assert.Equal(t, 1, attempts["evt-2"])
	assert.Equal(t, []kafka.Offset{0, 1}, fc.commits())
	assert.Equal(t, []kafka.Offset{0, 0}, fc.seeks)
	assert.Empty(t, c.redeliveries)

	ok, err := idem.Processed(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = idem.Processed(context.Background(), "evt-2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConsumer_HandlerPanic(t *testing.T) {
	t.Parallel()
	begun := Topic("labour", domain.EventTypeLabourBegun)

	var (
		mu      sync.Mutex
		panics  = 1
		handled []string
	)
	registry := NewRegistry("labour", map[string]HandlerFactory{
		domain.EventTypeLabourBegun: func(*Scope) Handler {
			return HandlerFunc(func(_ context.Context, evt domain.DomainEvent) error {
				mu.Lock()
				defer mu.Unlock()
				if evt.ID == "evt-1" && panics > 0 {
					panics--
					panic("nil contact")
				}
				handled = append(handled, evt.ID)
				return nil
			})
		},
	})
	fc := &fakeConsumer{
		assigned: []kafka.TopicPartition{{Topic: &begun}},
		log: []*kafka.Message{
			message(t, begun, 0, newEvent("evt-1", domain.EventTypeLabourBegun)),
			message(t, begun, 1, newEvent("evt-2", domain.EventTypeLabourBegun)),
		},
	}
	c := NewConsumer(fc, registry, idempotent.NewLocalService(time.Minute),
		ConsumerConfig{PollTimeout: 20 * time.Millisecond, Redelivery: fastRedelivery(2)})

	runUntil(t, c, func() bool {
		return len(fc.commits()) == 2
	})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"evt-1", "evt-2"}, handled)
	assert.Equal(t, []kafka.Offset{0, 1}, fc.commits())
	assert.Equal(t, []kafka.Offset{0}, fc.seeks)
}

func TestNewConsumer_Redelivery(t *testing.T) {
	t.Parallel()
	def := DefaultConsumerConfig().Redelivery
	testCases := []struct {
		name string
		cfg  retry.Config
		want retry.Config
	}{
		{name: "empty uses default", cfg: retry.Config{}, want: def},
		{name: "unknown type uses default", cfg: retry.Config{Type: "linear"}, want: def},
		{name: "unlimited retries use default", cfg: fastRedelivery(0), want: def},
		{name: "bounded config is kept", cfg: fastRedelivery(4), want: fastRedelivery(4)},
		{name: "none is kept", cfg: retry.Config{Type: "none"}, want: retry.Config{Type: "none"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c := NewConsumer(&fakeConsumer{}, NewRegistry("labour", nil), idempotent.NewLocalService(time.Minute),
				ConsumerConfig{Redelivery: tc.cfg})
			assert.Equal(t, tc.want, c.cfg.Redelivery)
		})
	}
}

func TestConsumer_NoTopics(t *testing.T) {
	t.Parallel()
	fc := &fakeConsumer{}
	c := NewConsumer(fc, NewRegistry("labour", nil), idempotent.NewLocalService(time.Minute), ConsumerConfig{})
	require.NoError(t, c.Start(context.Background()))
	assert.Nil(t, fc.subscribed)
	assert.True(t, fc.closed)
	assert.False(t, c.IsHealthy())
}

func TestConsumer_Stop(t *testing.T) {
	t.Parallel()
	topic := Topic("labour", domain.EventTypeLabourBegun)
	fc := &fakeConsumer{assigned: []kafka.TopicPartition{{Topic: &topic}}}
	registry := NewRegistry("labour", map[string]HandlerFactory{
		domain.EventTypeLabourBegun: func(*Scope) Handler {
			return HandlerFunc(func(context.Context, domain.DomainEvent) error { return nil })
		},
	})
	c := NewConsumer(fc, registry, idempotent.NewLocalService(time.Minute), ConsumerConfig{PollTimeout: 20 * time.Millisecond})

	done := make(chan error, 1)
	go func() {
		done <- c.Start(context.Background())
	}()
	assert.Eventually(t, c.IsHealthy, time.Second, 5*time.Millisecond)
	c.Stop()
	c.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
	assert.False(t, c.IsHealthy())
	assert.True(t, fc.closed)
}

func TestRegistry(t *testing.T) {
	t.Parallel()
	noop := func(*Scope) Handler { return nil }
	r := NewRegistry("labour", map[string]HandlerFactory{
		domain.EventTypeSubscriberAdded: noop,
		domain.EventTypeLabourBegun:     noop,
	})
	assert.Equal(t, []string{"labour.labour.begun", "labour.subscriber.added"}, r.Topics())
	_, ok := r.Lookup("labour.labour.begun")
	assert.True(t, ok)
	_, ok = r.Lookup("labour.begun")
	assert.False(t, ok)
}
