package mqx

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/ecodeclub/mq-api"
)

// MemoryConsumer reads mq-api topics through the Consumer interface so the
// event consumer runs unchanged without a broker. Offsets are assigned per
// partition on read. Uncommitted messages are kept so Seek can deliver them again.
type MemoryConsumer struct {
	q     mq.MQ
	group string

	msgs   chan *kafka.Message
	cancel context.CancelFunc

	mu          sync.Mutex
	topics      []string
	offsets     map[partitionKey]kafka.Offset
	uncommitted map[partitionKey][]*kafka.Message
	redeliver   []*kafka.Message
}

type partitionKey struct {
	topic     string
	partition int32
}

func keyOf(tp kafka.TopicPartition) partitionKey {
	return partitionKey{topic: *tp.Topic, partition: tp.Partition}
}

func NewMemoryConsumer(q mq.MQ, group string) *MemoryConsumer {
	return &MemoryConsumer{
		q:           q,
		group:       group,
		msgs:        make(chan *kafka.Message, 64),
		offsets:     make(map[partitionKey]kafka.Offset),
		uncommitted: make(map[partitionKey][]*kafka.Message),
	}
}

func (c *MemoryConsumer) SubscribeTopics(topics []string, _ kafka.RebalanceCb) error {
	ctx, cancel := context.WithCancel(context.Background())
	chans := make(map[string]<-chan *mq.Message, len(topics))
	for _, topic := range topics {
		consumer, err := c.q.Consumer(topic, c.group)
		if err != nil {
			cancel()
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
		ch, err := consumer.ConsumeChan(ctx)
		if err != nil {
			cancel()
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
		chans[topic] = ch
	}
	c.mu.Lock()
	c.topics = append(c.topics, topics...)
	c.cancel = cancel
	c.mu.Unlock()
	for topic, ch := range chans {
		go c.forward(ctx, topic, ch)
	}
	return nil
}

func (c *MemoryConsumer) forward(ctx context.Context, topic string, ch <-chan *mq.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			c.deliver(ctx, topic, msg)
		}
	}
}

func (c *MemoryConsumer) deliver(ctx context.Context, topic string, msg *mq.Message) {
	key := partitionKey{topic: topic, partition: int32(msg.Partition)}
	c.mu.Lock()
	offset := c.offsets[key]
	c.offsets[key] = offset + 1
	c.mu.Unlock()

	km := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: key.partition, Offset: offset},
		Key:            msg.Key,
		Value:          msg.Value,
	}
	select {
	case c.msgs <- km:
	case <-ctx.Done():
	}
}

// ReadMessage returns a kafka.ErrTimedOut error when nothing arrives in time.
func (c *MemoryConsumer) ReadMessage(timeout time.Duration) (*kafka.Message, error) {
	c.mu.Lock()
	if len(c.redeliver) > 0 {
		msg := c.redeliver[0]
		c.redeliver = c.redeliver[1:]
		c.track(msg)
		c.mu.Unlock()
		return msg, nil
	}
	c.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case msg := <-c.msgs:
		c.mu.Lock()
		c.track(msg)
		c.mu.Unlock()
		return msg, nil
	case <-timer.C:
		return nil, kafka.NewError(kafka.ErrTimedOut, "memory consumer: no message", false)
	}
}

// track must hold mu.
func (c *MemoryConsumer) track(msg *kafka.Message) {
	key := keyOf(msg.TopicPartition)
	c.uncommitted[key] = append(c.uncommitted[key], msg)
}

func (c *MemoryConsumer) CommitMessage(m *kafka.Message) ([]kafka.TopicPartition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := keyOf(m.TopicPartition)
	pending := c.uncommitted[key]
	kept := pending[:0]
	for _, msg := range pending {
		if msg.TopicPartition.Offset > m.TopicPartition.Offset {
			kept = append(kept, msg)
		}
	}
	c.uncommitted[key] = kept
	next := m.TopicPartition
	next.Offset++
	return []kafka.TopicPartition{next}, nil
}

// Seek queues the uncommitted messages from partition.Offset on for redelivery.
func (c *MemoryConsumer) Seek(partition kafka.TopicPartition, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := keyOf(partition)
	pending := c.uncommitted[key]
	kept := make([]*kafka.Message, 0, len(pending))
	again := make([]*kafka.Message, 0, len(pending))
	for _, msg := range pending {
		if msg.TopicPartition.Offset >= partition.Offset {
			again = append(again, msg)
			continue
		}
		kept = append(kept, msg)
	}
	c.uncommitted[key] = kept
	c.redeliver = append(again, c.redeliver...)
	return nil
}

func (c *MemoryConsumer) Assignment() ([]kafka.TopicPartition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res := make([]kafka.TopicPartition, 0, len(c.topics))
	for i := range c.topics {
		res = append(res, kafka.TopicPartition{Topic: &c.topics[i]})
	}
	return res, nil
}

func (c *MemoryConsumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

var _ Consumer = (*MemoryConsumer)(nil)
