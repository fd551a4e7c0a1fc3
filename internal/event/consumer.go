package event

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"gitee.com/flycash/labour-tracker/internal/domain"
	"gitee.com/flycash/labour-tracker/internal/pkg/idempotent"
	"gitee.com/flycash/labour-tracker/internal/pkg/mqx"
	"gitee.com/flycash/labour-tracker/internal/pkg/retry"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	ekitretry "github.com/ecodeclub/ekit/retry"
	"github.com/gotomicro/ego/core/elog"
)

type ConsumerConfig struct {
	BatchSize      int           `yaml:"batchSize"`
	PollTimeout    time.Duration `yaml:"pollTimeout"`
	HealthInterval time.Duration `yaml:"healthInterval"`
	// Redelivery paces and bounds how often a failing message is read again.
	Redelivery retry.Config `yaml:"redelivery"`
}

func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		BatchSize:      10,
		PollTimeout:    time.Second,
		HealthInterval: 30 * time.Second,
		Redelivery: retry.Config{
			Type: "exponential",
			ExponentialBackoff: &retry.ExponentialBackoffConfig{
				InitialInterval: 500,
				MaxInterval:     30000,
				MaxRetries:      5,
			},
		},
	}
}

// Consumer feeds domain events from Kafka to the registered handlers.
//
// Each message is committed on its own once its handler succeeded. Messages
// that cannot be decoded or have no handler are committed and skipped. When a
// handler fails or panics the partition is rewound to the failed message after
// the Redelivery backoff, the rest of the batch on that partition is dropped,
// and the message is read again on the next poll. Once Redelivery gives up the
// message is committed and logged as lost. Event ids already marked processed
// are committed without running the handler again.
type Consumer struct {
	consumer mqx.Consumer
	registry *Registry
	idem     idempotent.Service
	cfg      ConsumerConfig
	logger   *elog.Component
	// redelivery strategies of messages that failed, only touched by the Start loop
	redeliveries map[messageKey]ekitretry.Strategy

	stopped   atomic.Bool
	running   atomic.Bool
	closeOnce sync.Once
}

func NewConsumer(consumer mqx.Consumer, registry *Registry, idem idempotent.Service, cfg ConsumerConfig) *Consumer {
	def := DefaultConsumerConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = def.PollTimeout
	}
	if cfg.HealthInterval <= 0 {
		cfg.HealthInterval = def.HealthInterval
	}
	logger := elog.DefaultLogger.With(elog.String("component", "event_consumer"))
	if cfg.Redelivery.Type == "" {
		cfg.Redelivery = def.Redelivery
	}
	if _, err := retry.NewRetry(cfg.Redelivery); err != nil {
		logger.Warn("invalid redelivery config, using default", elog.FieldErr(err))
		cfg.Redelivery = def.Redelivery
	}
	if !bounded(cfg.Redelivery) {
		logger.Warn("redelivery config has no retry limit, using default")
		cfg.Redelivery = def.Redelivery
	}
	return &Consumer{
		consumer:     consumer,
		registry:     registry,
		idem:         idem,
		cfg:          cfg,
		logger:       logger,
		redeliveries: make(map[messageKey]ekitretry.Strategy),
	}
}

// Start blocks until ctx is done or Stop is called.
func (c *Consumer) Start(ctx context.Context) error {
	topics := c.registry.Topics()
	if len(topics) == 0 {
		c.logger.Warn("no topics registered, consumer not started")
		c.stopped.Store(true)
		c.close()
		return nil
	}
	c.running.Store(true)
	defer func() {
		c.stopped.Store(true)
		c.running.Store(false)
		c.close()
	}()
	if err := c.consumer.SubscribeTopics(topics, nil); err != nil {
		c.stopped.Store(true)
		return err
	}
	c.logger.Info("consumer subscribed", elog.Any("topics", topics))

	go c.watchHealth(ctx)

	for !c.stopped.Load() && ctx.Err() == nil {
		batch, err := c.poll()
		if err != nil {
			c.logger.Error("poll kafka failed", elog.FieldErr(err))
		}
		if len(batch) > 0 {
			c.handleBatch(ctx, batch)
		}
	}
	return nil
}

// Stop asks a running Start to return. Safe to call more than once.
func (c *Consumer) Stop() {
	if c.stopped.Swap(true) {
		return
	}
	if !c.running.Load() {
		c.close()
	}
}

// IsHealthy is false once stopped or while the consumer holds no partitions.
func (c *Consumer) IsHealthy() bool {
	if c.stopped.Load() {
		return false
	}
	assigned, err := c.consumer.Assignment()
	return err == nil && len(assigned) > 0
}

func (c *Consumer) close() {
	c.closeOnce.Do(func() {
		if err := c.consumer.Close(); err != nil {
			c.logger.Error("close kafka consumer failed", elog.FieldErr(err))
		}
	})
}

func (c *Consumer) watchHealth(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.HealthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.stopped.Load() {
				return
			}
			if !c.IsHealthy() {
				c.logger.Warn("consumer has no partition assignment")
			}
		}
	}
}

// poll reads up to BatchSize messages within one PollTimeout.
func (c *Consumer) poll() ([]*kafka.Message, error) {
	batch := make([]*kafka.Message, 0, c.cfg.BatchSize)
	deadline := time.Now().Add(c.cfg.PollTimeout)
	for len(batch) < c.cfg.BatchSize {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		msg, err := c.consumer.ReadMessage(remaining)
		if err != nil {
			if mqx.IsTimeout(err) {
				break
			}
			return batch, err
		}
		batch = append(batch, msg)
	}
	return batch, nil
}

func (c *Consumer) handleBatch(ctx context.Context, batch []*kafka.Message) {
	scope := NewScope(c.logger)
	scope.Logger.Debug("handling batch", elog.Int("size", len(batch)))
	// partitions rewound in this batch
	rewound := make(map[topicPartition]struct{})
	for _, msg := range batch {
		key := partitionOf(msg)
		if _, ok := rewound[key]; ok {
			continue
		}
		if !c.handleMessage(ctx, scope, msg) {
			c.rewind(scope, msg)
			rewound[key] = struct{}{}
		}
	}
}

// handleMessage reports false when the message has to be read again.
func (c *Consumer) handleMessage(ctx context.Context, scope *Scope, msg *kafka.Message) bool {
	topic := topicOf(msg)
	logger := scope.Logger.With(
		elog.String("topic", topic),
		elog.Any("partition", msg.TopicPartition.Partition),
		elog.Any("offset", msg.TopicPartition.Offset))

	var evt domain.DomainEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		logger.Warn("undecodable message skipped", elog.FieldErr(err))
		c.commit(logger, msg)
		return true
	}
	logger = logger.With(elog.String("eventID", evt.ID), elog.String("eventType", evt.Type))

	factory, ok := c.registry.Lookup(topic)
	if !ok {
		logger.Warn("no handler for topic, message skipped")
		c.commit(logger, msg)
		return true
	}

	done, err := c.idem.Processed(ctx, evt.ID)
	if err != nil {
		logger.Warn("idempotency check failed, handling anyway", elog.FieldErr(err))
	}
	if done {
		logger.Info("event already processed")
		c.commit(logger, msg)
		return true
	}

	if err = c.dispatch(ctx, scope, factory, evt); err != nil {
		return c.redeliver(ctx, logger, msg, err)
	}
	delete(c.redeliveries, keyOf(msg))
	if err = c.idem.MarkProcessed(ctx, evt.ID); err != nil {
		logger.Warn("mark event processed failed", elog.FieldErr(err))
	}
	c.commit(logger, msg)
	return true
}

// dispatch turns a handler panic into an error so the message follows the redelivery path.
func (c *Consumer) dispatch(ctx context.Context, scope *Scope, factory HandlerFactory, evt domain.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return factory(scope).Handle(ctx, evt)
}

// redeliver waits out the backoff and reports false while the message has
// attempts left. Afterwards the message is committed and reported handled.
func (c *Consumer) redeliver(ctx context.Context, logger *elog.Component, msg *kafka.Message, cause error) bool {
	strategy, ok := c.redeliveries[keyOf(msg)]
	if !ok {
		// validated in NewConsumer
		strategy, _ = retry.NewRetry(c.cfg.Redelivery)
		c.redeliveries[keyOf(msg)] = strategy
	}
	next, ok := strategy.Next()
	if !ok {
		delete(c.redeliveries, keyOf(msg))
		logger.Error("handle event failed, giving up on message",
			elog.String("severity", "critical"), elog.FieldErr(cause))
		c.commit(logger, msg)
		return true
	}
	logger.Error("handle event failed, message will be redelivered",
		elog.Any("backoff", next), elog.FieldErr(cause))
	timer := time.NewTimer(next)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
	return false
}

func (c *Consumer) commit(logger *elog.Component, msg *kafka.Message) {
	if _, err := c.consumer.CommitMessage(msg); err != nil {
		logger.Error("commit message failed", elog.FieldErr(err))
	}
}

func (c *Consumer) rewind(scope *Scope, msg *kafka.Message) {
	if err := c.consumer.Seek(msg.TopicPartition, 0); err != nil {
		scope.Logger.Error("rewind partition failed",
			elog.String("topic", topicOf(msg)),
			elog.Any("partition", msg.TopicPartition.Partition),
			elog.FieldErr(err))
	}
}

type topicPartition struct {
	topic     string
	partition int32
}

func partitionOf(msg *kafka.Message) topicPartition {
	return topicPartition{topic: topicOf(msg), partition: msg.TopicPartition.Partition}
}

// bounded is false for strategies that would redeliver a message forever.
func bounded(cfg retry.Config) bool {
	switch {
	case cfg.FixedInterval != nil && cfg.Type == "fixed":
		return cfg.FixedInterval.MaxRetries > 0
	case cfg.ExponentialBackoff != nil && cfg.Type == "exponential":
		return cfg.ExponentialBackoff.MaxRetries > 0
	}
	return true
}

type messageKey struct {
	topicPartition
	offset kafka.Offset
}

func keyOf(msg *kafka.Message) messageKey {
	return messageKey{topicPartition: partitionOf(msg), offset: msg.TopicPartition.Offset}
}
