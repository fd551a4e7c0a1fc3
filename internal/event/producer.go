package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gitee.com/flycash/labour-tracker/internal/domain"
	"gitee.com/flycash/labour-tracker/internal/pkg/mqx"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/gotomicro/ego/core/elog"
	"github.com/hashicorp/go-multierror"
)

// Producer publishes domain events after the aggregate that raised them is stored.
// Publishing is fire-and-forget: failures are logged, never returned, and the
// stored state is not rolled back.
//
//go:generate mockgen -source=./producer.go -destination=./mocks/producer.mock.go -package=evtmocks Producer
type Producer interface {
	Publish(ctx context.Context, evt domain.DomainEvent)
	PublishBatch(ctx context.Context, evts []domain.DomainEvent)
}

const defaultDeliveryTimeout = 10 * time.Second

var errDeliveryTimeout = errors.New("timed out waiting for delivery report")

type KafkaProducer struct {
	producer        mqx.Producer
	prefix          string
	deliveryTimeout time.Duration
	logger          *elog.Component
}

func NewKafkaProducer(producer mqx.Producer, prefix string, deliveryTimeout time.Duration) *KafkaProducer {
	if deliveryTimeout <= 0 {
		deliveryTimeout = defaultDeliveryTimeout
	}
	return &KafkaProducer{
		producer:        producer,
		prefix:          prefix,
		deliveryTimeout: deliveryTimeout,
		logger:          elog.DefaultLogger,
	}
}

func (p *KafkaProducer) Publish(ctx context.Context, evt domain.DomainEvent) {
	p.PublishBatch(ctx, []domain.DomainEvent{evt})
}

func (p *KafkaProducer) PublishBatch(ctx context.Context, evts []domain.DomainEvent) {
	if len(evts) == 0 {
		return
	}
	deliveries := make(chan kafka.Event, len(evts))
	var err error
	pending := 0
	for _, evt := range evts {
		msg, er := p.message(evt)
		if er == nil {
			er = p.producer.Produce(msg, deliveries)
		}
		if er != nil {
			err = multierror.Append(err, fmt.Errorf("event %s (%s): %w", evt.ID, evt.Type, er))
			continue
		}
		pending++
	}
	if er := p.awaitDeliveries(ctx, deliveries, pending); er != nil {
		err = multierror.Append(err, er)
	}
	if err != nil {
		logPublishFailure(p.logger, evts, err)
	}
}

func (p *KafkaProducer) awaitDeliveries(ctx context.Context, deliveries chan kafka.Event, pending int) error {
	var err error
	timer := time.NewTimer(p.deliveryTimeout)
	defer timer.Stop()
	for pending > 0 {
		select {
		case e := <-deliveries:
			pending--
			m, ok := e.(*kafka.Message)
			if !ok {
				continue
			}
			if m.TopicPartition.Error != nil {
				err = multierror.Append(err, fmt.Errorf("deliver to %s: %w", topicOf(m), m.TopicPartition.Error))
			}
		case <-timer.C:
			return multierror.Append(err, fmt.Errorf("%w: %d pending", errDeliveryTimeout, pending))
		case <-ctx.Done():
			return multierror.Append(err, ctx.Err())
		}
	}
	return err
}

func (p *KafkaProducer) message(evt domain.DomainEvent) (*kafka.Message, error) {
	val, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}
	topic := Topic(p.prefix, evt.Type)
	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		// events of one labour land on one partition and keep their order
		Key:   []byte(partitionKey(evt)),
		Value: val,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(evt.ID)},
			{Key: "event_type", Value: []byte(evt.Type)},
		},
	}, nil
}

func (p *KafkaProducer) Close() {
	const flushTimeoutMs = 5000
	if left := p.producer.Flush(flushTimeoutMs); left > 0 {
		p.logger.Warn("kafka producer closed with undelivered messages", elog.Int("count", left))
	}
	p.producer.Close()
}

func partitionKey(evt domain.DomainEvent) string {
	if id := evt.DataString("labour_id"); id != "" {
		return id
	}
	return evt.ID
}

func topicOf(m *kafka.Message) string {
	if m.TopicPartition.Topic == nil {
		return ""
	}
	return *m.TopicPartition.Topic
}

func logPublishFailure(logger *elog.Component, evts []domain.DomainEvent, err error) {
	ids := make([]string, 0, len(evts))
	for _, evt := range evts {
		ids = append(ids, evt.ID)
	}
	logger.Error("publish domain events failed",
		elog.String("severity", "critical"),
		elog.Any("eventIDs", ids),
		elog.FieldErr(err))
}
