package event

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"gitee.com/flycash/labour-tracker/internal/domain"
	"github.com/ecodeclub/mq-api"
	"github.com/gotomicro/ego/core/elog"
	"github.com/hashicorp/go-multierror"
)

// MQProducer publishes through mq-api. Topics must exist before the first publish.
type MQProducer struct {
	q         mq.MQ
	prefix    string
	mu        sync.Mutex
	producers map[string]mq.Producer
	logger    *elog.Component
}

func NewMQProducer(q mq.MQ, prefix string) *MQProducer {
	return &MQProducer{
		q:         q,
		prefix:    prefix,
		producers: make(map[string]mq.Producer),
		logger:    elog.DefaultLogger,
	}
}

func (p *MQProducer) Publish(ctx context.Context, evt domain.DomainEvent) {
	p.PublishBatch(ctx, []domain.DomainEvent{evt})
}

func (p *MQProducer) PublishBatch(ctx context.Context, evts []domain.DomainEvent) {
	var err error
	for _, evt := range evts {
		if er := p.publish(ctx, evt); er != nil {
			err = multierror.Append(err, fmt.Errorf("event %s (%s): %w", evt.ID, evt.Type, er))
		}
	}
	if err != nil {
		logPublishFailure(p.logger, evts, err)
	}
}

func (p *MQProducer) publish(ctx context.Context, evt domain.DomainEvent) error {
	val, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	topic := Topic(p.prefix, evt.Type)
	producer, err := p.producer(topic)
	if err != nil {
		return err
	}
	_, err = producer.Produce(ctx, &mq.Message{
		Topic: topic,
		Key:   []byte(partitionKey(evt)),
		Value: val,
	})
	return err
}

func (p *MQProducer) producer(topic string) (mq.Producer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if producer, ok := p.producers[topic]; ok {
		return producer, nil
	}
	producer, err := p.q.Producer(topic)
	if err != nil {
		return nil, err
	}
	p.producers[topic] = producer
	return producer, nil
}
