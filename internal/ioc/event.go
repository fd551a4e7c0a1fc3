package ioc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gitee.com/flycash/labour-tracker/internal/domain"
	"gitee.com/flycash/labour-tracker/internal/event"
	"gitee.com/flycash/labour-tracker/internal/event/handler"
	"gitee.com/flycash/labour-tracker/internal/pkg/idempotent"
	"gitee.com/flycash/labour-tracker/internal/pkg/mqx"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/ecodeclub/ekit/retry"
	"github.com/ecodeclub/mq-api"
	"github.com/ecodeclub/mq-api/memory"
	"github.com/gotomicro/ego/core/econf"
)

const modeMemory = "memory"

type EventConfig struct {
	// Mode is "kafka" or "memory". Memory keeps events inside the process.
	Mode            string               `yaml:"mode"`
	Prefix          string               `yaml:"prefix"`
	DeliveryTimeout time.Duration        `yaml:"deliveryTimeout"`
	Consumer        event.ConsumerConfig `yaml:"consumer"`
}

var (
	q          mq.MQ
	mqInitOnce sync.Once
)

func loadEventConfig() EventConfig {
	cfg := EventConfig{Mode: "kafka", Prefix: "labour-tracker"}
	if err := econf.UnmarshalKey("event", &cfg); err != nil {
		panic(err)
	}
	return cfg
}

// InitMQ builds the in-memory queue with one topic per event type.
func InitMQ() mq.MQ {
	mqInitOnce.Do(func() {
		cfg := loadEventConfig()
		qq := memory.NewMQ()
		for _, typ := range domain.EventTypes() {
			if err := qq.CreateTopic(context.Background(), event.Topic(cfg.Prefix, typ), 1); err != nil {
				panic(err)
			}
		}
		q = qq
	})
	return q
}

func InitEventProducer() event.Producer {
	cfg := loadEventConfig()
	if cfg.Mode == modeMemory {
		return event.NewMQProducer(InitMQ(), cfg.Prefix)
	}
	producer, err := kafka.NewProducer(kafkaProducerConfig())
	if err != nil {
		panic(fmt.Errorf("create kafka producer: %w", err))
	}
	return event.NewKafkaProducer(producer, cfg.Prefix, cfg.DeliveryTimeout)
}

func InitEventRegistry(notifier *handler.Notifier) *event.Registry {
	return event.NewRegistry(loadEventConfig().Prefix, notifier.Factories())
}

func InitEventConsumer(registry *event.Registry, idem idempotent.Service) *event.Consumer {
	cfg := loadEventConfig()
	var consumer mqx.Consumer
	if cfg.Mode == modeMemory {
		consumer = mqx.NewMemoryConsumer(InitMQ(), "labour-tracker")
	} else {
		consumer = newKafkaConsumer()
	}
	return event.NewConsumer(consumer, registry, idem, cfg.Consumer)
}

// newKafkaConsumer retries while the brokers are coming up.
func newKafkaConsumer() *kafka.Consumer {
	conf := kafkaConsumerConfig()
	const maxInterval = 10 * time.Second
	const maxRetries = 10
	strategy, err := retry.NewExponentialBackoffRetryStrategy(time.Second, maxInterval, maxRetries)
	if err != nil {
		panic(err)
	}
	for {
		consumer, er := kafka.NewConsumer(conf)
		if er == nil {
			return consumer
		}
		next, ok := strategy.Next()
		if !ok {
			panic(fmt.Errorf("create kafka consumer: %w", er))
		}
		time.Sleep(next)
	}
}

type kafkaConfig struct {
	Brokers  string `yaml:"brokers"`
	Producer struct {
		Acks        string `yaml:"acks"`
		Retries     int    `yaml:"retries"`
		Idempotence bool   `yaml:"idempotence"`
	} `yaml:"producer"`
	Consumer struct {
		GroupID         string `yaml:"groupId"`
		AutoOffsetReset string `yaml:"autoOffsetReset"`
	} `yaml:"consumer"`
}

func loadKafkaConfig() kafkaConfig {
	var cfg kafkaConfig
	cfg.Brokers = "localhost:9092"
	cfg.Producer.Acks = "all"
	cfg.Producer.Retries = 3
	cfg.Consumer.GroupID = "labour-tracker"
	cfg.Consumer.AutoOffsetReset = "earliest"
	if err := econf.UnmarshalKey("kafka", &cfg); err != nil {
		panic(err)
	}
	return cfg
}

func kafkaProducerConfig() *kafka.ConfigMap {
	cfg := loadKafkaConfig()
	return &kafka.ConfigMap{
		"bootstrap.servers":  cfg.Brokers,
		"acks":               cfg.Producer.Acks,
		"retries":            cfg.Producer.Retries,
		"enable.idempotence": cfg.Producer.Idempotence,
	}
}

// Offsets are committed by the event consumer, never automatically.
func kafkaConsumerConfig() *kafka.ConfigMap {
	cfg := loadKafkaConfig()
	return &kafka.ConfigMap{
		"bootstrap.servers":  cfg.Brokers,
		"group.id":           cfg.Consumer.GroupID,
		"auto.offset.reset":  cfg.Consumer.AutoOffsetReset,
		"enable.auto.commit": false,
	}
}
