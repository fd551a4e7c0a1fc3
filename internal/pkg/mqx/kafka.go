package mqx

import (
	"errors"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// Consumer is the part of *kafka.Consumer the event consumer uses.
type Consumer interface {
	SubscribeTopics(topics []string, rebalanceCb kafka.RebalanceCb) error
	ReadMessage(timeout time.Duration) (*kafka.Message, error)
	CommitMessage(m *kafka.Message) ([]kafka.TopicPartition, error)
	Seek(partition kafka.TopicPartition, ignoredTimeoutMs int) error
	Assignment() ([]kafka.TopicPartition, error)
	Close() error
}

// Producer is the part of *kafka.Producer the event producer uses.
type Producer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	Flush(timeoutMs int) int
	Close()
}

var (
	_ Consumer = (*kafka.Consumer)(nil)
	_ Producer = (*kafka.Producer)(nil)
)

// IsTimeout reports whether err is the poll timeout ReadMessage returns on an idle topic.
func IsTimeout(err error) bool {
	var kErr kafka.Error
	return errors.As(err, &kErr) && kErr.Code() == kafka.ErrTimedOut
}
