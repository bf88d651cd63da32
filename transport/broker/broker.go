// Package broker is the message-broker adapter. One codec per
// producer/consumer pair; payload bytes stay opaque to the broker, and
// the format name plus encode metrics ride in message headers for
// downstream observability. Producer and consumer must agree on the
// format out-of-band (static configuration), or both run with tagged
// payloads.
package broker

import (
	"context"
	"strconv"

	kafka "github.com/segmentio/kafka-go"

	"github.com/unkn0wn-root/bincodec"
)

// Header keys attached to every published message. The names mirror
// the upstream serializer configuration keys.
const (
	HeaderFormat       = "serialization.format"
	HeaderFallback     = "serialization.fallback"
	HeaderOriginalSize = "serialization.original_size"
	HeaderEncodedSize  = "serialization.encoded_size"
	HeaderRatio        = "serialization.ratio"
)

// Writer is the producer-side seam over kafka.Writer.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Reader is the consumer-side seam over kafka.Reader.
type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// NewKafkaWriter builds a kafka.Writer for the given topic. The
// returned writer satisfies Writer.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.Hash{},
	}
}

// NewKafkaReader builds a kafka.Reader for the given consumer group.
// The returned reader satisfies Reader.
func NewKafkaReader(brokers []string, groupID, topic string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   topic,
	})
}

func metricsHeaders(m bincodec.Metrics) []kafka.Header {
	return []kafka.Header{
		{Key: HeaderFormat, Value: []byte(m.Format)},
		{Key: HeaderFallback, Value: []byte(strconv.FormatBool(m.Fallback))},
		{Key: HeaderOriginalSize, Value: []byte(strconv.Itoa(m.OriginalSize))},
		{Key: HeaderEncodedSize, Value: []byte(strconv.Itoa(m.EncodedSize))},
		{Key: HeaderRatio, Value: []byte(strconv.FormatFloat(m.CompressionRatio, 'f', -1, 64))},
	}
}
