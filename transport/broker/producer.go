package broker

import (
	"context"
	"fmt"

	kafka "github.com/segmentio/kafka-go"

	"github.com/unkn0wn-root/bincodec"
)

type ProducerOptions[V any] struct {
	// Required
	Writer Writer
	Codec  bincodec.Codec[V]

	Logger bincodec.Logger // if nil, logging is disabled
}

// Producer publishes encoded values. Retries, batching and delivery
// guarantees are the writer's (and its caller's) concern.
type Producer[V any] struct {
	w     Writer
	codec bincodec.Codec[V]
	log   bincodec.Logger
}

func NewProducer[V any](opts ProducerOptions[V]) (*Producer[V], error) {
	if opts.Writer == nil {
		return nil, fmt.Errorf("broker: writer is required")
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("broker: codec is required")
	}
	p := &Producer[V]{w: opts.Writer, codec: opts.Codec}
	p.log = opts.Logger
	if p.log == nil {
		p.log = bincodec.NopLogger{}
	}
	return p, nil
}

// Publish encodes value and writes it under key. Encode failures are
// returned before anything touches the broker.
func (p *Producer[V]) Publish(ctx context.Context, key string, value V) (bincodec.Metrics, error) {
	res, err := p.codec.Encode(value)
	if err != nil {
		return bincodec.Metrics{}, err
	}

	msg := kafka.Message{
		Key:     []byte(key),
		Value:   res.Bytes,
		Headers: metricsHeaders(res.Metrics),
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		p.log.Error("publish failed", bincodec.Fields{"key": key, "err": err})
		return res.Metrics, err
	}
	return res.Metrics, nil
}

func (p *Producer[V]) Close() error { return p.w.Close() }
