package broker

import (
	"context"
	"fmt"

	"github.com/unkn0wn-root/bincodec"
)

type ConsumerOptions[V any] struct {
	// Required
	Reader Reader
	Codec  bincodec.Codec[V]

	Logger bincodec.Logger // if nil, logging is disabled
}

// Delivery is one decoded message plus the producer-side metadata that
// rode in its headers.
type Delivery[V any] struct {
	Key   string
	Value V

	// ProducerFormat is the format name the producer attached, empty
	// when the header is absent. Informational; the decode itself runs
	// under this consumer's configured format.
	ProducerFormat string

	Partition int
	Offset    int64
}

// Consumer reads and decodes messages. A DecodeError surfaces to the
// caller untouched; dead-lettering or skipping is caller policy.
type Consumer[V any] struct {
	r     Reader
	codec bincodec.Codec[V]
	log   bincodec.Logger
}

func NewConsumer[V any](opts ConsumerOptions[V]) (*Consumer[V], error) {
	if opts.Reader == nil {
		return nil, fmt.Errorf("broker: reader is required")
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("broker: codec is required")
	}
	c := &Consumer[V]{r: opts.Reader, codec: opts.Codec}
	c.log = opts.Logger
	if c.log == nil {
		c.log = bincodec.NopLogger{}
	}
	return c, nil
}

// Fetch blocks for the next message and decodes its payload.
func (c *Consumer[V]) Fetch(ctx context.Context) (Delivery[V], error) {
	msg, err := c.r.ReadMessage(ctx)
	if err != nil {
		return Delivery[V]{}, err
	}

	d := Delivery[V]{
		Key:       string(msg.Key),
		Partition: msg.Partition,
		Offset:    msg.Offset,
	}
	for _, h := range msg.Headers {
		if h.Key == HeaderFormat {
			d.ProducerFormat = string(h.Value)
			break
		}
	}

	v, err := c.codec.Decode(msg.Value)
	if err != nil {
		c.log.Warn("message decode failed", bincodec.Fields{
			"key":       d.Key,
			"partition": d.Partition,
			"offset":    d.Offset,
			"err":       err,
		})
		return d, err
	}
	d.Value = v
	return d, nil
}

func (c *Consumer[V]) Close() error { return c.r.Close() }
