package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/unkn0wn-root/bincodec"
)

// Options tune the cache client. Namespace, Store and Codec are
// required; others have sensible defaults.
type Options[V any] struct {
	// Required
	Namespace string // logical namespace to avoid collisions, e.g. "user", "order"
	Store     Store
	Codec     bincodec.Codec[V]

	Logger     bincodec.Logger // if nil, logging is disabled
	DefaultTTL time.Duration   // 0 => 10m
}

// Client stores values through its codec. Decode failures surface to
// the caller as-is; whether to drop the entry or retry elsewhere is
// caller policy, not the adapter's.
type Client[V any] struct {
	ns         string
	store      Store
	codec      bincodec.Codec[V]
	log        bincodec.Logger
	defaultTTL time.Duration
}

func New[V any](opts Options[V]) (*Client[V], error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("cache: store is required")
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("cache: codec is required")
	}
	if opts.Namespace == "" {
		return nil, fmt.Errorf("cache: namespace is required")
	}

	c := &Client[V]{
		ns:    opts.Namespace,
		store: opts.Store,
		codec: opts.Codec,
	}
	c.log = opts.Logger
	if c.log == nil {
		c.log = bincodec.NopLogger{}
	}
	c.defaultTTL = opts.DefaultTTL
	if c.defaultTTL == 0 {
		c.defaultTTL = 10 * time.Minute
	}
	return c, nil
}

// Set encodes value and stores the wire bytes verbatim. The returned
// metrics are the encode call's telemetry.
func (c *Client[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) (bincodec.Metrics, error) {
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	res, err := c.codec.Encode(value)
	if err != nil {
		return bincodec.Metrics{}, err
	}
	k := c.key(key)
	ok, err := c.store.Set(ctx, k, res.Bytes, ttl)
	if err != nil {
		return res.Metrics, err
	}
	if !ok {
		c.log.Debug("cache set rejected by store (pressure)", bincodec.Fields{"key": key})
	}
	return res.Metrics, nil
}

// Get retrieves and decodes a value. Raw stored bytes go to the codec
// unchanged.
func (c *Client[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	raw, ok, err := c.store.Get(ctx, c.key(key))
	if err != nil || !ok {
		return zero, false, err
	}
	v, err := c.codec.Decode(raw)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

func (c *Client[V]) Del(ctx context.Context, key string) error {
	return c.store.Del(ctx, c.key(key))
}

// GetMany retrieves many keys, pipelined when the store offers a batch
// fast path. Returns decoded hits and the keys that missed; a single
// undecodable entry fails the whole call rather than dropping silently.
func (c *Client[V]) GetMany(ctx context.Context, keys []string) (map[string]V, []string, error) {
	out := make(map[string]V, len(keys))
	if len(keys) == 0 {
		return out, nil, nil
	}

	if bs, ok := c.store.(BatchStore); ok {
		storageKeys := make([]string, len(keys))
		for i, k := range keys {
			storageKeys[i] = c.key(k)
		}
		raw, err := bs.GetMany(ctx, storageKeys)
		if err != nil {
			return nil, nil, err
		}
		var missing []string
		for _, k := range keys {
			b, hit := raw[c.key(k)]
			if !hit {
				missing = append(missing, k)
				continue
			}
			v, err := c.codec.Decode(b)
			if err != nil {
				return nil, nil, fmt.Errorf("cache: decode %q: %w", k, err)
			}
			out[k] = v
		}
		return out, missing, nil
	}

	var missing []string
	for _, k := range keys {
		v, ok, err := c.Get(ctx, k)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			missing = append(missing, k)
			continue
		}
		out[k] = v
	}
	return out, missing, nil
}

// SetMany encodes and stores many values with one TTL, pipelined when
// the store supports it. The per-key encode metrics are returned for
// the caller's telemetry sink.
func (c *Client[V]) SetMany(ctx context.Context, items map[string]V, ttl time.Duration) (map[string]bincodec.Metrics, error) {
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	stats := make(map[string]bincodec.Metrics, len(items))
	if len(items) == 0 {
		return stats, nil
	}

	encoded := make(map[string][]byte, len(items))
	for k, v := range items {
		res, err := c.codec.Encode(v)
		if err != nil {
			return nil, fmt.Errorf("cache: encode %q: %w", k, err)
		}
		encoded[c.key(k)] = res.Bytes
		stats[k] = res.Metrics
	}

	if bs, ok := c.store.(BatchStore); ok {
		if err := bs.SetMany(ctx, encoded, ttl); err != nil {
			return nil, err
		}
		return stats, nil
	}

	for sk, b := range encoded {
		if _, err := c.store.Set(ctx, sk, b, ttl); err != nil {
			return nil, err
		}
	}
	return stats, nil
}

func (c *Client[V]) Close(ctx context.Context) error {
	return c.store.Close(ctx)
}

func (c *Client[V]) key(userKey string) string {
	// isolate by namespace
	return c.ns + ":" + userKey
}
