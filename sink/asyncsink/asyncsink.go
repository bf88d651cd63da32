// Package asyncsink decouples a slow MetricsSink from the encode hot
// path: observations are queued to a small worker pool and dropped when
// the queue is full. Losing a sample under pressure beats blocking an
// encode.
package asyncsink

import (
	"sync"

	"github.com/unkn0wn-root/bincodec"
)

type Sink struct {
	inner bincodec.MetricsSink
	q     chan bincodec.Metrics
	wg    sync.WaitGroup
	once  sync.Once
}

var _ bincodec.MetricsSink = (*Sink)(nil)

func New(inner bincodec.MetricsSink, workers, qlen int) *Sink {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	s := &Sink{inner: inner, q: make(chan bincodec.Metrics, qlen)}
	s.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer s.wg.Done()
			for m := range s.q {
				s.inner.Observe(m)
			}
		}()
	}
	return s
}

// Close drains the queue and stops the workers. Safe to call multiple
// times; Observe after Close drops.
func (s *Sink) Close() {
	s.once.Do(func() {
		close(s.q)
		s.wg.Wait()
	})
}

func (s *Sink) Observe(m bincodec.Metrics) {
	defer func() {
		// send on closed queue: late Observe after Close, drop
		_ = recover()
	}()
	select {
	case s.q <- m:
	default: // drop
	}
}
