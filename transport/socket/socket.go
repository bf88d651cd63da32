// Package socket is the real-time channel adapter: a WebSocket server
// that frames encoded payloads. Binary-format payloads go out as binary
// frames; Text-format (including post-fallback) payloads as text
// frames. The frame ceiling may be stricter than the codec's size
// limit but never looser.
package socket

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/unkn0wn-root/bincodec"
)

const defaultMaxFrameSize = 1 << 20

// Handler receives each inbound value after decode.
type Handler[V any] func(ctx context.Context, v V)

type Options[V any] struct {
	// Required
	Codec bincodec.Codec[V]

	// OnMessage is invoked for every decoded inbound frame. Optional;
	// without it inbound frames are drained and dropped.
	OnMessage Handler[V]

	// MaxFrameSize caps both inbound and outbound frames in bytes.
	// 0 => 1 MiB. Keep it consistent with the codec's MaxEncodedSize.
	MaxFrameSize int64

	// Logger: if nil, logging is disabled.
	Logger bincodec.Logger

	// CheckOrigin overrides the upgrader's origin policy.
	// nil => gorilla's default (same origin).
	CheckOrigin func(r *http.Request) bool
}

// Server upgrades HTTP connections and fans encoded values out to every
// connected peer. Connection retry/backoff is the peers' concern.
type Server[V any] struct {
	codec    bincodec.Codec[V]
	onMsg    Handler[V]
	maxFrame int64
	log      bincodec.Logger
	up       websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func NewServer[V any](opts Options[V]) (*Server[V], error) {
	if opts.Codec == nil {
		return nil, fmt.Errorf("socket: codec is required")
	}
	s := &Server[V]{
		codec:    opts.Codec,
		onMsg:    opts.OnMessage,
		maxFrame: opts.MaxFrameSize,
		log:      opts.Logger,
		conns:    make(map[*websocket.Conn]struct{}),
	}
	if s.maxFrame <= 0 {
		s.maxFrame = defaultMaxFrameSize
	}
	if s.log == nil {
		s.log = bincodec.NopLogger{}
	}
	if opts.CheckOrigin != nil {
		s.up.CheckOrigin = opts.CheckOrigin
	}
	return s, nil
}

// ServeHTTP upgrades the request and pumps inbound frames until the
// peer goes away.
func (s *Server[V]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.up.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", bincodec.Fields{"err": err})
		return
	}
	conn.SetReadLimit(s.maxFrame)

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = conn.Close()
	}()

	ctx := r.Context()
	for {
		// frame type is framing metadata only; the codec decides what
		// the bytes are
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		v, err := s.codec.Decode(data)
		if err != nil {
			s.log.Warn("inbound frame decode failed", bincodec.Fields{"err": err})
			continue
		}
		if s.onMsg != nil {
			s.onMsg(ctx, v)
		}
	}
}

// Broadcast encodes value once and writes the frame to every connected
// peer. Peers whose write fails are dropped.
func (s *Server[V]) Broadcast(v V) (bincodec.Metrics, error) {
	res, err := s.codec.Encode(v)
	if err != nil {
		return bincodec.Metrics{}, err
	}
	if int64(len(res.Bytes)) > s.maxFrame {
		return res.Metrics, &bincodec.SizeExceededError{Actual: len(res.Bytes), Limit: int(s.maxFrame)}
	}

	frameType := websocket.BinaryMessage
	if res.Textual() {
		frameType = websocket.TextMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		if err := conn.WriteMessage(frameType, res.Bytes); err != nil {
			s.log.Debug("peer write failed; dropping connection", bincodec.Fields{"err": err})
			delete(s.conns, conn)
			_ = conn.Close()
		}
	}
	return res.Metrics, nil
}

// Peers returns the number of connected peers.
func (s *Server[V]) Peers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Close drops every connection.
func (s *Server[V]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.conns = make(map[*websocket.Conn]struct{})
	return nil
}
