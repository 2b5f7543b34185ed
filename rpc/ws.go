package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"

	coreevents "prizeboost/core/events"
)

const (
	wsWriteTimeout   = 10 * time.Second
	streamBacklogCap = 256
	streamBufferSize = 64
)

// StreamUpdate is the payload written to websocket subscribers for each
// executed boost.
type StreamUpdate struct {
	Sequence   uint64            `json:"sequence"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// BoostStream fans executed-boost events out to websocket subscribers. It
// implements events.Emitter so it can sit alongside the indexer and metrics
// collector on the engine's emitter chain. A bounded backlog lets reconnecting
// clients resume from a cursor without replaying the full history.
type BoostStream struct {
	mu      sync.Mutex
	seq     uint64
	backlog []StreamUpdate
	subs    map[uint64]chan StreamUpdate
	nextSub uint64
}

var _ coreevents.Emitter = (*BoostStream)(nil)

// NewBoostStream constructs an empty stream.
func NewBoostStream() *BoostStream {
	return &BoostStream{subs: make(map[uint64]chan StreamUpdate)}
}

// Emit records executed boosts and forwards them to live subscribers. Other
// event types are ignored; slow subscribers are dropped rather than allowed
// to block the engine.
func (b *BoostStream) Emit(evt coreevents.Event) {
	if b == nil || evt == nil || evt.EventType() != coreevents.TypeBoostExecuted {
		return
	}
	payload := evt.Event()
	if payload == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	update := StreamUpdate{Sequence: b.seq, Type: payload.Type, Attributes: payload.Copy().Attributes}
	b.backlog = append(b.backlog, update)
	if len(b.backlog) > streamBacklogCap {
		b.backlog = b.backlog[len(b.backlog)-streamBacklogCap:]
	}
	for id, ch := range b.subs {
		select {
		case ch <- update:
		default:
			close(ch)
			delete(b.subs, id)
		}
	}
}

// Subscribe registers a subscriber. The returned backlog holds updates with a
// sequence greater than the cursor; cancel must be called when the subscriber
// goes away.
func (b *BoostStream) Subscribe(cursor uint64) (<-chan StreamUpdate, func(), []StreamUpdate) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var backlog []StreamUpdate
	for _, update := range b.backlog {
		if update.Sequence > cursor {
			backlog = append(backlog, update)
		}
	}
	ch := make(chan StreamUpdate, streamBufferSize)
	id := b.nextSub
	b.nextSub++
	b.subs[id] = ch
	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			close(sub)
			delete(b.subs, id)
		}
	}
	return ch, cancel, backlog
}

func (s *Server) handleBoostStream(w http.ResponseWriter, r *http.Request) {
	if s == nil || s.stream == nil {
		http.Error(w, "stream unavailable", http.StatusServiceUnavailable)
		return
	}
	if !s.limiter.allow(clientAddress(r)) {
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}
	cursor := parseCursor(r.URL.Query().Get("cursor"))
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")
	if err := s.streamBoosts(r.Context(), conn, cursor); err != nil {
		if status := websocket.CloseStatus(err); status == -1 {
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func (s *Server) streamBoosts(ctx context.Context, conn *websocket.Conn, cursor uint64) error {
	updates, cancel, backlog := s.stream.Subscribe(cursor)
	defer cancel()

	for _, update := range backlog {
		if err := writeStreamUpdate(ctx, conn, update); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if err := writeStreamUpdate(ctx, conn, update); err != nil {
				return err
			}
		}
	}
}

func writeStreamUpdate(ctx context.Context, conn *websocket.Conn, update StreamUpdate) error {
	data, err := json.Marshal(update)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}

func parseCursor(raw string) uint64 {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0
	}
	cursor, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil {
		return 0
	}
	return cursor
}
