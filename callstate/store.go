// Package callstate keeps the live state of every outbound call, keyed by the
// vendor-issued call SID. It is the only shared mutable state between the
// call-placement flow and the webhook flow.
package callstate

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Status of one outbound call.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether s is a final status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Speaker tags a transcript line.
type Speaker string

const (
	SpeakerAssistant    Speaker = "assistant"
	SpeakerCounterparty Speaker = "counterparty"
)

// TranscriptLine is one spoken or transcribed line of the call.
type TranscriptLine struct {
	Speaker Speaker   `json:"speaker"`
	Text    string    `json:"text"`
	At      time.Time `json:"at"`
}

// Context is the live state of one outbound reservation call. Reservation
// fields are fixed at registration; only the transcript and status change.
type Context struct {
	RequestID       string `json:"requestId"`
	ChannelID       string `json:"channelId"` // originating chat channel
	RestaurantPhone string `json:"restaurantPhone"`
	PartySize       int    `json:"partySize"`
	ReservationTime time.Time `json:"reservationTime"`
	CustomerName    string    `json:"customerName"`
	SpecialRequests string    `json:"specialRequests,omitempty"`

	Transcript []TranscriptLine `json:"transcript"`
	Status     Status           `json:"status"`
}

var (
	// ErrDuplicateCallID means a record already exists for the call SID.
	ErrDuplicateCallID = errors.New("call ID already registered")
	// ErrUnknownCallID means no record exists for the call SID.
	ErrUnknownCallID = errors.New("unknown call ID")
)

const subscriberBuffer = 64

type record struct {
	ctx    *Context
	turnMu sync.Mutex
	subs   map[chan TranscriptLine]struct{}
}

// Store is a concurrency-safe registry of call contexts. The in-memory map is
// authoritative; when a Redis client is supplied, per-call metadata and the
// transcript are mirrored there for cross-process observability.
type Store struct {
	mu    sync.RWMutex
	calls map[string]*record
	redis *redis.Client
	ttl   time.Duration
}

// NewStore creates a store. rdb may be nil to run memory-only.
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{
		calls: make(map[string]*record),
		redis: rdb,
		ttl:   ttl,
	}
}

// DialRedis connects to Redis, returning nil if it is unreachable so callers
// can continue memory-only.
func DialRedis(addr, password string) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil
	}
	return client
}

// Register associates a context with a call SID. Fails with ErrDuplicateCallID
// if the SID is already present.
func (s *Store) Register(ctx context.Context, callSID string, c *Context) error {
	s.mu.Lock()
	if _, exists := s.calls[callSID]; exists {
		s.mu.Unlock()
		return ErrDuplicateCallID
	}
	if c.Status == "" {
		c.Status = StatusInProgress
	}
	s.calls[callSID] = &record{
		ctx:  c,
		subs: make(map[chan TranscriptLine]struct{}),
	}
	s.mu.Unlock()

	if s.redis != nil {
		s.redis.HSet(ctx, "call:"+callSID, map[string]interface{}{
			"request_id":       c.RequestID,
			"channel_id":       c.ChannelID,
			"restaurant_phone": c.RestaurantPhone,
			"party_size":       c.PartySize,
			"reservation_time": c.ReservationTime.Format(time.RFC3339),
			"customer_name":    c.CustomerName,
			"status":           string(c.Status),
		})
		s.redis.SAdd(ctx, "active_calls", callSID)
		s.redis.Expire(ctx, "call:"+callSID, s.ttl)
	}
	return nil
}

// Get returns a copy of the context for the call SID.
func (s *Store) Get(callSID string) (Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.calls[callSID]
	if !exists {
		return Context{}, ErrUnknownCallID
	}
	return snapshot(rec.ctx), nil
}

// AppendTranscript atomically appends a line to the call's transcript and
// feeds any live monitor subscribers.
func (s *Store) AppendTranscript(ctx context.Context, callSID string, speaker Speaker, text string) error {
	line := TranscriptLine{Speaker: speaker, Text: text, At: time.Now()}

	s.mu.Lock()
	rec, exists := s.calls[callSID]
	if !exists {
		s.mu.Unlock()
		return ErrUnknownCallID
	}
	rec.ctx.Transcript = append(rec.ctx.Transcript, line)
	for ch := range rec.subs {
		select {
		case ch <- line:
		default:
			// Slow subscriber, drop the line rather than stall the call.
		}
	}
	s.mu.Unlock()

	if s.redis != nil {
		s.redis.RPush(ctx, "call:"+callSID+":transcript", string(speaker)+": "+text)
		s.redis.Expire(ctx, "call:"+callSID+":transcript", s.ttl)
	}
	return nil
}

// SetStatus atomically sets the call status and returns the previous one, so
// callers can detect an already-terminal record before re-acting.
func (s *Store) SetStatus(ctx context.Context, callSID string, status Status) (Status, error) {
	s.mu.Lock()
	rec, exists := s.calls[callSID]
	if !exists {
		s.mu.Unlock()
		return "", ErrUnknownCallID
	}
	prev := rec.ctx.Status
	rec.ctx.Status = status
	s.mu.Unlock()

	if s.redis != nil {
		s.redis.HSet(ctx, "call:"+callSID, "status", string(status))
	}
	return prev, nil
}

// Remove evicts a call record. Idempotent.
func (s *Store) Remove(ctx context.Context, callSID string) {
	s.mu.Lock()
	rec, exists := s.calls[callSID]
	if exists {
		for ch := range rec.subs {
			close(ch)
		}
		rec.subs = nil
		delete(s.calls, callSID)
	}
	s.mu.Unlock()

	if exists && s.redis != nil {
		s.redis.Del(ctx, "call:"+callSID, "call:"+callSID+":transcript")
		s.redis.SRem(ctx, "active_calls", callSID)
	}
}

// BeginTurn acquires the call's turn lock so same-call turns run in delivery
// order. Distinct calls are fully independent. The returned func releases it.
func (s *Store) BeginTurn(callSID string) (func(), error) {
	s.mu.RLock()
	rec, exists := s.calls[callSID]
	s.mu.RUnlock()
	if !exists {
		return nil, ErrUnknownCallID
	}
	rec.turnMu.Lock()
	return rec.turnMu.Unlock, nil
}

// Subscribe streams new transcript lines for an in-flight call. The returned
// func cancels the subscription; the channel is closed on cancel or eviction.
func (s *Store) Subscribe(callSID string) (<-chan TranscriptLine, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.calls[callSID]
	if !exists {
		return nil, nil, ErrUnknownCallID
	}
	ch := make(chan TranscriptLine, subscriberBuffer)
	rec.subs[ch] = struct{}{}

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if rec.subs != nil {
			if _, ok := rec.subs[ch]; ok {
				delete(rec.subs, ch)
				close(ch)
			}
		}
	}
	return ch, cancel, nil
}

// ActiveCount returns the number of in-flight call records.
func (s *Store) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.calls)
}

func snapshot(c *Context) Context {
	cp := *c
	cp.Transcript = make([]TranscriptLine, len(c.Transcript))
	copy(cp.Transcript, c.Transcript)
	return cp
}
