package prompt

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Events announced for every confirmation.
const (
	EventRequest = "confirm_request"
	EventClosed  = "confirm_closed"
)

var ErrUnknownRequest = errors.New("prompt: no pending request with that id")

// Announcer pushes prompt events to connected operators.
type Announcer interface {
	BroadcastEvent(eventType string, data any)
}

type Request struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

type Outcome struct {
	ID       string `json:"id"`
	Accepted bool   `json:"accepted"`
}

type pending struct {
	req    Request
	answer chan bool
}

// Broker turns a confirmation into a request that any connected client can
// answer. Unanswered requests are declined after the timeout.
type Broker struct {
	announcer Announcer
	timeout   time.Duration

	mu      sync.Mutex
	pending map[string]*pending
}

// NewBroker returns a broker. A zero timeout waits until ctx ends.
func NewBroker(announcer Announcer, timeout time.Duration) *Broker {
	return &Broker{
		announcer: announcer,
		timeout:   timeout,
		pending:   make(map[string]*pending),
	}
}

// Confirm blocks until the request is resolved, ctx ends or the timeout
// elapses. Only a Resolve(id, true) yields true.
func (b *Broker) Confirm(ctx context.Context, message string) (bool, error) {
	p := &pending{
		req:    Request{ID: uuid.NewString(), Message: message, CreatedAt: time.Now()},
		answer: make(chan bool, 1),
	}
	b.mu.Lock()
	b.pending[p.req.ID] = p
	b.mu.Unlock()
	b.announce(EventRequest, p.req)

	var expired <-chan time.Time
	if b.timeout > 0 {
		timer := time.NewTimer(b.timeout)
		defer timer.Stop()
		expired = timer.C
	}

	var (
		accepted bool
		err      error
	)
	select {
	case accepted = <-p.answer:
	case <-expired:
	case <-ctx.Done():
		err = ctx.Err()
	}

	b.mu.Lock()
	delete(b.pending, p.req.ID)
	b.mu.Unlock()
	b.announce(EventClosed, Outcome{ID: p.req.ID, Accepted: accepted})
	return accepted, err
}

// Resolve answers a pending request. Each request can be answered once.
func (b *Broker) Resolve(id string, accepted bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.pending[id]
	if !ok {
		return ErrUnknownRequest
	}
	delete(b.pending, id)
	p.answer <- accepted
	return nil
}

// Pending lists open requests, oldest first.
func (b *Broker) Pending() []Request {
	b.mu.Lock()
	out := make([]Request, 0, len(b.pending))
	for _, p := range b.pending {
		out = append(out, p.req)
	}
	b.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (b *Broker) announce(eventType string, data any) {
	if b.announcer != nil {
		b.announcer.BroadcastEvent(eventType, data)
	}
}

// Static answers every confirmation with the same value. Hosts use it when
// the operator's answer arrives with the request itself.
type Static bool

func (s Static) Confirm(context.Context, string) (bool, error) {
	return bool(s), nil
}
