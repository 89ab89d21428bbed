package poll

import (
	"fmt"
	"sync"
)

// Scheduler keeps the named set of targets a page runs at once.
type Scheduler struct {
	mu      sync.RWMutex
	order   []string
	targets map[string]Poller
}

func NewScheduler() *Scheduler {
	return &Scheduler{targets: make(map[string]Poller)}
}

// Add registers p under its name. Names must be unique.
func (s *Scheduler) Add(p Poller) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.targets[p.Name()]; ok {
		return fmt.Errorf("poll target %q already registered", p.Name())
	}
	s.targets[p.Name()] = p
	s.order = append(s.order, p.Name())
	return nil
}

func (s *Scheduler) Get(name string) (Poller, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.targets[name]
	return p, ok
}

// Start starts the named timed targets. On-demand targets and unknown
// names are skipped.
func (s *Scheduler) Start(names ...string) {
	for _, name := range names {
		if p, ok := s.Get(name); ok && p.Interval() > 0 {
			p.Start()
		}
	}
}

func (s *Scheduler) StopAll() {
	for _, p := range s.list() {
		p.Stop()
	}
}

// Wait blocks until no target has a fetch in flight.
func (s *Scheduler) Wait() {
	for _, p := range s.list() {
		p.Wait()
	}
}

func (s *Scheduler) Statuses() []Status {
	list := s.list()
	out := make([]Status, 0, len(list))
	for _, p := range list {
		out = append(out, p.Status())
	}
	return out
}

func (s *Scheduler) list() []Poller {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Poller, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.targets[name])
	}
	return out
}
