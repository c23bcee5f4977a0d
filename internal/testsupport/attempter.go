package testsupport

import (
	"context"
	"encoding/json"
	"sync"

	"petsync/internal/queue"
)

// StubAttempter records attempts and fails the ones registered via FailLabel or
// FailID. Payloads created by Enqueue carry the label.
type StubAttempter struct {
	mu       sync.Mutex
	failures map[string]error
	calls    []string
	block    chan struct{}
	started  chan string
}

// NewStubAttempter returns an attempter that succeeds by default.
func NewStubAttempter() *StubAttempter {
	return &StubAttempter{failures: make(map[string]error)}
}

// FailLabel makes attempts on actions with the given payload label return err.
func (s *StubAttempter) FailLabel(label string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures["label:"+label] = err
}

// FailID makes attempts on the given action return err.
func (s *StubAttempter) FailID(id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures["id:"+id] = err
}

// Succeed clears every registered failure.
func (s *StubAttempter) Succeed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = make(map[string]error)
}

// Block makes every attempt wait until the returned release func is called.
// Started receives the label of each attempt as it begins.
func (s *StubAttempter) Block() (started <-chan string, release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.block = make(chan struct{})
	s.started = make(chan string, 64)
	block := s.block
	var once sync.Once
	return s.started, func() { once.Do(func() { close(block) }) }
}

// Attempt implements the sync attempter contract.
func (s *StubAttempter) Attempt(ctx context.Context, action *queue.Action) error {
	label := PayloadLabel(action)

	s.mu.Lock()
	s.calls = append(s.calls, label)
	block, started := s.block, s.started
	err, ok := s.failures["id:"+action.ID]
	if !ok {
		err = s.failures["label:"+label]
	}
	s.mu.Unlock()

	if block != nil {
		started <- label
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// Calls returns the payload labels attempted so far, in order.
func (s *StubAttempter) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}

// PayloadLabel extracts the label written by Enqueue.
func PayloadLabel(action *queue.Action) string {
	if action == nil {
		return ""
	}
	var payload struct {
		Label string `json:"label"`
	}
	if err := json.Unmarshal(action.Payload, &payload); err != nil {
		return ""
	}
	return payload.Label
}
