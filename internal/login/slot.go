package login

import "sync"

// ErrorSlot holds the latest login error message and notifies subscribers
// whenever it changes.
type ErrorSlot struct {
	mu     sync.Mutex
	value  string
	nextID int
	subs   map[int]func(string)
}

// Get returns the current message.
func (s *ErrorSlot) Get() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Subscribe registers fn to receive every new value. Callbacks run
// synchronously on the goroutine that changed the slot. The returned
// function unsubscribes.
func (s *ErrorSlot) Subscribe(fn func(string)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs == nil {
		s.subs = make(map[int]func(string))
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *ErrorSlot) set(v string) {
	s.mu.Lock()
	if s.value == v {
		s.mu.Unlock()
		return
	}
	s.value = v
	subs := make([]func(string), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
}
