package history

import (
	"errors"
	"fmt"
	"sync"
)

// ErrEmptySlot is returned by a SlotStore asked for a slot never written.
var ErrEmptySlot = errors.New("history slot is empty")

// SlotStore persists states in numbered slots 0..capacity-1.
type SlotStore interface {
	WriteSlot(n int, state []byte) error
	ReadSlot(n int) ([]byte, error)
	// Rotate moves every slot down by one, discarding slot 0.
	Rotate() error
	// Clear removes every slot.
	Clear() error
}

// Cached keeps only the pointer in memory and the states themselves in a
// SlotStore, so long sessions on large documents stay small.
type Cached struct {
	store    SlotStore
	capacity int
	count    int
	ptr      int
}

func NewCached(store SlotStore, capacity int) *Cached {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Cached{store: store, capacity: capacity, ptr: -1}
}

func (c *Cached) Push(state []byte) error {
	count := c.ptr + 1
	if count == c.capacity {
		if err := c.store.Rotate(); err != nil {
			return fmt.Errorf("rotate history slots: %w", err)
		}
		count--
	}
	// The redo branch is gone and the slots may have shifted; the pointer
	// must match the store even if the write below fails.
	c.count = count
	c.ptr = count - 1
	if err := c.store.WriteSlot(count, state); err != nil {
		return fmt.Errorf("write history slot %d: %w", count, err)
	}
	c.count = count + 1
	c.ptr = count
	return nil
}

func (c *Cached) Undo() ([]byte, bool, error) {
	if !c.CanUndo() {
		return nil, false, nil
	}
	state, err := c.store.ReadSlot(c.ptr - 1)
	if err != nil {
		return nil, false, fmt.Errorf("read history slot %d: %w", c.ptr-1, err)
	}
	c.ptr--
	return state, true, nil
}

func (c *Cached) Redo() ([]byte, bool, error) {
	if !c.CanRedo() {
		return nil, false, nil
	}
	state, err := c.store.ReadSlot(c.ptr + 1)
	if err != nil {
		return nil, false, fmt.Errorf("read history slot %d: %w", c.ptr+1, err)
	}
	c.ptr++
	return state, true, nil
}

func (c *Cached) CanUndo() bool { return c.ptr > 0 }
func (c *Cached) CanRedo() bool { return c.ptr < c.count-1 }
func (c *Cached) Len() int { return c.count }

func (c *Cached) Reset() error {
	c.count = 0
	c.ptr = -1
	return c.store.Clear()
}

// MemorySlots is a SlotStore backed by a map.
type MemorySlots struct {
	mu    sync.Mutex
	slots map[int][]byte
}

func NewMemorySlots() *MemorySlots {
	return &MemorySlots{slots: make(map[int][]byte)}
}

func (s *MemorySlots) WriteSlot(n int, state []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[n] = clone(state)
	return nil
}

func (s *MemorySlots) ReadSlot(n int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.slots[n]
	if !ok {
		return nil, fmt.Errorf("slot %d: %w", n, ErrEmptySlot)
	}
	return clone(b), nil
}

func (s *MemorySlots) Rotate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make(map[int][]byte, len(s.slots))
	for n, b := range s.slots {
		if n > 0 {
			next[n-1] = b
		}
	}
	s.slots = next
	return nil
}

func (s *MemorySlots) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots = make(map[int][]byte)
	return nil
}
