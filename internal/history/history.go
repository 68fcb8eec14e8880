// Package history keeps a bounded list of committed editor states with a
// pointer for undo and redo.
//
// States are opaque byte snapshots. Push drops any redo branch, appends the
// new state and evicts the oldest once capacity is reached. Undo and Redo
// move the pointer and return the state it lands on.
package history

// DefaultCapacity is the number of states kept by default.
const DefaultCapacity = 5

// History is implemented by Memory and Cached.
type History interface {
	Push(state []byte) error
	// Undo steps back and returns the previous state. ok is false when
	// there is nothing to undo.
	Undo() (state []byte, ok bool, err error)
	Redo() (state []byte, ok bool, err error)
	CanUndo() bool
	CanRedo() bool
	// Len is the number of committed states held.
	Len() int
	Reset() error
}

// Memory holds states in a slice.
type Memory struct {
	capacity int
	states   [][]byte
	ptr      int
}

func NewMemory(capacity int) *Memory {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Memory{capacity: capacity, ptr: -1}
}

func (m *Memory) Push(state []byte) error {
	m.states = append(m.states[:m.ptr+1], clone(state))
	if len(m.states) > m.capacity {
		m.states = append([][]byte(nil), m.states[len(m.states)-m.capacity:]...)
	}
	m.ptr = len(m.states) - 1
	return nil
}

func (m *Memory) Undo() ([]byte, bool, error) {
	if !m.CanUndo() {
		return nil, false, nil
	}
	m.ptr--
	return clone(m.states[m.ptr]), true, nil
}

func (m *Memory) Redo() ([]byte, bool, error) {
	if !m.CanRedo() {
		return nil, false, nil
	}
	m.ptr++
	return clone(m.states[m.ptr]), true, nil
}

func (m *Memory) CanUndo() bool { return m.ptr > 0 }
func (m *Memory) CanRedo() bool { return m.ptr < len(m.states)-1 }
func (m *Memory) Len() int { return len(m.states) }

func (m *Memory) Reset() error {
	m.states = nil
	m.ptr = -1
	return nil
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
