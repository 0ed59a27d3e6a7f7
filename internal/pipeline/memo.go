package pipeline

import "sync"

type memoKey struct {
	step string
	path string
}

type memoEntry struct {
	inputHash string
	output    *Document
}

// Memo remembers, per step and path, the last input hash and the output it
// produced. A lookup hits only when both the path and the input hash match;
// an entry for the same path with a different hash is a miss.
type Memo struct {
	mu      sync.Mutex
	entries map[memoKey]memoEntry
	hits    int
}

func NewMemo() *Memo {
	return &Memo{entries: make(map[memoKey]memoEntry)}
}

// Get returns a copy of the memoised output.
func (m *Memo) Get(step, path, inputHash string) (*Document, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[memoKey{step: step, path: path}]
	if !ok || e.inputHash != inputHash {
		return nil, false
	}
	m.hits++
	return e.output.Clone(), true
}

func (m *Memo) Put(step, path, inputHash string, output *Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[memoKey{step: step, path: path}] = memoEntry{inputHash: inputHash, output: output.Clone()}
}

// Forget drops every entry for path.
func (m *Memo) Forget(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if k.path == path {
			delete(m.entries, k)
		}
	}
}

// Hits returns the number of lookups served from the memo.
func (m *Memo) Hits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits
}
