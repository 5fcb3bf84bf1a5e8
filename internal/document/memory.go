package document

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Store. Updates are serialised by a mutex.
type Memory struct {
	mu   sync.Mutex
	docs map[string]Doc
	now  func() time.Time
}

// Compile-time check: *Memory satisfies Store.
var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string]Doc), now: time.Now}
}

func (m *Memory) Get(_ context.Context, uid string) (Doc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[uid]
	if !ok {
		return nil, ErrNotFound
	}
	return Clone(doc), nil
}

func (m *Memory) Create(_ context.Context, uid string, doc Doc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[uid]; ok {
		return ErrExists
	}
	built, err := Build(doc, m.now())
	if err != nil {
		return err
	}
	m.docs[uid] = built
	return nil
}

func (m *Memory) Update(_ context.Context, uid string, updates ...Update) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[uid]
	if !ok {
		return ErrNotFound
	}
	next, err := Apply(doc, m.now(), updates...)
	if err != nil {
		return err
	}
	m.docs[uid] = next
	return nil
}
