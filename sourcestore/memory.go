package sourcestore

import (
	"context"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/dreamerjackson/bookcrawler/source"
)

type MemoryStore struct {
	node *snowflake.Node

	mu   sync.RWMutex
	sets map[int64]*source.RuleSet
}

func NewMemoryStore(node *snowflake.Node) *MemoryStore {
	return &MemoryStore{node: node, sets: make(map[int64]*source.RuleSet)}
}

func (m *MemoryStore) List(context.Context) ([]*source.RuleSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*source.RuleSet, 0, len(m.sets))
	for _, rs := range m.sets {
		out = append(out, rs.Clone())
	}
	sortSets(out)

	return out, nil
}

func (m *MemoryStore) Enabled(ctx context.Context) ([]*source.RuleSet, error) {
	sets, err := m.List(ctx)
	if err != nil {
		return nil, err
	}

	return enabledOnly(sets), nil
}

func (m *MemoryStore) Get(_ context.Context, id int64) (*source.RuleSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rs, ok := m.sets[id]
	if !ok {
		return nil, ErrNotFound
	}

	return rs.Clone(), nil
}

func (m *MemoryStore) Add(_ context.Context, rs *source.RuleSet) (int64, error) {
	if err := validate(rs); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := urlKey(rs.URL)
	for _, existing := range m.sets {
		if urlKey(existing.URL) == key {
			return existing.ID, ErrDuplicate
		}
	}

	c := rs.Clone()
	c.ID = m.node.Generate().Int64()
	m.sets[c.ID] = c

	return c.ID, nil
}

func (m *MemoryStore) Update(_ context.Context, rs *source.RuleSet) error {
	if err := validate(rs); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sets[rs.ID]; !ok {
		return ErrNotFound
	}
	key := urlKey(rs.URL)
	for id, existing := range m.sets {
		if id != rs.ID && urlKey(existing.URL) == key {
			return ErrDuplicate
		}
	}
	m.sets[rs.ID] = rs.Clone()

	return nil
}

func (m *MemoryStore) Remove(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sets[id]; !ok {
		return ErrNotFound
	}
	delete(m.sets, id)

	return nil
}

func (m *MemoryStore) SetEnabled(_ context.Context, id int64, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rs, ok := m.sets[id]
	if !ok {
		return ErrNotFound
	}
	rs.Enabled = enabled

	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
