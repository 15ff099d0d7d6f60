// Package sourcestore persists rule sets and supplies the enabled ones to the
// search coordinator. Stores hand out copies; callers may keep them.
package sourcestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dreamerjackson/bookcrawler/source"
)

var (
	ErrNotFound  = errors.New("rule set not found")
	ErrDuplicate = errors.New("rule set with this url already exists")
)

// Provider supplies the enabled rule sets, heaviest first.
type Provider interface {
	Enabled(ctx context.Context) ([]*source.RuleSet, error)
}

type Store interface {
	Provider
	// List returns every rule set, heaviest first, then in insertion order.
	List(ctx context.Context) ([]*source.RuleSet, error)
	Get(ctx context.Context, id int64) (*source.RuleSet, error)
	// Add stores a copy of rs under a new ID and returns that ID. A rule set
	// whose URL is already stored is rejected with ErrDuplicate.
	Add(ctx context.Context, rs *source.RuleSet) (int64, error)
	Update(ctx context.Context, rs *source.RuleSet) error
	Remove(ctx context.Context, id int64) error
	SetEnabled(ctx context.Context, id int64, enabled bool) error
	Close() error
}

// Store types accepted by Open.
const (
	MemoryType = "memory"
	SQLiteType = "sqlite"
	MySQLType  = "mysql"
	EtcdType   = "etcd"
)

// ImportResult counts the outcome of Import.
type ImportResult struct {
	Added   int     `json:"added"`
	Skipped int     `json:"skipped"`
	IDs     []int64 `json:"ids"`
}

// Import adds every rule set, skipping those whose URL is already stored.
func Import(ctx context.Context, s Store, sets []*source.RuleSet) (ImportResult, error) {
	res := ImportResult{IDs: make([]int64, 0, len(sets))}
	for _, rs := range sets {
		id, err := s.Add(ctx, rs)
		if errors.Is(err, ErrDuplicate) {
			res.Skipped++
			continue
		}
		if err != nil {
			return res, fmt.Errorf("import %s: %w", rs.Name, err)
		}
		res.Added++
		res.IDs = append(res.IDs, id)
	}

	return res, nil
}

// urlKey normalises a base URL for duplicate detection.
func urlKey(u string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(u)), "/")
}

func sortSets(sets []*source.RuleSet) {
	sort.SliceStable(sets, func(i, j int) bool {
		if sets[i].Weight != sets[j].Weight {
			return sets[i].Weight > sets[j].Weight
		}

		return sets[i].ID < sets[j].ID
	})
}

func enabledOnly(sets []*source.RuleSet) []*source.RuleSet {
	out := sets[:0]
	for _, rs := range sets {
		if rs.Enabled {
			out = append(out, rs)
		}
	}

	return out
}

func validate(rs *source.RuleSet) error {
	if rs == nil {
		return &source.MissingFieldError{Field: "name"}
	}

	return rs.Validate()
}
