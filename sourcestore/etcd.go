package sourcestore

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/dreamerjackson/bookcrawler/source"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

const (
	etcdSourcePrefix = "/booksources/"
	etcdURLPrefix    = "/booksource-urls/"
)

type EventType int

const (
	EventTypeDelete EventType = iota
	EventTypePut
)

// Event is one change under the rule set prefix. RuleSet is the new value
// for puts and the removed value for deletes.
type Event struct {
	Type    EventType
	ID      int64
	RuleSet *source.RuleSet
}

// EtcdStore shares rule sets between several aggregator instances. A
// secondary key per URL enforces uniqueness inside transactions.
type EtcdStore struct {
	cli    *clientv3.Client
	node   *snowflake.Node
	logger *zap.Logger
}

func NewEtcdStore(endpoints []string, node *snowflake.Node, logger *zap.Logger) (*EtcdStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cli, err := clientv3.New(clientv3.Config{Endpoints: endpoints, DialTimeout: 5 * time.Second})
	if err != nil {
		return nil, err
	}

	return &EtcdStore{cli: cli, node: node, logger: logger}, nil
}

func sourceKey(id int64) string {
	return etcdSourcePrefix + strconv.FormatInt(id, 10)
}

func urlIndexKey(u string) string {
	return etcdURLPrefix + url.PathEscape(urlKey(u))
}

func decode(value []byte) (*source.RuleSet, error) {
	rs := source.New()
	if err := json.Unmarshal(value, rs); err != nil {
		return nil, err
	}

	return rs, nil
}

func (e *EtcdStore) List(ctx context.Context) ([]*source.RuleSet, error) {
	resp, err := e.cli.Get(ctx, etcdSourcePrefix, clientv3.WithPrefix(), clientv3.WithSerializable())
	if err != nil {
		return nil, err
	}

	sets := make([]*source.RuleSet, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		rs, err := decode(kv.Value)
		if err != nil {
			e.logger.Error("decode etcd value failed", zap.ByteString("key", kv.Key), zap.Error(err))
			continue
		}
		sets = append(sets, rs)
	}
	sortSets(sets)

	return sets, nil
}

func (e *EtcdStore) Enabled(ctx context.Context) ([]*source.RuleSet, error) {
	sets, err := e.List(ctx)
	if err != nil {
		return nil, err
	}

	return enabledOnly(sets), nil
}

func (e *EtcdStore) Get(ctx context.Context, id int64) (*source.RuleSet, error) {
	resp, err := e.cli.Get(ctx, sourceKey(id))
	if err != nil {
		return nil, err
	}
	if len(resp.Kvs) == 0 {
		return nil, ErrNotFound
	}

	return decode(resp.Kvs[0].Value)
}

func (e *EtcdStore) Add(ctx context.Context, rs *source.RuleSet) (int64, error) {
	if err := validate(rs); err != nil {
		return 0, err
	}

	c := rs.Clone()
	c.ID = e.node.Generate().Int64()
	data, err := json.Marshal(c)
	if err != nil {
		return 0, err
	}

	index := urlIndexKey(c.URL)
	resp, err := e.cli.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(index), "=", 0)).
		Then(clientv3.OpPut(index, strconv.FormatInt(c.ID, 10)), clientv3.OpPut(sourceKey(c.ID), string(data))).
		Else(clientv3.OpGet(index)).
		Commit()
	if err != nil {
		return 0, err
	}
	if !resp.Succeeded {
		var existing int64
		if kvs := resp.Responses[0].GetResponseRange().Kvs; len(kvs) > 0 {
			existing, _ = strconv.ParseInt(string(kvs[0].Value), 10, 64)
		}
		return existing, ErrDuplicate
	}

	return c.ID, nil
}

func (e *EtcdStore) Update(ctx context.Context, rs *source.RuleSet) error {
	if err := validate(rs); err != nil {
		return err
	}
	old, err := e.Get(ctx, rs.ID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(rs)
	if err != nil {
		return err
	}

	oldIndex, newIndex := urlIndexKey(old.URL), urlIndexKey(rs.URL)
	if oldIndex == newIndex {
		_, err = e.cli.Put(ctx, sourceKey(rs.ID), string(data))
		return err
	}

	resp, err := e.cli.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(newIndex), "=", 0)).
		Then(
			clientv3.OpDelete(oldIndex),
			clientv3.OpPut(newIndex, strconv.FormatInt(rs.ID, 10)),
			clientv3.OpPut(sourceKey(rs.ID), string(data)),
		).
		Commit()
	if err != nil {
		return err
	}
	if !resp.Succeeded {
		return ErrDuplicate
	}

	return nil
}

func (e *EtcdStore) Remove(ctx context.Context, id int64) error {
	old, err := e.Get(ctx, id)
	if err != nil {
		return err
	}
	_, err = e.cli.Txn(ctx).
		Then(clientv3.OpDelete(sourceKey(id)), clientv3.OpDelete(urlIndexKey(old.URL))).
		Commit()

	return err
}

func (e *EtcdStore) SetEnabled(ctx context.Context, id int64, enabled bool) error {
	rs, err := e.Get(ctx, id)
	if err != nil {
		return err
	}
	rs.Enabled = enabled

	return e.Update(ctx, rs)
}

// Watch streams changes until ctx is done. The channel is closed when the
// watch ends.
func (e *EtcdStore) Watch(ctx context.Context) <-chan Event {
	ch := make(chan Event)
	go func() {
		defer close(ch)

		watch := e.cli.Watch(ctx, etcdSourcePrefix, clientv3.WithPrefix(), clientv3.WithPrevKV())
		for w := range watch {
			if err := w.Err(); err != nil {
				e.logger.Error("watch rule sets failed", zap.Error(err))
				continue
			}
			for _, ev := range w.Events {
				id, err := strconv.ParseInt(strings.TrimPrefix(string(ev.Kv.Key), etcdSourcePrefix), 10, 64)
				if err != nil {
					continue
				}

				event := Event{ID: id}
				switch ev.Type {
				case clientv3.EventTypePut:
					event.Type = EventTypePut
					event.RuleSet, err = decode(ev.Kv.Value)
				case clientv3.EventTypeDelete:
					event.Type = EventTypeDelete
					if ev.PrevKv != nil {
						event.RuleSet, err = decode(ev.PrevKv.Value)
					}
				}
				if err != nil {
					e.logger.Error("decode etcd value failed", zap.Error(err))
				}

				select {
				case ch <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch
}

func (e *EtcdStore) Close() error {
	return e.cli.Close()
}
