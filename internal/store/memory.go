package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"bakchod/infrastructure"
)

// Memory is an in-process Store with live subscription fan-out. It backs
// every test and the dev server; semantics (merge writes, dotted updates,
// server timestamps, atomic batches, full-snapshot delivery) match what the
// hosted platform provides.
type Memory struct {
	mu    sync.Mutex
	data  map[string]map[string]map[string]any
	subs  map[int]*memorySub
	next  int
	seq   uint64
	clock func() time.Time
	last  time.Time
}

type memorySub struct {
	collection string
	query      Query
	fn         Snapshot

	mu        sync.Mutex
	delivered uint64
}

// deliver hands a snapshot to the subscriber unless a newer one has already
// been handed over. Snapshots are stamped under the store lock, so gating on
// the stamp outside it keeps per-subscriber delivery monotonic even when the
// initial snapshot races a concurrent batch fan-out.
func (s *memorySub) deliver(seq uint64, docs []Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq < s.delivered {
		return
	}
	s.delivered = seq
	s.fn(docs)
}

func NewMemory() *Memory {
	return NewMemoryWithClock(time.Now)
}

// NewMemoryWithClock lets tests drive the server clock.
func NewMemoryWithClock(clock func() time.Time) *Memory {
	return &Memory{
		data:  map[string]map[string]map[string]any{},
		subs:  map[int]*memorySub{},
		clock: clock,
	}
}

// now returns a strictly increasing server timestamp.
func (m *Memory) now() time.Time {
	t := m.clock()
	if !t.After(m.last) {
		t = m.last.Add(time.Microsecond)
	}
	m.last = t
	return t
}

func (m *Memory) Get(_ context.Context, collection, id string) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fields, ok := m.data[collection][id]
	if !ok {
		return Document{}, errors.Wrapf(infrastructure.ErrNotFound, "%s/%s", collection, id)
	}
	return Document{ID: id, Fields: DeepCopy(fields)}, nil
}

func (m *Memory) Set(ctx context.Context, collection, id string, fields map[string]any, merge bool) error {
	return m.RunBatch(ctx, []Op{{Kind: OpSet, Collection: collection, ID: id, Fields: fields, Merge: merge}})
}

func (m *Memory) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	return m.RunBatch(ctx, []Op{{Kind: OpUpdate, Collection: collection, ID: id, Fields: fields}})
}

func (m *Memory) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	id := uuid.NewString()
	if err := m.Set(ctx, collection, id, fields, false); err != nil {
		return "", err
	}
	return id, nil
}

func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	return m.RunBatch(ctx, []Op{{Kind: OpDelete, Collection: collection, ID: id}})
}

func (m *Memory) Query(_ context.Context, collection string, q Query) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.evaluate(collection, q), nil
}

func (m *Memory) Subscribe(collection string, q Query, fn Snapshot) Unsubscribe {
	m.mu.Lock()
	key := m.next
	m.next++
	sub := &memorySub{collection: collection, query: q, fn: fn}
	m.subs[key] = sub
	m.seq++
	seq := m.seq
	initial := m.evaluate(collection, q)
	m.mu.Unlock()

	// Initial snapshot fires synchronously, like the platform listener does.
	sub.deliver(seq, initial)

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, key)
			m.mu.Unlock()
		})
	}
}

func (m *Memory) RunBatch(_ context.Context, ops []Op) error {
	m.mu.Lock()
	now := m.now()

	// Stage every op against copies first; m.data is only touched once the
	// whole batch has validated, so a failing op leaves nothing behind.
	type docKey struct{ collection, id string }
	staged := map[docKey]map[string]any{}
	lookup := func(k docKey) (map[string]any, bool) {
		if fields, ok := staged[k]; ok {
			return fields, fields != nil
		}
		fields, ok := m.data[k.collection][k.id]
		if !ok {
			return nil, false
		}
		return DeepCopy(fields), true
	}
	for _, op := range ops {
		k := docKey{collection: op.Collection, id: op.ID}
		switch op.Kind {
		case OpSet:
			existing, ok := lookup(k)
			resolved := ResolveSentinels(op.Fields, existing, now)
			if !ok || !op.Merge {
				existing = map[string]any{}
			}
			MergeFields(existing, resolved)
			staged[k] = existing
		case OpUpdate:
			existing, ok := lookup(k)
			if !ok {
				m.mu.Unlock()
				return errors.Wrapf(infrastructure.ErrNotFound, "%s/%s", op.Collection, op.ID)
			}
			ApplyDotted(existing, ResolveSentinels(op.Fields, existing, now))
			staged[k] = existing
		case OpDelete:
			staged[k] = nil
		}
	}

	touched := map[string]bool{}
	for k, fields := range staged {
		col, ok := m.data[k.collection]
		if !ok {
			col = map[string]map[string]any{}
			m.data[k.collection] = col
		}
		if fields == nil {
			delete(col, k.id)
		} else {
			col[k.id] = fields
		}
		touched[k.collection] = true
	}

	type delivery struct {
		sub  *memorySub
		seq  uint64
		docs []Document
	}
	var pending []delivery
	if len(touched) > 0 {
		m.seq++
	}
	for _, sub := range m.subs {
		if touched[sub.collection] {
			pending = append(pending, delivery{sub: sub, seq: m.seq, docs: m.evaluate(sub.collection, sub.query)})
		}
	}
	m.mu.Unlock()

	for _, d := range pending {
		d.sub.deliver(d.seq, d.docs)
	}
	return nil
}

// evaluate runs a query under the lock and returns deep copies.
func (m *Memory) evaluate(collection string, q Query) []Document {
	var out []Document
	for id, fields := range m.data[collection] {
		if q.DocID != "" && id != q.DocID {
			continue
		}
		if Matches(fields, q.Filters) {
			out = append(out, Document{ID: id, Fields: DeepCopy(fields)})
		}
	}
	if q.OrderBy != "" {
		sort.Slice(out, func(i, j int) bool {
			less := Less(out[i].Fields[q.OrderBy], out[j].Fields[q.OrderBy])
			if q.Desc {
				return !less
			}
			return less
		})
	} else {
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}
