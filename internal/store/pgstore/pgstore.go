// Package pgstore persists the document Store on Postgres: one JSONB-bagged
// row per document keyed by (collection, id). Atomic batches map to SQL
// transactions with row locks; live subscriptions are served by an
// in-process hub that re-queries after each commit, which gives the same
// single-node delivery scope the in-memory store has.
package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	glogger "gorm.io/gorm/logger"

	"bakchod/infrastructure"
	"bakchod/internal/store"
	"bakchod/pkg/logger"
)

type documentRow struct {
	Collection string `gorm:"primaryKey;size:512"`
	ID         string `gorm:"primaryKey;column:id;size:128"`
	Fields     []byte `gorm:"type:jsonb"`
	UpdatedAt  time.Time
}

func (documentRow) TableName() string { return "documents" }

type Store struct {
	db *gorm.DB

	mu   sync.Mutex
	subs map[int]*subscription
	next int
	seq  uint64
}

type subscription struct {
	collection string
	query      store.Query
	fn         store.Snapshot

	mu        sync.Mutex
	delivered uint64
}

// deliver hands a snapshot over unless a newer one already went out; stamps
// are assigned under the hub lock, so the gate keeps per-subscriber delivery
// monotonic.
func (s *subscription) deliver(seq uint64, docs []store.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq < s.delivered {
		return
	}
	s.delivered = seq
	s.fn(docs)
}

// Open connects through lib/pq and layers gorm on top of the shared handle.
func Open(databaseURL string, log logger.Logger) (*Store, error) {
	sqlDB, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "pgstore.Open")
	}
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: glogger.Default.LogMode(glogger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "pgstore.Open: gorm")
	}
	err = infrastructure.TimeOperation(log, "documents migration", func() error {
		return db.AutoMigrate(&documentRow{})
	})
	if err != nil {
		return nil, errors.Wrap(err, "pgstore.Open: migrate")
	}
	return &Store{db: db, subs: map[int]*subscription{}}, nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (store.Document, error) {
	var row documentRow
	err := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.Document{}, errors.Wrapf(infrastructure.ErrNotFound, "%s/%s", collection, id)
	}
	if err != nil {
		return store.Document{}, errors.Wrap(err, "pgstore.Get")
	}
	fields, err := decodeFields(row.Fields)
	if err != nil {
		return store.Document{}, errors.Wrap(err, "pgstore.Get: decode")
	}
	return store.Document{ID: id, Fields: fields}, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, fields map[string]any, merge bool) error {
	return s.RunBatch(ctx, []store.Op{{Kind: store.OpSet, Collection: collection, ID: id, Fields: fields, Merge: merge}})
}

func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	return s.RunBatch(ctx, []store.Op{{Kind: store.OpUpdate, Collection: collection, ID: id, Fields: fields}})
}

func (s *Store) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, collection, id, fields, false); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	return s.RunBatch(ctx, []store.Op{{Kind: store.OpDelete, Collection: collection, ID: id}})
}

func (s *Store) Query(ctx context.Context, collection string, q store.Query) ([]store.Document, error) {
	var rows []documentRow
	err := s.db.WithContext(ctx).Where("collection = ?", collection).Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "pgstore.Query")
	}
	return evaluate(rows, q)
}

func (s *Store) Subscribe(collection string, q store.Query, fn store.Snapshot) store.Unsubscribe {
	s.mu.Lock()
	key := s.next
	s.next++
	sub := &subscription{collection: collection, query: q, fn: fn}
	s.subs[key] = sub
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	if docs, err := s.Query(context.Background(), collection, q); err == nil {
		sub.deliver(seq, docs)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, key)
			s.mu.Unlock()
		})
	}
}

func (s *Store) RunBatch(ctx context.Context, ops []store.Op) error {
	now := time.Now().UTC()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, op := range ops {
			var row documentRow
			found := true
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("collection = ? AND id = ?", op.Collection, op.ID).
				Take(&row).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				found = false
			} else if err != nil {
				return errors.Wrap(err, "pgstore.RunBatch: lock")
			}

			switch op.Kind {
			case store.OpSet, store.OpUpdate:
				var existing map[string]any
				if found {
					existing, err = decodeFields(row.Fields)
					if err != nil {
						return errors.Wrap(err, "pgstore.RunBatch: decode")
					}
				}
				if op.Kind == store.OpUpdate && !found {
					return errors.Wrapf(infrastructure.ErrNotFound, "%s/%s", op.Collection, op.ID)
				}
				resolved := store.ResolveSentinels(op.Fields, existing, now)
				target := existing
				if target == nil || (op.Kind == store.OpSet && !op.Merge) {
					target = map[string]any{}
				}
				if op.Kind == store.OpSet {
					store.MergeFields(target, resolved)
				} else {
					store.ApplyDotted(target, resolved)
				}
				encoded, err := encodeFields(target)
				if err != nil {
					return errors.Wrap(err, "pgstore.RunBatch: encode")
				}
				next := documentRow{Collection: op.Collection, ID: op.ID, Fields: encoded, UpdatedAt: now}
				if found {
					if err := tx.Model(&documentRow{}).
						Where("collection = ? AND id = ?", op.Collection, op.ID).
						Updates(map[string]any{"fields": encoded, "updated_at": now}).Error; err != nil {
						return errors.Wrap(err, "pgstore.RunBatch: update")
					}
				} else if err := tx.Create(&next).Error; err != nil {
					return errors.Wrap(err, "pgstore.RunBatch: create")
				}
			case store.OpDelete:
				if err := tx.Where("collection = ? AND id = ?", op.Collection, op.ID).
					Delete(&documentRow{}).Error; err != nil {
					return errors.Wrap(err, "pgstore.RunBatch: delete")
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notify(ops)
	return nil
}

// notify re-queries and fans out to subscribers of the touched collections.
func (s *Store) notify(ops []store.Op) {
	touched := map[string]bool{}
	for _, op := range ops {
		touched[op.Collection] = true
	}
	s.mu.Lock()
	s.seq++
	seq := s.seq
	var pending []*subscription
	for _, sub := range s.subs {
		if touched[sub.collection] {
			pending = append(pending, sub)
		}
	}
	s.mu.Unlock()

	for _, sub := range pending {
		if docs, err := s.Query(context.Background(), sub.collection, sub.query); err == nil {
			sub.deliver(seq, docs)
		}
	}
}

func evaluate(rows []documentRow, q store.Query) ([]store.Document, error) {
	var out []store.Document
	for _, row := range rows {
		if q.DocID != "" && row.ID != q.DocID {
			continue
		}
		fields, err := decodeFields(row.Fields)
		if err != nil {
			return nil, errors.Wrap(err, "pgstore: decode")
		}
		if store.Matches(fields, q.Filters) {
			out = append(out, store.Document{ID: row.ID, Fields: fields})
		}
	}
	if q.OrderBy != "" {
		sort.Slice(out, func(i, j int) bool {
			less := store.Less(out[i].Fields[q.OrderBy], out[j].Fields[q.OrderBy])
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
	return out, nil
}

// JSON round-trips erase Go types, so timestamps are wrapped on the way in
// and restored on the way out.
const timeKey = "$time"

func encodeFields(fields map[string]any) ([]byte, error) {
	return json.Marshal(wrapTimes(fields))
}

func decodeFields(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var bag map[string]any
	if err := json.Unmarshal(raw, &bag); err != nil {
		return nil, err
	}
	return unwrapValues(bag).(map[string]any), nil
}

func wrapTimes(v any) any {
	switch tv := v.(type) {
	case time.Time:
		return map[string]any{timeKey: tv.UTC().Format(time.RFC3339Nano)}
	case map[string]any:
		out := make(map[string]any, len(tv))
		for k, e := range tv {
			out[k] = wrapTimes(e)
		}
		return out
	case []any:
		out := make([]any, len(tv))
		for i, e := range tv {
			out[i] = wrapTimes(e)
		}
		return out
	case []string:
		return tv
	default:
		return v
	}
}

func unwrapValues(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		if raw, ok := tv[timeKey].(string); ok && len(tv) == 1 {
			if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
				return ts
			}
		}
		out := make(map[string]any, len(tv))
		for k, e := range tv {
			out[k] = unwrapValues(e)
		}
		return out
	case []any:
		out := make([]any, len(tv))
		for i, e := range tv {
			out[i] = unwrapValues(e)
		}
		return out
	default:
		return v
	}
}
