// Package store abstracts the hosted document database the chat core runs
// against: keyed documents grouped into collection paths, merge writes,
// dotted field paths for per-user maps, one-shot queries and live
// subscriptions that deliver full ordered snapshots on every change.
package store

import "context"

// Op is one entry of an atomic batch.
type Op struct {
	Kind       OpKind
	Collection string
	ID         string
	Fields     map[string]any
	Merge      bool
}

type OpKind int

const (
	OpSet OpKind = iota
	OpUpdate
	OpDelete
)

// Filter is a single field condition. Supported operators mirror what the
// backing platform offers: "==" and "array-contains".
type Filter struct {
	Field string
	Op    string
	Value any
}

// Query bundles filters with ordering and a window limit. DocID narrows to
// a single document, which is how live single-document listeners are built.
type Query struct {
	DocID   string
	Filters []Filter
	OrderBy string
	Desc    bool
	Limit   int
}

// Snapshot receives the full matching document set, already ordered.
type Snapshot func(docs []Document)

// Unsubscribe tears down a live subscription. Safe to call more than once.
type Unsubscribe func()

type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	// Set writes a document. With merge, existing fields not present in
	// fields are kept and map values are merged key-wise.
	Set(ctx context.Context, collection, id string, fields map[string]any, merge bool) error
	// Update applies partial fields. Dotted paths ("unreadCounts.u1")
	// address nested map keys without clobbering siblings.
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	// Add creates a document under a generated id.
	Add(ctx context.Context, collection string, fields map[string]any) (string, error)
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, collection string, q Query) ([]Document, error)
	Subscribe(collection string, q Query, fn Snapshot) Unsubscribe
	// RunBatch applies all operations atomically or none of them.
	RunBatch(ctx context.Context, ops []Op) error
}

type serverTimestamp struct{}

// ServerTimestamp is replaced by the store's own clock at write time, so
// message ordering never depends on client wall clocks.
var ServerTimestamp = serverTimestamp{}

type increment struct{ by int64 }

// Inc atomically adds by to a numeric field inside a write, missing fields
// count as zero.
func Inc(by int64) any { return increment{by: by} }
