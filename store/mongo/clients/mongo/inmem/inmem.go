// Package inmem provides an in-memory implementation of the Mongo document
// client for tests and local tooling.
//
// It mirrors the update semantics of MongoDB for the operations the store
// uses: $inc creates absent fields with the delta and leaves the document
// untouched for a zero delta on an existing field, $push creates absent
// arrays, and $set reports no modification when every value is unchanged.
// Filters match top-level fields by equality.
package inmem

import (
	"context"
	"reflect"
	"sync"

	"github.com/google/uuid"

	"github.com/guildwallet/walletdb/store"
	clientsmongo "github.com/guildwallet/walletdb/store/mongo/clients/mongo"
)

const clientName = "walletdb-inmem"

// Client is an in-memory clientsmongo.Client.
type Client struct {
	mu     sync.RWMutex
	dbs    map[string]*database
	closed bool
}

type (
	database struct {
		colls map[string]*collection
	}

	// collection keys documents by their normalized _id value so that a
	// string id never matches a numeric one.
	collection struct {
		docs  map[any]store.Document
		order []any
	}
)

var _ clientsmongo.Client = (*Client)(nil)

// New returns an empty Client.
func New() *Client {
	return &Client{dbs: make(map[string]*database)}
}

// Name implements health.Pinger.
func (c *Client) Name() string {
	return clientName
}

// Ping implements health.Pinger.
func (c *Client) Ping(context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return store.ErrClosed
	}
	return nil
}

// Databases returns the names of the databases accessed so far.
func (c *Client) Databases() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.dbs))
	for name := range c.dbs {
		names = append(names, name)
	}
	return names
}

// Insert stores a copy of doc. Documents without _id get a UUID. The _id
// keeps its type: FindByID("42") does not match {_id: 42}.
func (c *Client) Insert(_ context.Context, db, coll string, doc store.Document) error {
	if doc == nil {
		return store.Invalid("document is required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	col, err := c.collectionLocked(db, coll)
	if err != nil {
		return err
	}
	doc = normalize(doc)
	id, ok := doc[store.IDField]
	if !ok || id == nil {
		id = uuid.NewString()
		doc[store.IDField] = id
	}
	if !reflect.TypeOf(id).Comparable() {
		return store.Invalid("unsupported %s type %T", store.IDField, id)
	}
	if _, exists := col.docs[id]; exists {
		return store.ErrAlreadyExists
	}
	col.docs[id] = doc
	col.order = append(col.order, id)
	return nil
}

// FindByID returns a copy of the document or store.ErrNotFound.
func (c *Client) FindByID(_ context.Context, db, coll, id string) (store.Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	col, err := c.collectionLocked(db, coll)
	if err != nil {
		return nil, err
	}
	doc, ok := col.docs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return doc.Clone(), nil
}

// FindAll returns copies of all documents in insertion order.
func (c *Client) FindAll(_ context.Context, db, coll string) ([]store.Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	col, err := c.collectionLocked(db, coll)
	if err != nil {
		return nil, err
	}
	out := make([]store.Document, 0, len(col.order))
	for _, id := range col.order {
		out = append(out, col.docs[id].Clone())
	}
	return out, nil
}

// DeleteByID removes the document and reports whether it existed.
func (c *Client) DeleteByID(_ context.Context, db, coll, id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	col, err := c.collectionLocked(db, coll)
	if err != nil {
		return false, err
	}
	if _, ok := col.docs[id]; !ok {
		return false, nil
	}
	delete(col.docs, id)
	for i, oid := range col.order {
		if oid == id {
			col.order = append(col.order[:i], col.order[i+1:]...)
			break
		}
	}
	return true, nil
}

// Increment adds deltas to the numeric fields of the document. The update
// is applied to a copy and only committed when every field succeeds.
func (c *Client) Increment(_ context.Context, db, coll, id string, deltas map[string]any) (bool, error) {
	if err := store.ValidateIncrements(deltas); err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	col, err := c.collectionLocked(db, coll)
	if err != nil {
		return false, err
	}
	doc, ok := col.docs[id]
	if !ok {
		return false, nil
	}
	next := doc.Clone()
	modified := false
	for field, delta := range deltas {
		cur, exists := next[field]
		if !exists {
			next[field] = store.NormalizeNumber(delta)
			modified = true
			continue
		}
		if !store.IsNumeric(cur) {
			return false, store.Invalid("cannot apply $inc to non-numeric field %q", field)
		}
		sum, ok := store.AddNumbers(cur, delta)
		if !ok {
			return false, store.Invalid("$inc on field %q overflows int64", field)
		}
		if !store.IsZeroNumber(delta) {
			next[field] = sum
			modified = true
		}
	}
	col.docs[id] = next
	return modified, nil
}

// SetFields sets fields on the first document matching filter.
func (c *Client) SetFields(_ context.Context, db, coll string, filter, fields store.Document) (bool, error) {
	if len(fields) == 0 {
		return false, store.Invalid("no fields to set")
	}
	if _, ok := fields[store.IDField]; ok {
		return false, store.Invalid("cannot modify %s", store.IDField)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	col, err := c.collectionLocked(db, coll)
	if err != nil {
		return false, err
	}
	id, ok := col.match(normalize(filter))
	if !ok {
		return false, nil
	}
	doc := col.docs[id]
	modified := false
	for field, value := range normalize(fields) {
		if cur, exists := doc[field]; exists && reflect.DeepEqual(cur, value) {
			continue
		}
		doc[field] = value
		modified = true
	}
	return modified, nil
}

// Push appends item to the array at field.
func (c *Client) Push(_ context.Context, db, coll, id, field string, item any) (bool, error) {
	if field == "" {
		return false, store.Invalid("array field is required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	col, err := c.collectionLocked(db, coll)
	if err != nil {
		return false, err
	}
	doc, ok := col.docs[id]
	if !ok {
		return false, nil
	}
	item = normalizeValue(item)
	cur, exists := doc[field]
	if !exists {
		doc[field] = []any{item}
		return true, nil
	}
	arr, ok := cur.([]any)
	if !ok {
		return false, store.Invalid("field %q must be an array", field)
	}
	doc[field] = append(arr, item)
	return true, nil
}

// Close marks the client closed. Subsequent operations fail with
// store.ErrClosed.
func (c *Client) Close(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *Client) collectionLocked(db, coll string) (*collection, error) {
	if c.closed {
		return nil, store.ErrClosed
	}
	d, ok := c.dbs[db]
	if !ok {
		d = &database{colls: make(map[string]*collection)}
		c.dbs[db] = d
	}
	col, ok := d.colls[coll]
	if !ok {
		col = &collection{docs: make(map[any]store.Document)}
		d.colls[coll] = col
	}
	return col, nil
}

// match returns the id of the first document, in insertion order, whose
// top-level fields equal those of filter.
func (col *collection) match(filter store.Document) (any, bool) {
	for _, id := range col.order {
		doc := col.docs[id]
		matched := true
		for k, v := range filter {
			cur, ok := doc[k]
			if !ok || !reflect.DeepEqual(cur, v) {
				matched = false
				break
			}
		}
		if matched {
			return id, true
		}
	}
	return nil, false
}

// normalize deep copies doc converting numbers to int64 or float64 so that
// equality checks do not depend on the Go integer kind used by the caller.
func normalize(doc store.Document) store.Document {
	out := make(store.Document, len(doc))
	for k, v := range doc {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case store.Document:
		return map[string]any(normalize(val))
	case map[string]any:
		return map[string]any(normalize(val))
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	case []string:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = item
		}
		return out
	default:
		return store.NormalizeNumber(v)
	}
}
