// Package store defines the document persistence contract shared by the
// wallet and guild data stores.
//
// Documents are opaque field maps keyed by a caller supplied "_id". Concrete
// implementations live under store/mongo; the in-memory client under
// store/mongo/clients/mongo/inmem honors the same semantics for tests and
// local tooling.
package store

import (
	"context"
	"errors"
	"fmt"
)

// IDField is the document field holding the caller supplied identity.
const IDField = "_id"

type (
	// Document is a schema-free record. Nested documents are represented as
	// map[string]any and arrays as []any.
	Document map[string]any

	// Store is the data access facade used by callers to persist wallets, keys
	// and per-guild collections.
	Store interface {
		// SaveEntry inserts entry into collection of database dbType.
		SaveEntry(ctx context.Context, dbType, collection string, entry Document) error
		// FindEntryByID returns the document with the given id. Missing
		// documents yield an error matching ErrNotFound.
		FindEntryByID(ctx context.Context, dbType, collection, id string) (Document, error)
		// SaveKey inserts entry into the keys collection of the wallet database.
		SaveKey(ctx context.Context, entry Document) error
		// FindKeyByID returns the key document with the given id.
		FindKeyByID(ctx context.Context, id string) (Document, error)
		// RemoveEntry deletes the document with the given id and reports
		// whether a document was deleted.
		RemoveEntry(ctx context.Context, dbType, collection, id string) (bool, error)
		// IncrementFields atomically adds deltas to the numeric fields of the
		// document with the given id. Absent fields start at zero.
		IncrementFields(ctx context.Context, dbType, collection, id string, deltas map[string]any) (bool, error)
		// FindDocuments returns every document of collection.
		FindDocuments(ctx context.Context, dbType, collection string) ([]Document, error)
		// UpdateDocument sets the fields of update on the first document
		// matching query and reports whether a value changed.
		UpdateDocument(ctx context.Context, dbType, collection string, query, update Document) (bool, error)
		// AddItemToArray appends item to the array at field. Absent arrays are
		// created.
		AddItemToArray(ctx context.Context, dbType, collection, id, field string, item any) (bool, error)
		// Close releases the underlying connection. Operations fail with
		// ErrClosed afterwards.
		Close(ctx context.Context) error
	}

	// Error describes a failed store operation.
	Error struct {
		// Op is the facade operation name, e.g. "FindEntryByID".
		Op string
		// Database is the logical database name.
		Database string
		// Collection is the collection name.
		Collection string
		// ID is the document id involved, if any.
		ID string
		// Err is the error kind or driver cause.
		Err error
	}
)

var (
	// ErrNotFound indicates that no document matched.
	ErrNotFound = errors.New("document not found")
	// ErrAlreadyExists indicates that a document with the same id exists.
	ErrAlreadyExists = errors.New("document already exists")
	// ErrInvalidArgument indicates a malformed request.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrClosed indicates that the store was closed.
	ErrClosed = errors.New("store closed")
)

// Error implements error.
func (e *Error) Error() string {
	msg := e.Op
	if e.Database != "" {
		msg += " " + e.Database
		if e.Collection != "" {
			msg += "." + e.Collection
		}
	}
	if e.ID != "" {
		msg += fmt.Sprintf(" %q", e.ID)
	}
	return msg + ": " + e.Err.Error()
}

// Unwrap returns the underlying error kind or cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err denotes a missing document.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Invalid returns an error wrapping ErrInvalidArgument.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// ID returns the document id rendered as a string and whether it is set.
func (d Document) ID() (string, bool) {
	v, ok := d[IDField]
	if !ok || v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, s != ""
	}
	return fmt.Sprint(v), true
}

// Clone returns a deep copy of d. Nested maps and slices are copied so the
// result shares no mutable state with d.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = CloneValue(v)
	}
	return out
}

// CloneValue deep copies maps and slices found in v.
func CloneValue(v any) any {
	switch val := v.(type) {
	case Document:
		return map[string]any(val.Clone())
	case map[string]any:
		return map[string]any(Document(val).Clone())
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = CloneValue(item)
		}
		return out
	default:
		return v
	}
}
