package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/codes"

	"github.com/guildwallet/walletdb/store"
	clientsmongo "github.com/guildwallet/walletdb/store/mongo/clients/mongo"
	"github.com/guildwallet/walletdb/telemetry"
)

const (
	defaultWalletDatabase = "wallet"
	defaultKeysCollection = "keys"

	metricErrors   = "walletdb.store.errors"
	metricDuration = "walletdb.store.duration"
)

// Operation names reported in errors, logs, spans and metrics.
const (
	opSaveEntry       = "SaveEntry"
	opFindEntryByID   = "FindEntryByID"
	opSaveKey         = "SaveKey"
	opFindKeyByID     = "FindKeyByID"
	opRemoveEntry     = "RemoveEntry"
	opIncrementFields = "IncrementFields"
	opFindDocuments   = "FindDocuments"
	opUpdateDocument  = "UpdateDocument"
	opAddItemToArray  = "AddItemToArray"
	opClose           = "Close"
)

type (
	// Options configures the Store.
	Options struct {
		// Client is the low-level document client. Required.
		Client clientsmongo.Client
		// WalletDatabase names the logical database holding wallets and keys.
		// Defaults to "wallet".
		WalletDatabase string
		// KeysCollection names the key collection of the wallet database.
		// Defaults to "keys".
		KeysCollection string
		// Logger defaults to a no-op logger.
		Logger telemetry.Logger
		// Metrics defaults to a no-op recorder.
		Metrics telemetry.Metrics
		// Tracer defaults to a no-op tracer.
		Tracer telemetry.Tracer
	}

	// Store implements store.Store by delegating to the Mongo client.
	Store struct {
		client  clientsmongo.Client
		wallet  string
		keys    string
		logger  telemetry.Logger
		metrics telemetry.Metrics
		tracer  telemetry.Tracer
	}

	// call tracks one facade operation from validation to completion.
	call struct {
		s     *Store
		op    string
		db    string
		coll  string
		id    string
		span  telemetry.Span
		start time.Time
	}
)

var _ store.Store = (*Store)(nil)

// NewStore builds a Store using the provided client.
func NewStore(opts Options) (*Store, error) {
	if opts.Client == nil {
		return nil, errors.New("client is required")
	}
	s := &Store{
		client:  opts.Client,
		wallet:  opts.WalletDatabase,
		keys:    opts.KeysCollection,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		tracer:  opts.Tracer,
	}
	if s.wallet == "" {
		s.wallet = defaultWalletDatabase
	}
	if s.keys == "" {
		s.keys = defaultKeysCollection
	}
	if s.logger == nil {
		s.logger = telemetry.NewNoopLogger()
	}
	if s.metrics == nil {
		s.metrics = telemetry.NewNoopMetrics()
	}
	if s.tracer == nil {
		s.tracer = telemetry.NewNoopTracer()
	}
	return s, nil
}

// NewStoreFromMongo builds the Mongo client from mopts and wraps it in a
// Store configured by opts. opts.Client is ignored.
func NewStoreFromMongo(mopts clientsmongo.Options, opts Options) (*Store, error) {
	c, err := clientsmongo.New(mopts)
	if err != nil {
		return nil, err
	}
	opts.Client = c
	return NewStore(opts)
}

// WalletDatabase returns the name of the wallet database.
func (s *Store) WalletDatabase() string {
	return s.wallet
}

// Name implements health.Pinger.
func (s *Store) Name() string {
	return s.client.Name()
}

// Ping implements health.Pinger. It connects on first use.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// SaveEntry inserts entry into collection of database dbType. Wallet
// creations are logged with the user and public key of the entry.
func (s *Store) SaveEntry(ctx context.Context, dbType, collection string, entry store.Document) error {
	id, _ := entry.ID()
	ctx, c := s.begin(ctx, opSaveEntry, dbType, collection, id)
	if err := validateTarget(dbType, collection); err != nil {
		return c.end(ctx, err)
	}
	if entry == nil {
		return c.end(ctx, store.Invalid("entry is required"))
	}
	if err := s.client.Insert(ctx, dbType, collection, entry); err != nil {
		return c.end(ctx, err)
	}
	if dbType == s.wallet {
		s.logger.Info(ctx, "wallet created",
			"collection", collection,
			"user", fmt.Sprint(entry["user"]),
			"publicKey", fmt.Sprint(entry["publicKey"]))
	}
	return c.end(ctx, nil)
}

// SaveWallet is an alias of SaveEntry.
//
// Deprecated: use SaveEntry.
func (s *Store) SaveWallet(ctx context.Context, dbType, collection string, entry store.Document) error {
	return s.SaveEntry(ctx, dbType, collection, entry)
}

// FindEntryByID returns the document with the given id. Lookups in the
// wallet database log whether the wallet was found.
func (s *Store) FindEntryByID(ctx context.Context, dbType, collection, id string) (store.Document, error) {
	ctx, c := s.begin(ctx, opFindEntryByID, dbType, collection, id)
	if err := validateID(dbType, collection, id); err != nil {
		return nil, c.end(ctx, err)
	}
	doc, err := s.client.FindByID(ctx, dbType, collection, id)
	if dbType == s.wallet {
		switch {
		case err == nil:
			s.logger.Info(ctx, "wallet found", "collection", collection, "id", id)
		case store.IsNotFound(err):
			s.logger.Info(ctx, "wallet not found", "collection", collection, "id", id)
		}
	}
	if err != nil {
		return nil, c.end(ctx, err)
	}
	return doc, c.end(ctx, nil)
}

// FindOneWalletByID is an alias of FindEntryByID.
//
// Deprecated: use FindEntryByID.
func (s *Store) FindOneWalletByID(ctx context.Context, dbType, collection, id string) (store.Document, error) {
	return s.FindEntryByID(ctx, dbType, collection, id)
}

// SaveKey inserts entry into the keys collection of the wallet database. The
// entry must carry an _id.
func (s *Store) SaveKey(ctx context.Context, entry store.Document) error {
	id, ok := entry.ID()
	ctx, c := s.begin(ctx, opSaveKey, s.wallet, s.keys, id)
	if !ok {
		return c.end(ctx, store.Invalid("key %s is required", store.IDField))
	}
	if err := s.client.Insert(ctx, s.wallet, s.keys, entry); err != nil {
		return c.end(ctx, err)
	}
	s.logger.Info(ctx, "key saved", "id", id)
	return c.end(ctx, nil)
}

// FindKeyByID returns the key document with the given id.
func (s *Store) FindKeyByID(ctx context.Context, id string) (store.Document, error) {
	ctx, c := s.begin(ctx, opFindKeyByID, s.wallet, s.keys, id)
	if id == "" {
		return nil, c.end(ctx, store.Invalid("id is required"))
	}
	doc, err := s.client.FindByID(ctx, s.wallet, s.keys, id)
	switch {
	case err == nil:
		s.logger.Info(ctx, "key found", "id", id)
	case store.IsNotFound(err):
		s.logger.Info(ctx, "key not found", "id", id)
	}
	if err != nil {
		return nil, c.end(ctx, err)
	}
	return doc, c.end(ctx, nil)
}

// RemoveEntry deletes the document with the given id and reports whether one
// was deleted. A missing document is not an error.
func (s *Store) RemoveEntry(ctx context.Context, dbType, collection, id string) (bool, error) {
	ctx, c := s.begin(ctx, opRemoveEntry, dbType, collection, id)
	if err := validateID(dbType, collection, id); err != nil {
		return false, c.end(ctx, err)
	}
	removed, err := s.client.DeleteByID(ctx, dbType, collection, id)
	if err != nil {
		return false, c.end(ctx, err)
	}
	if dbType == s.wallet {
		s.logger.Info(ctx, "wallet removed", "collection", collection, "id", id, "removed", removed)
	}
	return removed, c.end(ctx, nil)
}

// IncrementFields atomically adds deltas to numeric fields of the document
// with the given id. Absent fields are created with the delta. It returns
// false without error when no document has the id.
func (s *Store) IncrementFields(ctx context.Context, dbType, collection, id string, deltas map[string]any) (bool, error) {
	ctx, c := s.begin(ctx, opIncrementFields, dbType, collection, id)
	if err := validateID(dbType, collection, id); err != nil {
		return false, c.end(ctx, err)
	}
	if err := store.ValidateIncrements(deltas); err != nil {
		return false, c.end(ctx, err)
	}
	modified, err := s.client.Increment(ctx, dbType, collection, id, deltas)
	if err != nil {
		return false, c.end(ctx, err)
	}
	return modified, c.end(ctx, nil)
}

// FindDocuments returns every document of collection in store order.
func (s *Store) FindDocuments(ctx context.Context, dbType, collection string) ([]store.Document, error) {
	ctx, c := s.begin(ctx, opFindDocuments, dbType, collection, "")
	if err := validateTarget(dbType, collection); err != nil {
		return nil, c.end(ctx, err)
	}
	docs, err := s.client.FindAll(ctx, dbType, collection)
	if err != nil {
		return nil, c.end(ctx, err)
	}
	c.span.SetAttributes("count", len(docs))
	return docs, c.end(ctx, nil)
}

// UpdateDocument sets the fields of update on the first document matching
// query. It reports true only when a stored value changed.
func (s *Store) UpdateDocument(ctx context.Context, dbType, collection string, query, update store.Document) (bool, error) {
	id, _ := query.ID()
	ctx, c := s.begin(ctx, opUpdateDocument, dbType, collection, id)
	if err := validateTarget(dbType, collection); err != nil {
		return false, c.end(ctx, err)
	}
	if len(update) == 0 {
		return false, c.end(ctx, store.Invalid("update is empty"))
	}
	if _, ok := update[store.IDField]; ok {
		return false, c.end(ctx, store.Invalid("cannot modify %s", store.IDField))
	}
	modified, err := s.client.SetFields(ctx, dbType, collection, query, update)
	if err != nil {
		return false, c.end(ctx, err)
	}
	return modified, c.end(ctx, nil)
}

// AddItemToArray appends item to the array at field of the document with the
// given id. An absent field is created as a one-element array.
func (s *Store) AddItemToArray(ctx context.Context, dbType, collection, id, field string, item any) (bool, error) {
	ctx, c := s.begin(ctx, opAddItemToArray, dbType, collection, id)
	if err := validateID(dbType, collection, id); err != nil {
		return false, c.end(ctx, err)
	}
	if field == "" {
		return false, c.end(ctx, store.Invalid("array field is required"))
	}
	if field == store.IDField {
		return false, c.end(ctx, store.Invalid("cannot modify %s", store.IDField))
	}
	modified, err := s.client.Push(ctx, dbType, collection, id, field, item)
	if err != nil {
		return false, c.end(ctx, err)
	}
	return modified, c.end(ctx, nil)
}

// Close disconnects the client. It is safe to call more than once; every
// other operation fails with store.ErrClosed afterwards.
func (s *Store) Close(ctx context.Context) error {
	if err := s.client.Close(ctx); err != nil {
		s.logger.Error(ctx, "close failed", "err", err)
		s.metrics.IncCounter(metricErrors, 1, "op", opClose)
		return &store.Error{Op: opClose, Err: err}
	}
	s.logger.Info(ctx, "store closed")
	return nil
}

func (s *Store) begin(ctx context.Context, op, db, coll, id string) (context.Context, *call) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := s.tracer.Start(ctx, "walletdb."+op)
	span.SetAttributes("db.name", db, "db.collection", coll)
	if id != "" {
		span.SetAttributes("document.id", id)
	}
	return ctx, &call{s: s, op: op, db: db, coll: coll, id: id, span: span, start: time.Now()}
}

// end records the outcome of the call and returns err wrapped in a
// *store.Error, or nil. Not-found outcomes are not failures: they are neither
// logged nor counted.
func (c *call) end(ctx context.Context, err error) error {
	defer c.span.End()
	c.s.metrics.RecordTimer(metricDuration, time.Since(c.start), "op", c.op)
	if err == nil {
		c.span.SetStatus(codes.Ok, "")
		return nil
	}
	wrapped := &store.Error{Op: c.op, Database: c.db, Collection: c.coll, ID: c.id, Err: err}
	if store.IsNotFound(err) {
		c.span.SetAttributes("document.found", false)
		return wrapped
	}
	c.span.RecordError(err)
	c.span.SetStatus(codes.Error, err.Error())
	c.s.metrics.IncCounter(metricErrors, 1, "op", c.op, "kind", errorKind(err))
	c.s.logger.Error(ctx, c.op+" failed",
		"db", c.db,
		"collection", c.coll,
		"id", c.id,
		"err", err)
	return wrapped
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, store.ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, store.ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, store.ErrClosed):
		return "closed"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "internal"
	}
}

func validateTarget(dbType, collection string) error {
	if dbType == "" {
		return store.Invalid("database is required")
	}
	if collection == "" {
		return store.Invalid("collection is required")
	}
	return nil
}

func validateID(dbType, collection, id string) error {
	if err := validateTarget(dbType, collection); err != nil {
		return err
	}
	if id == "" {
		return store.Invalid("id is required")
	}
	return nil
}
