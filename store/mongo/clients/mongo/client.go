// Package mongo hosts the MongoDB client used by the document store.
//
// The client creates the driver connection lazily on first use and caches
// one database handle per logical database name for the lifetime of the
// client. Handle creation is deduplicated per name so concurrent first calls
// ping the deployment once.
package mongo

//go:generate cmg gen .

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"golang.org/x/sync/singleflight"

	"goa.design/clue/health"

	"github.com/guildwallet/walletdb/store"
)

const (
	defaultOpTimeout = 10 * time.Second
	clientName       = "walletdb-mongo"
)

// Server error codes mapped to store.ErrInvalidArgument.
const (
	codeBadValue       = 2
	codeFailedToParse  = 9
	codeTypeMismatch   = 14
	codeConflictingOps = 40
)

// Client exposes single-document MongoDB operations addressed by logical
// database name and collection.
type Client interface {
	health.Pinger

	// Insert adds doc to the collection. A duplicate _id yields
	// store.ErrAlreadyExists.
	Insert(ctx context.Context, database, collection string, doc store.Document) error
	// FindByID returns the document with the given _id or store.ErrNotFound.
	FindByID(ctx context.Context, database, collection, id string) (store.Document, error)
	// FindAll returns every document of the collection in server order.
	FindAll(ctx context.Context, database, collection string) ([]store.Document, error)
	// DeleteByID removes the document with the given _id and reports whether
	// one was deleted.
	DeleteByID(ctx context.Context, database, collection, id string) (bool, error)
	// Increment applies $inc with deltas to the document with the given _id.
	// Absent fields are created with the delta value.
	Increment(ctx context.Context, database, collection, id string, deltas map[string]any) (bool, error)
	// SetFields applies $set with fields to the first document matching
	// filter and reports whether a value changed.
	SetFields(ctx context.Context, database, collection string, filter, fields store.Document) (bool, error)
	// Push applies $push of item onto field of the document with the given
	// _id. An absent field is created as a one-element array.
	Push(ctx context.Context, database, collection, id, field string, item any) (bool, error)
	// Close disconnects the driver client. It is safe to call more than once.
	Close(ctx context.Context) error
}

// Options configures the Mongo client.
type Options struct {
	// URI is the connection string used to create the driver client on
	// first use. Ignored when Client is set.
	URI string
	// Client is an existing driver client. The caller keeps ownership:
	// Close does not disconnect it.
	Client *mongodriver.Client
	// AppName is reported to the server in the connection handshake.
	AppName string
	// Timeout bounds each operation. Defaults to 10s.
	Timeout time.Duration
}

type client struct {
	dial    dialer
	owned   bool
	timeout time.Duration

	mu      sync.RWMutex
	drv     driver
	closed  bool
	handles map[string]database
	group   singleflight.Group
}

// dialer creates the driver client. It is invoked at most once per client.
type dialer func() (driver, error)

// New returns a Client backed by MongoDB. No connection is made until the
// first operation.
func New(opts Options) (Client, error) {
	if opts.Client == nil && opts.URI == "" {
		return nil, errors.New("mongo uri or client is required")
	}
	if opts.Client != nil {
		existing := opts.Client
		return newClient(func() (driver, error) {
			return mongoDriver{client: existing}, nil
		}, false, opts.Timeout), nil
	}
	co := options.Client().
		ApplyURI(opts.URI).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})
	if opts.AppName != "" {
		co.SetAppName(opts.AppName)
	}
	return newClient(func() (driver, error) {
		c, err := mongodriver.Connect(co)
		if err != nil {
			return nil, err
		}
		return mongoDriver{client: c}, nil
	}, true, opts.Timeout), nil
}

func newClient(dial dialer, owned bool, timeout time.Duration) *client {
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	return &client{
		dial:    dial,
		owned:   owned,
		timeout: timeout,
		handles: make(map[string]database),
	}
}

func (c *client) Name() string {
	return clientName
}

func (c *client) Ping(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	c.mu.Lock()
	drv, err := c.driverLocked()
	c.mu.Unlock()
	if err != nil {
		return err
	}
	return drv.Ping(ctx)
}

func (c *client) Insert(ctx context.Context, database, collection string, doc store.Document) error {
	if doc == nil {
		return store.Invalid("document is required")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	coll, err := c.collection(ctx, database, collection)
	if err != nil {
		return err
	}
	if _, err := coll.InsertOne(ctx, bson.M(doc)); err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (c *client) FindByID(ctx context.Context, database, collection, id string) (store.Document, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	coll, err := c.collection(ctx, database, collection)
	if err != nil {
		return nil, err
	}
	var raw bson.M
	if err := coll.FindOne(ctx, idFilter(id)).Decode(&raw); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return toDocument(raw), nil
}

func (c *client) FindAll(ctx context.Context, database, collection string) ([]store.Document, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	coll, err := c.collection(ctx, database, collection)
	if err != nil {
		return nil, err
	}
	cur, err := coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cur.Close(ctx)
	}()
	var raws []bson.M
	if err := cur.All(ctx, &raws); err != nil {
		return nil, err
	}
	out := make([]store.Document, len(raws))
	for i, raw := range raws {
		out[i] = toDocument(raw)
	}
	return out, nil
}

func (c *client) DeleteByID(ctx context.Context, database, collection, id string) (bool, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	coll, err := c.collection(ctx, database, collection)
	if err != nil {
		return false, err
	}
	res, err := coll.DeleteOne(ctx, idFilter(id))
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (c *client) Increment(ctx context.Context, database, collection, id string, deltas map[string]any) (bool, error) {
	if err := store.ValidateIncrements(deltas); err != nil {
		return false, err
	}
	return c.updateOne(ctx, database, collection, idFilter(id), bson.M{"$inc": bson.M(deltas)})
}

func (c *client) SetFields(ctx context.Context, database, collection string, filter, fields store.Document) (bool, error) {
	if len(fields) == 0 {
		return false, store.Invalid("no fields to set")
	}
	if filter == nil {
		filter = store.Document{}
	}
	return c.updateOne(ctx, database, collection, bson.M(filter), bson.M{"$set": bson.M(fields)})
}

func (c *client) Push(ctx context.Context, database, collection, id, field string, item any) (bool, error) {
	if field == "" {
		return false, store.Invalid("array field is required")
	}
	return c.updateOne(ctx, database, collection, idFilter(id), bson.M{"$push": bson.M{field: item}})
}

func (c *client) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	drv := c.drv
	c.drv = nil
	c.handles = nil
	c.mu.Unlock()
	if drv == nil || !c.owned {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := drv.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect mongo: %w", err)
	}
	return nil
}

func (c *client) updateOne(ctx context.Context, database, collection string, filter, update bson.M) (bool, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	coll, err := c.collection(ctx, database, collection)
	if err != nil {
		return false, err
	}
	res, err := coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, mapWriteError(err)
	}
	return res.ModifiedCount > 0, nil
}

func (c *client) collection(ctx context.Context, database, collection string) (collection, error) {
	db, err := c.database(ctx, database)
	if err != nil {
		return nil, err
	}
	return db.Collection(collection), nil
}

// database returns the cached handle for name, creating the driver client
// and the handle on first use.
func (c *client) database(ctx context.Context, name string) (database, error) {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return nil, store.ErrClosed
	}
	db, ok := c.handles[name]
	c.mu.RUnlock()
	if ok {
		return db, nil
	}

	// The shared ping is detached from the caller that started it. Each
	// waiter stops on its own ctx.
	ch := c.group.DoChan(name, func() (any, error) {
		c.mu.Lock()
		if db, ok := c.handles[name]; ok && !c.closed {
			c.mu.Unlock()
			return db, nil
		}
		drv, err := c.driverLocked()
		c.mu.Unlock()
		if err != nil {
			return nil, err
		}
		pctx, cancel := c.withTimeout(context.WithoutCancel(ctx))
		defer cancel()
		if err := drv.Ping(pctx); err != nil {
			return nil, fmt.Errorf("connect database %q: %w", name, err)
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed {
			return nil, store.ErrClosed
		}
		db := drv.Database(name)
		c.handles[name] = db
		return db, nil
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("connect database %q: %w", name, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(database), nil
	}
}

// driverLocked returns the driver client, dialing it on first use. c.mu must
// be held.
func (c *client) driverLocked() (driver, error) {
	if c.closed {
		return nil, store.ErrClosed
	}
	if c.drv != nil {
		return c.drv, nil
	}
	drv, err := c.dial()
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	c.drv = drv
	return drv, nil
}

func (c *client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

func idFilter(id string) bson.M {
	return bson.M{store.IDField: id}
}

// mapWriteError translates server errors into store error kinds while
// keeping the driver error in the chain.
func mapWriteError(err error) error {
	if mongodriver.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %w", store.ErrAlreadyExists, err)
	}
	var se mongodriver.ServerError
	if errors.As(err, &se) {
		for _, code := range []int{codeBadValue, codeFailedToParse, codeTypeMismatch, codeConflictingOps} {
			if se.HasErrorCode(code) {
				return fmt.Errorf("%w: %w", store.ErrInvalidArgument, err)
			}
		}
	}
	return err
}

// toDocument converts a decoded BSON document into a store.Document with
// nested documents as map[string]any, arrays as []any and numbers as int64
// or float64.
func toDocument(raw bson.M) store.Document {
	if raw == nil {
		return nil
	}
	doc := make(store.Document, len(raw))
	for k, v := range raw {
		doc[k] = fromBSON(v)
	}
	return doc
}

func fromBSON(v any) any {
	switch val := v.(type) {
	case bson.M:
		return map[string]any(toDocument(val))
	case map[string]any:
		return map[string]any(toDocument(bson.M(val)))
	case bson.D:
		m := make(map[string]any, len(val))
		for _, e := range val {
			m[e.Key] = fromBSON(e.Value)
		}
		return m
	case bson.A:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = fromBSON(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = fromBSON(item)
		}
		return out
	default:
		return store.NormalizeNumber(v)
	}
}

type (
	driver interface {
		Database(name string) database
		Ping(ctx context.Context) error
		Disconnect(ctx context.Context) error
	}

	database interface {
		Collection(name string) collection
	}

	collection interface {
		InsertOne(ctx context.Context, document any) (*mongodriver.InsertOneResult, error)
		FindOne(ctx context.Context, filter any) singleResult
		Find(ctx context.Context, filter any) (cursor, error)
		DeleteOne(ctx context.Context, filter any) (*mongodriver.DeleteResult, error)
		UpdateOne(ctx context.Context, filter, update any) (*mongodriver.UpdateResult, error)
	}

	singleResult interface {
		Decode(val any) error
	}

	cursor interface {
		All(ctx context.Context, results any) error
		Close(ctx context.Context) error
	}
)

type mongoDriver struct {
	client *mongodriver.Client
}

func (d mongoDriver) Database(name string) database {
	return mongoDatabase{db: d.client.Database(name)}
}

func (d mongoDriver) Ping(ctx context.Context) error {
	return d.client.Ping(ctx, readpref.Primary())
}

func (d mongoDriver) Disconnect(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

type mongoDatabase struct {
	db *mongodriver.Database
}

func (d mongoDatabase) Collection(name string) collection {
	return mongoCollection{coll: d.db.Collection(name)}
}

type mongoCollection struct {
	coll *mongodriver.Collection
}

func (c mongoCollection) InsertOne(ctx context.Context, document any) (*mongodriver.InsertOneResult, error) {
	return c.coll.InsertOne(ctx, document)
}

func (c mongoCollection) FindOne(ctx context.Context, filter any) singleResult {
	return c.coll.FindOne(ctx, filter)
}

func (c mongoCollection) Find(ctx context.Context, filter any) (cursor, error) {
	cur, err := c.coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	return cur, nil
}

func (c mongoCollection) DeleteOne(ctx context.Context, filter any) (*mongodriver.DeleteResult, error) {
	return c.coll.DeleteOne(ctx, filter)
}

func (c mongoCollection) UpdateOne(ctx context.Context, filter, update any) (*mongodriver.UpdateResult, error) {
	return c.coll.UpdateOne(ctx, filter, update)
}
