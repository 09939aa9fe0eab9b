// Package mongo provides the MongoDB-backed implementation of store.Store.
// Build the low-level client via store/mongo/clients/mongo (or use the
// in-memory client from its inmem subpackage) and pass it to NewStore, or let
// NewStoreFromMongo build both from connection options.
//
// The store adds argument validation, the wallet-database logging policy,
// telemetry and *store.Error wrapping on top of the client. Lookups of
// missing documents return errors matching store.ErrNotFound and are never
// logged at error level.
package mongo
