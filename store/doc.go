// Package store provides core.Store implementations: an in-memory backend
// for tests and ephemeral deployments, and a SQLite backend (subpackage
// sqlite) for durable single-node persistence.
package store
