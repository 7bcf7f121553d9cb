// Package sqlstore persists helper state in a relational database, one row
// per namespace/key pair in a single state table.
//
// Two backends implement the same StateStore interface: SQLite for
// single-node deployments and PostgreSQL for shared ones. The Adapter binds
// a StateStore to one namespace.
package sqlstore
