/*
Package storage provides the local key-value persistence backing the
relation layer.

Values are stored JSON-encoded under caller-namespaced keys. BoltStore is
the durable implementation (a single bbolt bucket in
<dataDir>/pacelink.db); MemStore backs tests.
*/
package storage
