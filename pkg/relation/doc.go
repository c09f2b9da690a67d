/*
Package relation exchanges Pacemaker resource configuration with an
hacluster peer over a relation.

The Manager owns the update cycle: it loads the stored configuration from
the local key-value store, applies incremental changes (AddVIP, AddDNSHA,
AddInitService, AddSystemdService, DeleteResource), and publishes the
result with ManageResources. Publication is fingerprinted: the md5 of the
sorted-key JSON serialization is compared against the last published one,
and an unchanged configuration is never re-sent. Each non-empty field
crosses the channel as an individually JSON-encoded json_<field> key.

The relation walks a small lifecycle: initial until a peer joins,
connected once one has, and available when a peer unit publishes a truthy
"clustered" flag. Peer departure reverts the lifecycle to initial. State
transitions are reported through the optional event broker, including
ha.ready when the cluster forms.

The Channel interface abstracts the peer transport; the surrounding
orchestration layer supplies the real one, and InMemoryChannel serves
tests and local tooling.
*/
package relation
