// Package domain is the vocabulary shared by every vaspwire package: VASP
// codes and topics, keys, the seven protocol messages, session snapshots and
// the store, relay and resolver contracts. The definitions live in the types
// and interfaces subpackages and are re-exported here.
package domain
