// Package types holds the plain data types shared across vaspwire: VASP codes
// and topics, key material, the seven protocol messages, the transfer context,
// relay request shapes and persisted session snapshots.
package types
