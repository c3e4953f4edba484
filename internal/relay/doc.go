// Package relay talks to a Whisper-compatible relay network over JSON-RPC.
//
// Client implements domain.RelayClient on top of go-ethereum's rpc client,
// calling the shh_* methods of a node (or of the in-memory relay in
// package memrelay). Topics, keys and payloads use the same JSON encoding as
// the Whisper v6 API so any node exposing that API can serve as the relay.
//
// The client is stateless apart from the connection. Key and filter
// identifiers returned by the node are opaque strings and belong to the
// caller.
package relay
