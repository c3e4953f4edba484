// Package main runs an in-memory relay node for development and tests. It
// serves the shh JSON-RPC namespace used by vaspwire over HTTP at "/" and
// over websockets at "/ws".
//
// Methods
//
//	shh_post                 Seal and publish a payload on a topic.
//	shh_newMessageFilter     Create a filter for topics and a key id.
//	shh_getFilterMessages    Drain the messages a filter collected.
//	shh_deleteMessageFilter  Drop a filter.
//	shh_addPrivateKey        Register a private key; returns its id.
//	shh_deleteKeyPair        Drop a private key.
//	shh_addSymKey            Register a 32 byte symmetric key; returns its id.
//	shh_deleteSymKey         Drop a symmetric key.
//
// Behaviour
//
//   - All state is held in memory and lost on process exit.
//   - A message is delivered only to filters that existed when it was
//     posted, and is dropped once its TTL has passed.
//   - Access is logged at trace level.
//   - The default listen address is :8545.
//
// The relay sees only ciphertext addressed by topic. It holds the private
// and symmetric keys its clients register, so run it on a trusted host.
package main
