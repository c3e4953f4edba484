// Package memrelay is an in-memory relay node exposing the shh JSON-RPC API.
//
// It encrypts posted payloads the way a Whisper node does (ECIES for
// asymmetric topics, AES-GCM for symmetric ones) and delivers each envelope
// to every installed filter whose topic matches and whose key opens it.
// Nothing is persisted. It backs the development relay binary and the
// package tests; production deployments point at a real node instead.
package memrelay
