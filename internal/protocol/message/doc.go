// Package message converts protocol messages to and from their canonical
// byte form.
//
// The canonical form is the JSON encoding of the concrete message struct. The
// header's type tag is read first and must name one of the seven protocol
// message types; only then is the type-specific body decoded. Validate
// performs the structural checks every consumer relies on (ids present,
// handshake key lengths, transfer fields required by each step).
package message
