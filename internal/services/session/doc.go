// Package session drives transfers through the seven protocol messages and
// keeps the registry of live sessions.
//
// A Session is one side of one transfer. The originator side is created by
// Manager.CreateOriginatorSession: it draws an ephemeral handshake key and a
// random topic, derives the shared secret against the peer's published
// handshake key and, on StartTransfer, sends the SessionRequest encrypted to
// the peer's VASP topic. The beneficiary side is created by the Manager when
// such a request arrives; it derives the same secret from its own handshake
// key and the ephemeral key embedded in the request. From the SessionReply
// on, each side listens on its own topic and posts to the peer's, both
// symmetrically encrypted with the shared secret.
//
// Every message, sent or received, must be the next one in
// domain.MessageSequence for the session (a Termination is always allowed).
// Anything else yields a *SequenceError and leaves the session unchanged.
// A Termination, in either direction, removes the session from the Manager.
//
// A session is only registered once its topic subscription is active, so a
// session that can be looked up is also receiving.
package session
