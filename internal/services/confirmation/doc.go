// Package confirmation implements optional at-least-once delivery
// acknowledgements.
//
// For every outgoing message the sender subscribes to a topic derived from
// the message id, keyed with its own handshake key. The receiver, after
// verifying the message, posts a short acknowledgement on that topic
// encrypted to the sender's published handshake key. When disabled, the
// service never touches the transport.
package confirmation
