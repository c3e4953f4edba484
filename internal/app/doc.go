// Package app wires the VASP messaging stack for the CLI: identity and
// directory, relay connection, dispatcher, confirmations, snapshots and the
// session manager. It also holds the scripted originator and beneficiary
// drivers used by the commands.
package app
