// Package commands defines the vaspwire CLI and wires dependencies for subcommands.
//
// Commands
//
//   - init                Create the local VASP identity
//   - fingerprint         Print the VASP code and key fingerprint
//   - directory list      Show the known VASPs
//   - directory export    Write the local VASP's public entry to a file
//   - directory import    Add the VASPs listed in a directory file
//   - directory remove    Forget a VASP
//   - serve               Answer incoming transfers as the beneficiary
//   - transfer            Send a transfer to a peer as the originator
//   - demo                Run both sides of a transfer in one process
//
// # Implementation
//
// The root command loads the TOML configuration, sets up logging and builds
// the passphrase-free part of the stack before any subcommand runs. Commands
// that talk to the relay unlock the identity and open a full app.
package commands
