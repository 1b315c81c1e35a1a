// Package cli wires together the Cobra command tree for the diffcore binary.
//
// It defines the root command and all subcommands (parse, unstaged, staged,
// commit, range, preflight, watch, prefs, config, version), binds flags,
// reads configuration and preferences, runs the parser, and returns
// deterministic exit codes.
package cli
