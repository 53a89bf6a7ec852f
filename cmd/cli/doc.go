// Package cli assembles the labaudit command-line application: the
// root command, configuration loading, structured logging, and the
// audit and scheduler subcommands.
package cli
