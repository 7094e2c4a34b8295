// Package cmd provides CLI commands for the windlass binary.
package cmd

import "github.com/urfave/cli/v2"

// Shared flags.
var (
	// ConfigFlag points at the windlass.yaml config file.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to windlass.yaml config file",
	}

	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// BaseURLFlag overrides the remote service base URL.
	BaseURLFlag = &cli.StringFlag{
		Name:  "base-url",
		Usage: "Remote service base URL (overrides config)",
	}

	// TokenFlag overrides the remote service API token.
	TokenFlag = &cli.StringFlag{
		Name:  "token",
		Usage: "Remote service API token (overrides config)",
	}
)

// CommonFlags returns the flags shared by every command that talks to the
// remote service.
func CommonFlags() []cli.Flag {
	return []cli.Flag{
		ConfigFlag,
		FormatFlag,
		BaseURLFlag,
		TokenFlag,
	}
}
