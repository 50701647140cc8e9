package config

import (
	"flag"
	"os"
	"time"
)

// ParseFlags parses all configuration flags from os.Args.
//
// Flags:
//
//	-d local database DSN (SQLite file path)
//	-remote-http remote store HTTP base URL
//	-remote-ws remote store websocket subscription URL
//	-request-timeout request timeout (e.g., "30s", "1m")
//	-drain-interval write buffer drain interval (e.g., "5s")
//	-backoff-base initial send retry backoff (e.g., "500ms")
//	-backoff-retries in-drain retry attempts per op
//	-c/-config json file path with configs
func ParseFlags() *StructuredConfig {
	return parseFlags(os.Args[1:])
}

// parseFlags parses args with a private FlagSet so tests can supply their own
// argument vectors without touching global flag state.
func parseFlags(args []string) *StructuredConfig {
	fs := flag.NewFlagSet("replica", flag.ContinueOnError)

	var databaseDSN string
	var remoteHTTP string
	var remoteWS string
	var requestTimeout time.Duration
	var drainInterval time.Duration
	var backoffBase time.Duration
	var backoffRetries uint64
	var jsonConfigPath string

	fs.StringVar(&databaseDSN, "d", "", "Local database DSN")
	fs.StringVar(&remoteHTTP, "remote-http", "", "Remote store HTTP base URL")
	fs.StringVar(&remoteWS, "remote-ws", "", "Remote store websocket URL")
	fs.DurationVar(&requestTimeout, "request-timeout", 0, "Request timeout (e.g., 30s, 1m)")
	fs.DurationVar(&drainInterval, "drain-interval", 0, "Drain interval (e.g., 5s)")
	fs.DurationVar(&backoffBase, "backoff-base", 0, "Initial send retry backoff (e.g., 500ms)")
	fs.Uint64Var(&backoffRetries, "backoff-retries", 0, "In-drain retry attempts per op")
	fs.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	fs.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")

	// parse errors leave the affected fields zero; defaults fill them later
	_ = fs.Parse(args)

	return &StructuredConfig{
		Storage: Storage{
			DB: LocalDB{
				DSN: databaseDSN,
			},
		},
		Remote: Remote{
			HTTPAddress:    remoteHTTP,
			WSAddress:      remoteWS,
			RequestTimeout: requestTimeout,
		},
		Sync: Sync{
			DrainInterval:  drainInterval,
			BackoffBase:    backoffBase,
			BackoffRetries: backoffRetries,
		},
		JSONFilePath: jsonConfigPath,
	}
}
