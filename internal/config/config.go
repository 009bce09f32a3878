// Package config implements spec.md §6's CLI surface: a single-binary
// daemon's flags and an optional YAML config file, built the way
// cuemby-warren's cmd/warren entrypoint builds its flag surface
// (cobra.Command + PersistentFlags, see DESIGN.md) since the teacher's
// own getenv/mustGetenv pair is too thin a story for a multi-flag daemon
// on its own. That pair is kept here as the final fallback layer below
// flags and file.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Config holds every knob spec.md §6's CLI surface exposes, resolved
// from (in increasing precedence) environment variables, an optional
// YAML config file, and command-line flags.
type Config struct {
	Port            int    `yaml:"port"`
	Bind            string `yaml:"bind"`
	MaxMemory       int64  `yaml:"maxmemory"`
	MaxMemoryPolicy string `yaml:"maxmemory-policy"`
	DBNum           int    `yaml:"dbnum"`
	Daemonize       bool   `yaml:"daemonize"`
	LogLevel        string `yaml:"loglevel"`
	AppendOnly      bool   `yaml:"appendonly"`
	// ClusterEnabled is accepted for compatibility; cluster mode is out
	// of scope, so setting it never turns on clustering and never causes
	// a redirect (the dispatcher's redirect gate is an empty branch).
	ClusterEnabled bool `yaml:"cluster-enabled"`
	TestMemory     bool `yaml:"-"`
}

// Default returns the built-in defaults, matching spec.md's documented
// defaults for an unconfigured server.
func Default() Config {
	return Config{
		Port:            6379,
		Bind:            getenv("REDIS_BIND", "0.0.0.0"),
		MaxMemory:       0,
		MaxMemoryPolicy: "noeviction",
		DBNum:           16,
		Daemonize:       false,
		LogLevel:        getenv("REDIS_LOGLEVEL", "notice"),
		AppendOnly:      false,
		ClusterEnabled:  false,
	}
}

// Parse builds the root cobra.Command for the daemon, parses args
// against it, and returns the resolved Config. version is substituted
// into -v/--version. A positional config-file argument, if present, is
// loaded and merged beneath the flags (flags always win, per the usual
// CLI-over-file-over-env precedence).
func Parse(args []string, version string) (Config, error) {
	cfg := Default()
	var configFile string

	var showVersion bool
	root := &cobra.Command{
		Use:           "redis-server [config file]",
		Short:         "An in-memory key/value data-structure server",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, posArgs []string) error {
			if showVersion {
				fmt.Fprintf(cmd.OutOrStdout(), "redis-server version %s\n", version)
				os.Exit(0)
			}
			if len(posArgs) == 1 {
				configFile = posArgs[0]
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.BoolVarP(&showVersion, "version", "v", false, "print the server version and exit")
	flags.IntVar(&cfg.Port, "port", cfg.Port, "TCP port to listen on (0 disables the TCP listener)")
	flags.StringVar(&cfg.Bind, "bind", cfg.Bind, "address to bind the listener to")
	flags.Int64Var(&cfg.MaxMemory, "maxmemory", cfg.MaxMemory, "maximum memory in bytes before eviction kicks in (0 = unlimited)")
	flags.StringVar(&cfg.MaxMemoryPolicy, "maxmemory-policy", cfg.MaxMemoryPolicy, "eviction policy once maxmemory is reached")
	flags.IntVar(&cfg.DBNum, "dbnum", cfg.DBNum, "number of logical databases")
	flags.BoolVar(&cfg.Daemonize, "daemonize", cfg.Daemonize, "run as a background daemon and write a PID file")
	flags.StringVar(&cfg.LogLevel, "loglevel", cfg.LogLevel, "log level: debug, verbose, notice, warning")
	flags.BoolVar(&cfg.AppendOnly, "appendonly", cfg.AppendOnly, "enable append-only propagation")
	flags.BoolVar(&cfg.ClusterEnabled, "cluster-enabled", cfg.ClusterEnabled, "accepted for compatibility; cluster mode is not implemented")
	flags.BoolVar(&cfg.TestMemory, "test-memory", cfg.TestMemory, "check the server's memory allocator and exit")

	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		return Config{}, err
	}

	if configFile != "" {
		fileCfg, err := LoadFile(configFile)
		if err != nil {
			return Config{}, err
		}
		cfg = mergeFileBeneathFlags(fileCfg, cfg, flags)
	}

	return cfg, nil
}

// LoadFile reads a YAML config file into a Config, starting from
// Default() so an omitted field keeps its built-in default.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// mergeFileBeneathFlags layers the file's values under the flags: a
// flag the caller actually set on the command line always wins, since
// cobra applies defaults to every flag whether or not it was passed.
func mergeFileBeneathFlags(file, flagged Config, flags interface {
	Changed(string) bool
}) Config {
	out := file
	if flags.Changed("port") {
		out.Port = flagged.Port
	}
	if flags.Changed("bind") {
		out.Bind = flagged.Bind
	}
	if flags.Changed("maxmemory") {
		out.MaxMemory = flagged.MaxMemory
	}
	if flags.Changed("maxmemory-policy") {
		out.MaxMemoryPolicy = flagged.MaxMemoryPolicy
	}
	if flags.Changed("dbnum") {
		out.DBNum = flagged.DBNum
	}
	if flags.Changed("daemonize") {
		out.Daemonize = flagged.Daemonize
	}
	if flags.Changed("loglevel") {
		out.LogLevel = flagged.LogLevel
	}
	if flags.Changed("appendonly") {
		out.AppendOnly = flagged.AppendOnly
	}
	if flags.Changed("cluster-enabled") {
		out.ClusterEnabled = flagged.ClusterEnabled
	}
	out.TestMemory = flagged.TestMemory
	return out
}

// ListenAddr joins Bind and Port into the address internal/server.New
// expects.
func (c Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}

// PIDFilePath returns where cmd/redis-server should write its PID file
// when Daemonize is set. The directory is required via mustGetenv: a
// daemonized server with nowhere durable to put its PID file is a
// misconfiguration worth failing fast on, not silently falling back
// from.
func (c Config) PIDFilePath() string {
	return mustGetenv("REDIS_PIDFILE_DIR") + "/redis-server.pid"
}

// AOFPath returns where cmd/redis-server should open its append-only
// log when AppendOnly is set. Unlike the PID file, a missing directory
// override just falls back to the working directory rather than
// failing the process outright: losing durability on a misconfigured
// dev box is recoverable in a way a daemon that can't even start isn't.
func (c Config) AOFPath() string {
	return getenv("REDIS_AOF_DIR", ".") + "/appendonly.aof"
}

// getenv retrieves an environment variable or returns def, kept from
// the teacher as the final fallback layer beneath flags and config
// file.
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// mustGetenv retrieves a required environment variable, terminating the
// program if it's unset.
func mustGetenv(k string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	fmt.Fprintf(os.Stderr, "config: missing required environment variable %s\n", k)
	os.Exit(1)
	return ""
}

// NormalizeLogLevel maps spec.md's redis-flavored level names onto the
// zerolog-flavored names internal/logging understands.
func NormalizeLogLevel(level string) string {
	switch strings.ToLower(level) {
	case "verbose":
		return "debug"
	case "notice":
		return "info"
	default:
		return strings.ToLower(level)
	}
}
