package cfg

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/gobwas/glob"
	"github.com/rs/zerolog/log"
)

// DatabaseConfiguration holds the application database provisioning inputs.
type DatabaseConfiguration struct {
	Name     string `toml:"name"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

// RootConfiguration controls how the root account is set up during provisioning.
// Exactly one of Password, RandomPassword or AllowEmpty must be in effect by the
// time the root batch runs; that completeness check belongs to the setup phase
// because join paths never provision at all.
type RootConfiguration struct {
	Password       string `toml:"password"`
	RandomPassword bool   `toml:"random_password"`
	AllowEmpty     bool   `toml:"allow_empty"`
	Host           string `toml:"host"`
	ExpirePassword bool   `toml:"expire_password"`
}

// TimezoneConfiguration controls timezone table loading.
type TimezoneConfiguration struct {
	LoadTzdata  bool   `toml:"load_tzdata"`
	ZoneinfoDir string `toml:"zoneinfo_dir"`
}

// ClusterConfiguration carries the externally supplied join addresses.
type ClusterConfiguration struct {
	JoinAddresses []string `toml:"join_addresses"`
}

// InitConfiguration describes the custom-init directory scan.
type InitConfiguration struct {
	Dir         string `toml:"dir"`
	FilePattern string `toml:"file_pattern"`
}

// LoggingConfiguration controls logging behavior
type LoggingConfiguration struct {
	Verbose bool   `toml:"verbose"`
	Format  string `toml:"format"` // "console" or "json"
}

// ServerConfiguration names the external binaries this process drives.
type ServerConfiguration struct {
	Binary         string `toml:"binary"`
	ClientBinary   string `toml:"client_binary"`
	TzDataBinary   string `toml:"tzdata_binary"`
	RecoveryBinary string `toml:"recovery_binary"`
}

// Configuration is the main configuration structure. It is built once at
// startup and treated as immutable afterwards.
type Configuration struct {
	Database DatabaseConfiguration `toml:"database"`
	Root     RootConfiguration     `toml:"root"`
	Timezone TimezoneConfiguration `toml:"timezone"`
	Cluster  ClusterConfiguration  `toml:"cluster"`
	Init     InitConfiguration     `toml:"init"`
	Logging  LoggingConfiguration  `toml:"logging"`
	Server   ServerConfiguration   `toml:"server"`
}

// DefaultConfigPath is consulted when GALERAINIT_CONFIG is not set.
const DefaultConfigPath = "/etc/galerainit.toml"

// Defaults returns a fresh Configuration with built-in defaults.
func Defaults() *Configuration {
	return &Configuration{
		Root: RootConfiguration{
			Host: "%",
		},
		Timezone: TimezoneConfiguration{
			LoadTzdata:  true,
			ZoneinfoDir: "/usr/share/zoneinfo",
		},
		Init: InitConfiguration{
			Dir:         "/docker-entrypoint-initdb.d",
			FilePattern: "*",
		},
		Logging: LoggingConfiguration{
			Verbose: false,
			Format:  "console",
		},
		Server: ServerConfiguration{
			Binary:         "mariadbd",
			ClientBinary:   "mariadb",
			TzDataBinary:   "mariadb-tzinfo-to-sql",
			RecoveryBinary: "galera_recovery",
		},
	}
}

// Load builds the configuration from defaults, an optional TOML file and the
// environment, in that precedence order (environment wins).
func Load() (*Configuration, error) {
	config := Defaults()

	path := os.Getenv("GALERAINIT_CONFIG")
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath
	}
	if _, err := os.Stat(path); err == nil {
		log.Info().Str("path", path).Msg("Loading configuration file")
		if _, err := toml.DecodeFile(path, config); err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
	} else if explicit {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	if err := applyEnv(config); err != nil {
		return nil, err
	}

	if err := Validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnv overlays the documented environment schema onto config. Credential
// variables go through ResolveSecret so each may be redirected through its
// _FILE companion.
func applyEnv(c *Configuration) error {
	var err error
	if c.Database.Name, err = ResolveSecret("MYSQL_DATABASE", c.Database.Name); err != nil {
		return err
	}
	if c.Database.User, err = ResolveSecret("MYSQL_USER", c.Database.User); err != nil {
		return err
	}
	if c.Database.Password, err = ResolveSecret("MYSQL_PASSWORD", c.Database.Password); err != nil {
		return err
	}
	if c.Root.Password, err = ResolveSecret("MYSQL_ROOT_PASSWORD", c.Root.Password); err != nil {
		return err
	}
	if c.Root.Host, err = ResolveSecret("MYSQL_ROOT_HOST", c.Root.Host); err != nil {
		return err
	}

	c.Root.RandomPassword = boolEnv("MYSQL_RANDOM_ROOT_PASSWORD", c.Root.RandomPassword)
	c.Root.AllowEmpty = boolEnv("MYSQL_ALLOW_EMPTY_PASSWORD", c.Root.AllowEmpty)
	c.Root.ExpirePassword = boolEnv("MYSQL_ONETIME_PASSWORD", c.Root.ExpirePassword)

	if boolEnv("MYSQL_INITDB_SKIP_TZINFO", false) {
		c.Timezone.LoadTzdata = false
	}

	if v := os.Getenv("GALERA_CLUSTER_ADDRESS"); v != "" {
		c.Cluster.JoinAddresses = splitAddresses(v)
	}

	if v := os.Getenv("GALERAINIT_INITDB_DIR"); v != "" {
		c.Init.Dir = v
	}
	if v := os.Getenv("GALERAINIT_INITDB_PATTERN"); v != "" {
		c.Init.FilePattern = v
	}

	c.Logging.Verbose = boolEnv("GALERAINIT_VERBOSE", c.Logging.Verbose)
	if v := os.Getenv("GALERAINIT_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}

	return nil
}

// splitAddresses parses a comma-separated peer list, dropping empty entries.
// A "gcomm://" prefix on the whole value is tolerated since operators paste
// cluster addresses in that form.
func splitAddresses(v string) []string {
	v = strings.TrimPrefix(strings.TrimSpace(v), "gcomm://")
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// boolEnv interprets the usual truthy spellings; unset or empty keeps def.
func boolEnv(name string, def bool) bool {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	log.Warn().Str("var", name).Str("value", v).Msg("Unrecognized boolean value, treating as true")
	return true
}

// Validate checks configuration for errors
func Validate(c *Configuration) error {
	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		return fmt.Errorf("invalid logging format: %s", c.Logging.Format)
	}

	if _, err := glob.Compile(c.Init.FilePattern); err != nil {
		return fmt.Errorf("invalid init file pattern %q: %w", c.Init.FilePattern, err)
	}

	if c.Root.AllowEmpty && c.Root.Password != "" {
		return fmt.Errorf("MYSQL_ALLOW_EMPTY_PASSWORD and MYSQL_ROOT_PASSWORD are mutually exclusive")
	}
	if c.Root.AllowEmpty && c.Root.RandomPassword {
		return fmt.Errorf("MYSQL_ALLOW_EMPTY_PASSWORD and MYSQL_RANDOM_ROOT_PASSWORD are mutually exclusive")
	}
	if c.Root.RandomPassword && c.Root.Password != "" {
		return fmt.Errorf("MYSQL_RANDOM_ROOT_PASSWORD and MYSQL_ROOT_PASSWORD are mutually exclusive")
	}

	if c.Server.Binary == "" {
		return fmt.Errorf("server binary must not be empty")
	}

	return nil
}
