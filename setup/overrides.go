package setup

import (
	"strings"

	"github.com/clustermark/galerainit/cfg"
	"github.com/rs/zerolog/log"
)

// overrides carries the provisioning inputs shared with init scripts. Scripts
// see the current values in their environment and may rewrite the root-account
// inputs by emitting KEY=VALUE lines on stdout; database and user creation run
// before the init files, so those keys are recognized but arrive too late to
// change anything.
type overrides struct {
	Database string
	User     string
	Password string
	Root     cfg.RootConfiguration
}

func newOverrides(config *cfg.Configuration) *overrides {
	return &overrides{
		Database: config.Database.Name,
		User:     config.Database.User,
		Password: config.Database.Password,
		Root:     config.Root,
	}
}

// environ exposes the current values to an init script.
func (o *overrides) environ() []string {
	return []string{
		"MYSQL_DATABASE=" + o.Database,
		"MYSQL_USER=" + o.User,
		"MYSQL_PASSWORD=" + o.Password,
		"MYSQL_ROOT_HOST=" + o.Root.Host,
	}
}

// apply consumes one override line. Unknown keys are not overrides; the
// caller logs the line as plain script output instead.
func (o *overrides) apply(key, value string) bool {
	switch key {
	case "MYSQL_DATABASE", "MYSQL_USER", "MYSQL_PASSWORD":
		log.Warn().Str("key", key).Msg("Override arrived after database and user creation, ignoring")
	case "MYSQL_ROOT_PASSWORD":
		o.Root.Password = value
	case "MYSQL_ROOT_HOST":
		o.Root.Host = value
	case "MYSQL_RANDOM_ROOT_PASSWORD":
		o.Root.RandomPassword = truthy(value)
	case "MYSQL_ALLOW_EMPTY_PASSWORD":
		o.Root.AllowEmpty = truthy(value)
	case "MYSQL_ONETIME_PASSWORD":
		o.Root.ExpirePassword = truthy(value)
	default:
		return false
	}
	return true
}

func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "", "0", "false", "no", "off":
		return false
	}
	return true
}
