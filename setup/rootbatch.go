package setup

import (
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/clustermark/galerainit/cfg"
	"github.com/rs/zerolog/log"
)

// RootPlan is the resolved root-account policy the batch is built from.
type RootPlan struct {
	Password   string
	AllowEmpty bool
	Host       string
	Expire     bool
}

// ResolveRootPlan picks the effective root password source: a configured
// literal, a freshly generated random password (logged once, never
// persisted), or an explicit empty-password acknowledgement.
func ResolveRootPlan(root cfg.RootConfiguration) (RootPlan, error) {
	plan := RootPlan{Host: root.Host, Expire: root.ExpirePassword}

	switch {
	case root.RandomPassword:
		password, err := randomPassword()
		if err != nil {
			return RootPlan{}, err
		}
		plan.Password = password
		log.Warn().Str("password", password).Msg("GENERATED ROOT PASSWORD")
	case root.Password != "":
		plan.Password = root.Password
	case root.AllowEmpty:
		plan.AllowEmpty = true
		log.Warn().Msg("Root account will have an empty password; this is insecure outside development")
	default:
		return RootPlan{}, fmt.Errorf("root password policy unset: set MYSQL_ROOT_PASSWORD, MYSQL_RANDOM_ROOT_PASSWORD or MYSQL_ALLOW_EMPTY_PASSWORD")
	}

	return plan, nil
}

func randomPassword() (string, error) {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate root password: %w", err)
	}
	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(buf), nil
}

// BuildRootBatch composes the root-account statement set. Replication logging
// is disabled for the session first so these administrative changes never
// propagate as data changes; the remote root account is created only when a
// non-local host pattern is configured; the local root password statement is
// omitted only under the explicit empty-password acknowledgement; the batch
// always ends with a privilege flush.
func BuildRootBatch(plan RootPlan) []string {
	stmts := []string{"SET @@SESSION.SQL_LOG_BIN=0;"}

	if plan.Host != "" && plan.Host != "localhost" {
		stmts = append(stmts,
			fmt.Sprintf("CREATE USER IF NOT EXISTS 'root'@%s IDENTIFIED BY %s;", quoteString(plan.Host), quoteString(plan.Password)),
			fmt.Sprintf("GRANT ALL PRIVILEGES ON *.* TO 'root'@%s WITH GRANT OPTION;", quoteString(plan.Host)),
		)
		if plan.Expire {
			stmts = append(stmts, fmt.Sprintf("ALTER USER 'root'@%s PASSWORD EXPIRE;", quoteString(plan.Host)))
		}
	}

	if !plan.AllowEmpty {
		stmts = append(stmts, fmt.Sprintf("ALTER USER 'root'@'localhost' IDENTIFIED BY %s;", quoteString(plan.Password)))
	}

	return append(stmts, "FLUSH PRIVILEGES;")
}

// JoinBatch renders the statement set as a single multi-statement payload.
func JoinBatch(stmts []string) string {
	return strings.Join(stmts, "\n")
}

func quoteString(v string) string {
	return "'" + strings.NewReplacer(`\`, `\\`, "'", `\'`).Replace(v) + "'"
}

func quoteIdentifier(v string) string {
	return "`" + strings.ReplaceAll(v, "`", "``") + "`"
}
