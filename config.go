package pgreset

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/imdario/mergo"
)

// DefaultAdminDatabase is the maintenance database used for CREATE/DROP DATABASE.
const DefaultAdminDatabase = "postgres"

// Config are the options for connecting to the server and the application
// database. A Config is a value; copy it freely, never mutate a shared one.
type Config struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string

	// SSLMode is passed through as libpq sslmode. Default "disable".
	SSLMode string
	// AdminDatabase is the database administrative sessions connect to.
	AdminDatabase string
	// Schema is the schema whose base tables are counted and reconciled.
	Schema string
	// ApplicationName is reported in pg_stat_activity.
	ApplicationName string
	// ConnectTimeout bounds establishing a connection.
	ConnectTimeout time.Duration
}

var defaultConfig = Config{
	SSLMode:         "disable",
	AdminDatabase:   DefaultAdminDatabase,
	Schema:          "public",
	ApplicationName: "pgreset",
	ConnectTimeout:  10 * time.Second,
}

// reIdentifier is the grammar accepted for names which end up in DDL.
var reIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$-]{0,62}$`)

// ValidIdentifier reports whether name is safe to splice into DDL once quoted.
func ValidIdentifier(name string) bool {
	return reIdentifier.MatchString(name)
}

// WithDefaults returns a copy of cfg with unset optional fields filled in.
func (cfg Config) WithDefaults() Config {
	out := cfg
	if err := mergo.Merge(&out, defaultConfig); err != nil {
		// only fails for mismatched types
		panic(err)
	}
	return out
}

// Validate checks every required field is present and well formed. It never
// touches the network.
func (cfg Config) Validate() error {
	var missing []string
	required := []struct {
		name  string
		value string
	}{
		{"host", cfg.Host},
		{"port", cfg.Port},
		{"database", cfg.Database},
		{"user", cfg.User},
		{"password", cfg.Password},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return NewError(ErrConfiguration, "missing", strings.Join(missing, ", "), nil)
	}

	port, err := strconv.Atoi(cfg.Port)
	if err != nil || port < 1 || port > 65535 {
		return NewError(ErrConfiguration, "port", cfg.Port, fmt.Errorf("must be 1-65535"))
	}

	if !ValidIdentifier(cfg.Database) {
		return NewError(ErrConfiguration, "database", cfg.Database,
			fmt.Errorf("name must match %s", reIdentifier.String()))
	}
	if cfg.AdminDatabase != "" && !ValidIdentifier(cfg.AdminDatabase) {
		return NewError(ErrConfiguration, "admin database", cfg.AdminDatabase,
			fmt.Errorf("name must match %s", reIdentifier.String()))
	}
	if cfg.AdminDatabase == cfg.Database {
		return NewError(ErrConfiguration, "database", cfg.Database,
			fmt.Errorf("cannot recreate the admin database"))
	}
	if cfg.Schema != "" && !ValidIdentifier(cfg.Schema) {
		return NewError(ErrConfiguration, "schema", cfg.Schema,
			fmt.Errorf("name must match %s", reIdentifier.String()))
	}
	return nil
}

// DSN returns a libpq key/value connection string for the given database.
func (cfg Config) DSN(database string) string {
	var sb strings.Builder
	writeKV := func(key, value string) {
		if value == "" {
			return
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(key)
		sb.WriteByte('=')
		sb.WriteString(quoteDSNValue(value))
	}

	writeKV("host", cfg.Host)
	writeKV("port", cfg.Port)
	writeKV("dbname", database)
	writeKV("user", cfg.User)
	writeKV("password", cfg.Password)
	writeKV("sslmode", cfg.SSLMode)
	writeKV("application_name", cfg.ApplicationName)
	if cfg.ConnectTimeout > 0 {
		secs := int(cfg.ConnectTimeout / time.Second)
		if secs < 1 {
			secs = 1
		}
		writeKV("connect_timeout", strconv.Itoa(secs))
	}
	return sb.String()
}

// String describes the target without the password.
func (cfg Config) String() string {
	return fmt.Sprintf("%s@%s:%s/%s", cfg.User, cfg.Host, cfg.Port, cfg.Database)
}

// quoteDSNValue quotes a value per libpq rules: single quotes around values with
// spaces or quotes, backslash-escaping ' and \.
func quoteDSNValue(value string) string {
	if !strings.ContainsAny(value, ` '\`) {
		return value
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(value) + "'"
}
