package pgreset

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Host:     "localhost",
		Port:     "5432",
		Database: "parish_dev",
		User:     "grace",
		Password: "!development",
	}.WithDefaults()
}

func TestValidateOK(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidateMissingFields(t *testing.T) {
	fields := map[string]func(*Config){
		"host":     func(c *Config) { c.Host = "" },
		"port":     func(c *Config) { c.Port = " " },
		"database": func(c *Config) { c.Database = "" },
		"user":     func(c *Config) { c.User = "" },
		"password": func(c *Config) { c.Password = "" },
	}

	for name, clear := range fields {
		cfg := validConfig()
		clear(&cfg)
		err := cfg.Validate()
		require.Error(t, err, name)
		assert.True(t, errors.Is(err, ErrConfiguration), name)
		assert.Contains(t, err.Error(), name)
	}
}

func TestValidateReportsAllMissing(t *testing.T) {
	err := Config{}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host, port, database, user, password")
}

func TestValidateRejectsBadPort(t *testing.T) {
	for _, port := range []string{"abc", "0", "70000"} {
		cfg := validConfig()
		cfg.Port = port
		assert.True(t, errors.Is(cfg.Validate(), ErrConfiguration), port)
	}
}

func TestValidateRejectsUnsafeDatabaseName(t *testing.T) {
	for _, name := range []string{`x"; drop database postgres; --`, "1abc", "with space", "a'b"} {
		cfg := validConfig()
		cfg.Database = name
		assert.True(t, errors.Is(cfg.Validate(), ErrConfiguration), name)
	}
}

func TestValidateRejectsAdminDatabase(t *testing.T) {
	cfg := validConfig()
	cfg.Database = "postgres"
	assert.True(t, errors.Is(cfg.Validate(), ErrConfiguration))
}

func TestWithDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := Config{SSLMode: "require", ConnectTimeout: 3 * time.Second}.WithDefaults()
	assert.Equal(t, "require", cfg.SSLMode)
	assert.Equal(t, 3*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, "postgres", cfg.AdminDatabase)
	assert.Equal(t, "public", cfg.Schema)
}

func TestDSN(t *testing.T) {
	cfg := validConfig()
	cfg.Password = "it's secret"
	dsn := cfg.DSN("postgres")
	assert.Equal(t,
		`host=localhost port=5432 dbname=postgres user=grace password='it\'s secret' sslmode=disable application_name=pgreset connect_timeout=10`,
		dsn)
}

func TestStringHidesPassword(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, "grace@localhost:5432/parish_dev", cfg.String())
	assert.NotContains(t, cfg.String(), cfg.Password)
}
