package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
database:
  host: localhost
  user: library
  dbname: library
`))
	require.NoError(t, err)

	assert.Equal(t, ModeDev, cfg.Mode)
	assert.Equal(t, ":8443", cfg.Server.Addr)
	assert.Equal(t, 3306, cfg.DB.Port)
	assert.Equal(t, 14, cfg.Library.LoanPeriodDays)
	assert.Equal(t, 3, cfg.Library.MaxActiveBorrowings)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestParseExpandsEnv(t *testing.T) {
	t.Setenv("LIBRARY_DB_PASSWORD", "s3cret")
	t.Setenv("LIBRARY_JWT_SECRET", "signing-key")

	cfg, err := Parse([]byte(`
mode: release
database:
  dbname: library
  password: ${LIBRARY_DB_PASSWORD}
auth:
  jwt_secret: ${LIBRARY_JWT_SECRET}
library:
  timezone: Asia/Tokyo
  overdue_sweep: "5 0 * * *"
`))
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.DB.Password)
	assert.Equal(t, "signing-key", cfg.Auth.JWTSecret)
	assert.Equal(t, "5 0 * * *", cfg.Library.OverdueSweep)
	assert.Equal(t, "Asia/Tokyo", cfg.Location().String())
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"unknown mode":         "mode: staging\ndatabase: {dbname: x}\n",
		"missing dbname":       "mode: dev\n",
		"release without jwt":  "mode: release\ndatabase: {dbname: x}\n",
		"bad timezone":         "database: {dbname: x}\nlibrary: {timezone: Mars/Olympus}\n",
		"negative loan period": "database: {dbname: x}\nlibrary: {loan_period_days: -1}\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  dbname: library\nserver:\n  certificate: {cert: a.pem, key: a.key}\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	cert, key := cfg.TLSFiles()
	assert.Equal(t, "config/tls/dev/a.pem", cert)
	assert.Equal(t, "config/tls/dev/a.key", key)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
