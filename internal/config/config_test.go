package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimalConfig = `
database:
  dsn: postgres://localhost/listings
feed:
  sources:
    - region: "Provence"
      url: https://feeds.example.com/provence.xml
      enabled: true
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, 4002, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Feed.Timeout)
	assert.Equal(t, 2, cfg.Sync.Workers)
	assert.Equal(t, 6*time.Hour, cfg.Sync.Interval)
	assert.Equal(t, 5*time.Minute, cfg.Sync.CacheTTL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("TEST_LISTINGS_DSN", "postgres://db.internal/listings")
	cfg, err := Load(writeConfig(t, `
database:
  dsn: ${TEST_LISTINGS_DSN}
feed:
  sources:
    - region: "Alps"
      url: https://feeds.example.com/alps.xml
      enabled: true
`))
	require.NoError(t, err)
	assert.Equal(t, "postgres://db.internal/listings", cfg.Database.DSN)
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		wantErr error
	}{
		{
			"missing dsn",
			`feed: {sources: [{region: r, url: u, enabled: true}]}`,
			ErrMissingDatabaseDSN,
		},
		{
			"no sources",
			`database: {dsn: x}`,
			ErrNoSources,
		},
		{
			"no enabled sources",
			`
database: {dsn: x}
feed:
  sources:
    - {region: r, url: u, enabled: false}
`,
			ErrNoEnabledSources,
		},
		{
			"source missing url",
			`
database: {dsn: x}
feed:
  sources:
    - {region: r, enabled: true}
`,
			ErrSourceMissingURL,
		},
		{
			"source missing region",
			`
database: {dsn: x}
feed:
  sources:
    - {url: u, enabled: true}
`,
			ErrSourceMissingRegion,
		},
		{
			"bad log level",
			`
database: {dsn: x}
log_level: verbose
feed:
  sources:
    - {region: r, url: u, enabled: true}
`,
			ErrInvalidLogLevel,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestEnabledSources(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
database: {dsn: x}
feed:
  sources:
    - {region: "A", url: "http://a", enabled: true}
    - {region: "B", url: "http://b", enabled: false}
    - {region: "C", url: "http://c", enabled: true}
`))
	require.NoError(t, err)

	sources := cfg.EnabledSources()
	require.Len(t, sources, 2)
	assert.Equal(t, "A", sources[0].Region)
	assert.Equal(t, "C", sources[1].Region)
}
