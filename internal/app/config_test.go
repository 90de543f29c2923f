package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/streetmagic-pos/internal/storage"
)

func testLoaderConfig(files ...string) aconfig.Config {
	return aconfig.Config{
		EnvPrefix: "POS",
		SkipFlags: true,
		Files:     files,
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PORT", "")

	cfg, err := loadConfig(testLoaderConfig())
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Addr)
	assert.Equal(t, storage.DriverFile, cfg.Storage.Driver)
	assert.Equal(t, "pos-state.json", cfg.Storage.Path)
	assert.Equal(t, 8, cfg.Register.Tables)
	assert.Equal(t, 3940, cfg.Register.BillBaseline)
	assert.Equal(t, "UTC", cfg.Register.TimeZone)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, []string{"*"}, cfg.CORS.Origins)
	assert.Equal(t, 15*time.Second, cfg.Graceful.ShutdownTimeout)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PORT", "")
	t.Setenv("POS_REGISTER_TABLES", "12")
	t.Setenv("POS_REGISTER_TIME_ZONE", "Asia/Kolkata")
	t.Setenv("POS_STORAGE_PATH", "/var/lib/pos/state.json")

	cfg, err := loadConfig(testLoaderConfig())
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Register.Tables)
	assert.Equal(t, "Asia/Kolkata", cfg.Register.TimeZone)
	assert.Equal(t, "/var/lib/pos/state.json", cfg.Storage.Path)
}

func TestLoadConfig_File(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PORT", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: 127.0.0.1:9000\n"), 0o600))

	cfg, err := loadConfig(testLoaderConfig(path))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
}

func TestApplyPlatformDefaults(t *testing.T) {
	tests := []struct {
		name       string
		env        map[string]string
		wantAddr   string
		wantDriver string
		wantURL    string
	}{
		{
			name:       "Nothing",
			wantAddr:   defaultAddr,
			wantDriver: storage.DriverFile,
		},
		{
			name:       "Port",
			env:        map[string]string{"PORT": "3000"},
			wantAddr:   "0.0.0.0:3000",
			wantDriver: storage.DriverFile,
		},
		{
			name:       "DatabaseURLSwitchesDriver",
			env:        map[string]string{"DATABASE_URL": "postgres://pos@db/pos"},
			wantAddr:   defaultAddr,
			wantDriver: storage.DriverPostgres,
			wantURL:    "postgres://pos@db/pos",
		},
		{
			name: "ExplicitDriverWins",
			env: map[string]string{
				"DATABASE_URL":       "postgres://pos@db/pos",
				"POS_STORAGE_DRIVER": "file",
			},
			wantAddr:   defaultAddr,
			wantDriver: storage.DriverFile,
			wantURL:    "postgres://pos@db/pos",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{"PORT", "DATABASE_URL", "POS_STORAGE_DRIVER"} {
				t.Setenv(k, tt.env[k])
			}
			cfg := Config{Addr: defaultAddr, Storage: StorageConfig{Driver: storage.DriverFile}}
			cfg.applyPlatformDefaults()

			assert.Equal(t, tt.wantAddr, cfg.Addr)
			assert.Equal(t, tt.wantDriver, cfg.Storage.Driver)
			assert.Equal(t, tt.wantURL, cfg.Storage.DatabaseURL)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			Storage:  StorageConfig{Driver: storage.DriverFile},
			Register: RegisterConfig{Tables: 8, TimeZone: "UTC"},
		}
	}
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "Valid", mutate: func(*Config) {}},
		{
			name:    "PostgresWithoutURL",
			mutate:  func(c *Config) { c.Storage.Driver = storage.DriverPostgres },
			wantErr: "database URL is required",
		},
		{
			name:    "UnknownDriver",
			mutate:  func(c *Config) { c.Storage.Driver = "sqlite" },
			wantErr: `unknown storage driver "sqlite"`,
		},
		{
			name:    "NoTables",
			mutate:  func(c *Config) { c.Register.Tables = 0 },
			wantErr: "at least one table",
		},
		{
			name:    "BadZone",
			mutate:  func(c *Config) { c.Register.TimeZone = "Mars/Olympus" },
			wantErr: `load time zone "Mars/Olympus"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
