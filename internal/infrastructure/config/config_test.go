package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "standard configuration",
			cfg: DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "pagekeep",
				Password: "testpass",
				Database: "pagekeep_test",
				SSLMode:  "disable",
			},
			want: "host=localhost port=5432 user=pagekeep password=testpass dbname=pagekeep_test sslmode=disable",
		},
		{
			name: "production configuration",
			cfg: DatabaseConfig{
				Host:     "db.example.com",
				Port:     5433,
				User:     "produser",
				Password: "securepass123",
				Database: "pagekeep",
				SSLMode:  "require",
			},
			want: "host=db.example.com port=5433 user=produser password=securepass123 dbname=pagekeep sslmode=require",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.ConnectionString(); got != tt.want {
				t.Errorf("DatabaseConfig.ConnectionString() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoad_RequiresDBPassword(t *testing.T) {
	viper.Reset()
	os.Unsetenv("DB_PASSWORD")

	if err := InitConfig("test"); err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}

	if _, err := Load(); err == nil {
		t.Error("Load() should fail without DB_PASSWORD")
	}
}

func TestLoad_AppliesDefaultsAndOverrides(t *testing.T) {
	viper.Reset()
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("JOB_METADATA_FETCH_MINUTES", "15")

	if err := InitConfig("test"); err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999 (env override)", cfg.Server.Port)
	}
	if cfg.Server.MetricsPort != 9090 {
		t.Errorf("Server.MetricsPort = %d, want default 9090", cfg.Server.MetricsPort)
	}
	if cfg.Database.Host != "localhost" {
		t.Errorf("Database.Host = %q, want default localhost", cfg.Database.Host)
	}
	if cfg.Jobs.MetadataFetchInterval != 15*time.Minute {
		t.Errorf("Jobs.MetadataFetchInterval = %v, want 15m", cfg.Jobs.MetadataFetchInterval)
	}
	if cfg.Jobs.MonthlyReportInterval != 0 {
		t.Errorf("Jobs.MonthlyReportInterval = %v, want 0 (disabled by default)", cfg.Jobs.MonthlyReportInterval)
	}
	if cfg.Metadata.Timeout != 10*time.Second {
		t.Errorf("Metadata.Timeout = %v, want default 10s", cfg.Metadata.Timeout)
	}
}
