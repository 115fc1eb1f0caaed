package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Storage.ArchivePath != "./hist_data.txt" {
		t.Errorf("expected archive ./hist_data.txt, got %s", cfg.Storage.ArchivePath)
	}
	if cfg.Capture.MinOffloadRecords != 16 {
		t.Errorf("expected 16 offload records, got %d", cfg.Capture.MinOffloadRecords)
	}
	if !cfg.Storage.UseCompression {
		t.Error("expected compression enabled by default")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ARCHIVE_PATH", "/data/hist.txt")
	t.Setenv("USE_COMPRESSION", "false")
	t.Setenv("COMPRESSION_LEVEL", "4")
	t.Setenv("MIN_OFFLOAD_RECORDS", "not-a-number")
	t.Setenv("TIMEZONE_OFFSET_HOURS", "9")

	cfg := DefaultConfig()

	sc := cfg.ToStorageConfig()
	if sc.Path != "/data/hist.txt" || sc.Compress || sc.CompressionLevel != 4 {
		t.Errorf("unexpected storage config: %+v", sc)
	}

	ac := cfg.ToAggregatorConfig()
	if ac.MinOffloadRecords != 16 {
		t.Errorf("expected fallback to 16, got %d", ac.MinOffloadRecords)
	}
	_, offset := time.Date(2013, 9, 1, 0, 0, 0, 0, ac.Location).Zone()
	if offset != 9*3600 {
		t.Errorf("expected +9h zone, got %ds", offset)
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("RAW_DATA_DIR=/captures\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RAW_DATA_DIR", "")
	os.Unsetenv("RAW_DATA_DIR")

	cfg := Load(path)
	if cfg.Capture.RawDataDir != "/captures" {
		t.Errorf("expected /captures, got %s", cfg.Capture.RawDataDir)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"empty listen addr", func(c *Config) { c.Server.ListenAddr = "" }},
		{"empty archive", func(c *Config) { c.Storage.ArchivePath = "" }},
		{"empty part file", func(c *Config) { c.Storage.PartFile = "" }},
		{"no tag store", func(c *Config) { c.Storage.TagFile = ""; c.Storage.TagDBPath = "" }},
		{"compression level", func(c *Config) { c.Storage.CompressionLevel = 5 }},
		{"negative offload", func(c *Config) { c.Capture.MinOffloadRecords = -1 }},
		{"zone offset", func(c *Config) { c.Capture.ZoneOffsetHours = 15 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
