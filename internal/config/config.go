package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/aggregator"
	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/storage"
	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/tags"
)

// Config holds the application configuration
type Config struct {
	Server  ServerConfig  `json:"server"`
	Storage StorageConfig `json:"storage"`
	Capture CaptureConfig `json:"capture"`
	Weather WeatherConfig `json:"weather"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	ListenAddr string        `json:"listen_addr"`
	Timeout    time.Duration `json:"timeout"`
}

// StorageConfig holds archive and side file locations
type StorageConfig struct {
	ArchivePath      string `json:"archive_path"`
	PartFile         string `json:"part_file"`
	TagFile          string `json:"tag_file"`
	TagDBPath        string `json:"tag_db_path"`
	UseCompression   bool   `json:"use_compression"`
	CompressionLevel int    `json:"compression_level"`
	CacheSize        int    `json:"cache_size"`
}

// CaptureConfig holds raw capture settings
type CaptureConfig struct {
	RawDataDir        string `json:"raw_data_dir"`
	MinOffloadRecords int    `json:"min_offload_records"`
	ZoneOffsetHours   int    `json:"zone_offset_hours"`
}

// WeatherConfig holds the weather API settings
type WeatherConfig struct {
	APIKey   string `json:"-"`
	Location string `json:"location"`
}

// Load reads an optional .env file and returns the resulting configuration
func Load(files ...string) *Config {
	if err := godotenv.Load(files...); err != nil && len(files) > 0 {
		fmt.Fprintf(os.Stderr, "warning: failed to load %v: %v\n", files, err)
	}
	return DefaultConfig()
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: getEnv("LISTEN_ADDR", ":9090"),
			Timeout:    30 * time.Second,
		},
		Storage: StorageConfig{
			ArchivePath:      getEnv("ARCHIVE_PATH", "./hist_data.txt"),
			PartFile:         getEnv("PART_FILE", "./hist_part.txt"),
			TagFile:          getEnv("TAG_FILE", "./tags.txt"),
			TagDBPath:        getEnv("TAG_DB_PATH", ""),
			UseCompression:   getEnvBool("USE_COMPRESSION", true),
			CompressionLevel: getEnvInt("COMPRESSION_LEVEL", 2),
			CacheSize:        getEnvInt("CACHE_SIZE", 64),
		},
		Capture: CaptureConfig{
			RawDataDir:        getEnv("RAW_DATA_DIR", "Traffic_Records"),
			MinOffloadRecords: getEnvInt("MIN_OFFLOAD_RECORDS", 16),
			ZoneOffsetHours:   getEnvInt("TIMEZONE_OFFSET_HOURS", tags.DefaultZoneOffset),
		},
		Weather: WeatherConfig{
			APIKey:   getEnv("WEATHER_API_KEY", ""),
			Location: getEnv("WEATHER_LOCATION", "Manila"),
		},
	}
}

// ToStorageConfig converts to storage.Config
func (c *Config) ToStorageConfig() *storage.Config {
	return &storage.Config{
		Path:             c.Storage.ArchivePath,
		Compress:         c.Storage.UseCompression,
		CompressionLevel: c.Storage.CompressionLevel,
		CacheSize:        c.Storage.CacheSize,
	}
}

// ToAggregatorConfig converts to aggregator.Config
func (c *Config) ToAggregatorConfig() *aggregator.Config {
	return &aggregator.Config{
		RawDir:            c.Capture.RawDataDir,
		MinOffloadRecords: c.Capture.MinOffloadRecords,
		Location:          tags.Zone(c.Capture.ZoneOffsetHours),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server listen address is required")
	}

	if c.Storage.ArchivePath == "" {
		return fmt.Errorf("archive path is required")
	}

	if c.Storage.PartFile == "" {
		return fmt.Errorf("part file path is required")
	}

	if c.Storage.TagFile == "" && c.Storage.TagDBPath == "" {
		return fmt.Errorf("tag file or tag database path is required")
	}

	if c.Storage.CompressionLevel < 1 || c.Storage.CompressionLevel > 4 {
		return fmt.Errorf("compression level must be between 1 and 4")
	}

	if c.Capture.MinOffloadRecords < 0 {
		return fmt.Errorf("min offload records must not be negative")
	}

	if c.Capture.ZoneOffsetHours < -12 || c.Capture.ZoneOffsetHours > 14 {
		return fmt.Errorf("timezone offset must be between -12 and 14 hours")
	}

	return nil
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}
