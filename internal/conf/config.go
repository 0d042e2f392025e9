// Package conf loads and validates the application configuration.
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/spf13/viper"
	"github.com/jtoivola/fretwatch-go/internal/errors"
)

//go:embed config.yaml
var configFiles embed.FS

const osWindows = "windows"

// LogConfig defines settings for a rotated log file.
type LogConfig struct {
	Enabled    bool   // true to write the log file
	Path       string // path to the log file
	MaxSize    int    // max size in MB before rotation
	MaxBackups int    // rotated files to keep
	MaxAge     int    // days to keep rotated files
}

// AudioSettings contains capture and buffering settings.
type AudioSettings struct {
	Source         string // capture device name or substring, empty for system default
	PreferredRates []int  // sample rates tried in order during device negotiation
	RingDuration   int    // seconds of audio the sample ring holds
	PollInterval   int    // analysis poll interval in milliseconds
	LevelReporting bool   // publish audio level updates for the websocket surface
}

// DetectionSettings contains the note detection tuning knobs.
type DetectionSettings struct {
	LowestNote       string  // lowest detectable note, e.g. "E1"
	HighestNote      string  // highest detectable note, e.g. "E7"
	QualityThreshold float64 // minimum periodicity quality to accept an estimate
	MinAmplitude     float64 // minimum peak amplitude for a note to count as sounding
	AttackDelta      float64 // peak amplitude rise treated as a re-attack
	ProcessingTime   bool    // report analysis duration for each tick
}

// GuitarSettings describes the instrument notes are mapped onto.
type GuitarSettings struct {
	Tuning []string // open-string notes, first string is the highest
	Frets  int      // number of frets per string
}

// APISettings contains settings for the JSON/SSE API server.
type APISettings struct {
	Enabled bool   // true to start the API server
	Listen  string // listen address and port
}

// TelemetrySettings contains settings for the Prometheus endpoint.
type TelemetrySettings struct {
	Enabled bool   // true to expose Prometheus metrics
	Listen  string // listen address and port of the metrics endpoint
}

// MQTTSettings contains settings for publishing note events to a broker.
type MQTTSettings struct {
	Enabled  bool   // true to enable MQTT publishing
	Broker   string // MQTT broker URL
	Topic    string // topic to publish note events to
	Username string // MQTT username
	Password string // MQTT password
	Retain   bool   // true to set the retained flag on published messages
}

// RealtimeSettings groups settings that only apply to realtime mode.
type RealtimeSettings struct {
	Interval  int // minimum seconds between repeated downstream events for the same note
	API       APISettings
	Telemetry TelemetrySettings
	MQTT      MQTTSettings
}

// SQLiteSettings contains the SQLite datastore settings.
type SQLiteSettings struct {
	Enabled bool   // true to store note events in SQLite
	Path    string // path to the database file
}

// MySQLSettings contains the MySQL datastore settings.
type MySQLSettings struct {
	Enabled  bool   // true to store note events in MySQL
	Username string // MySQL username
	Password string // MySQL password
	Database string // MySQL database name
	Host     string // MySQL host
	Port     int    // MySQL port
}

// OutputSettings groups the datastore backends.
type OutputSettings struct {
	SQLite SQLiteSettings
	MySQL  MySQLSettings
}

// SentrySettings contains opt-in crash reporting settings.
type SentrySettings struct {
	Enabled bool   // true to send error telemetry, disabled by default
	DSN     string // Sentry DSN, empty uses the project default
	Debug   bool   // true to log telemetry submissions
}

// Settings is the root of the application configuration.
type Settings struct {
	Debug bool // true to enable debug output

	Main struct {
		Name string // node name, included in events and MQTT payloads
		Log  LogConfig
	}

	Audio     AudioSettings
	Detection DetectionSettings
	Guitar    GuitarSettings
	Realtime  RealtimeSettings
	Output    OutputSettings
	Sentry    SentrySettings
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment into a Settings struct.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}

	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the embedded default config to the first config path.
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")
	defaultConfig := getDefaultConfig()

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	fmt.Println("Created default config file at:", configPath)
	return viper.ReadInConfig()
}

// getDefaultConfig reads the default configuration from the embedded config.yaml file.
func getDefaultConfig() string {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		log.Fatalf("Error reading embedded config file: %v", err)
	}
	return string(data)
}

// GetDefaultConfigPaths returns the OS-specific locations searched for config.yaml.
func GetDefaultConfigPaths() ([]string, error) {
	var configPaths []string

	exePath, err := os.Executable()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategorySystem).
			Context("operation", "get-executable-path").
			Build()
	}
	exeDir := filepath.Dir(exePath)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategorySystem).
			Context("operation", "get-home-directory").
			Build()
	}

	switch runtime.GOOS {
	case osWindows:
		configPaths = []string{
			exeDir,
			filepath.Join(homeDir, "AppData", "Roaming", "fretwatch-go"),
		}
	default:
		configPaths = []string{
			filepath.Join(homeDir, ".config", "fretwatch-go"),
			"/etc/fretwatch-go",
		}
	}

	return configPaths, nil
}

// GetSettings returns the current settings instance.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the current settings instance, initializing it if necessary.
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			if _, err := Load(); err != nil {
				log.Fatalf("Error loading settings: %v", err)
			}
		}
	})
	return GetSettings()
}

// SyncViper copies flag-bound viper values back into the settings struct so
// command line arguments take precedence over the config file.
func SyncViper(settings *Settings) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()
	if err := viper.Unmarshal(settings); err != nil {
		log.Printf("error syncing viper values to settings: %v", err)
	}
}
