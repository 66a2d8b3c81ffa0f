package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/mosaicnetworks/fuelnet/src/common"
	"github.com/mosaicnetworks/fuelnet/src/fuel"
	"github.com/mosaicnetworks/fuelnet/src/net"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames.
const (
	// DefaultBadgerFile is the default name of the folder containing the
	// admin's history database.
	DefaultBadgerFile = "badger_db"

	// DefaultConfigFile is the name, without extension, of the file read by
	// the CLI from the data directory.
	DefaultConfigFile = "fuelnet"
)

// Default configuration values.
const (
	DefaultLogLevel        = "debug"
	DefaultServiceAddr     = "127.0.0.1:8000"
	DefaultDialTimeout     = 3000 * time.Millisecond
	DefaultDistributorAddr = "127.0.0.1:5000"
	DefaultAdminAddr       = "127.0.0.1:6000"
	DefaultUtilityFactor   = 1.15
	DefaultFuelType        = "GAS_93"
	DefaultRefuelRate      = 100 * time.Millisecond
	DefaultStore           = false

	DefaultPumpReconnectInterval        = 5 * time.Second
	DefaultPumpReconnectAttempts        = 5
	DefaultDistributorReconnectInterval = 10 * time.Second
	DefaultDistributorReconnectAttempts = 10
)

// Config holds the options shared by every node role.
type Config struct {
	// DataDir is the top-level directory containing configuration and the
	// distributor ledgers.
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// Moniker is the node id. It is the origin of every envelope the node
	// sends and the key its parent tier registers it under.
	Moniker string `mapstructure:"moniker"`

	// NoService disables the HTTP status service.
	NoService bool `mapstructure:"no-service"`

	// ServiceAddr is the address:port of the HTTP status service.
	ServiceAddr string `mapstructure:"service-listen"`

	// DialTimeout bounds a single outbound connect attempt.
	DialTimeout time.Duration `mapstructure:"timeout"`

	logger *logrus.Logger
}

// PumpConfig configures a pump node.
type PumpConfig struct {
	Config `mapstructure:",squash"`

	// DistributorAddr is the host:port of the distributor to connect to.
	DistributorAddr string `mapstructure:"distributor"`

	// DistributorID is stamped on transactions. When empty, the pump uses
	// the origin of the first distributor envelope it receives.
	DistributorID string `mapstructure:"distributor-id"`

	// FuelType is the canonical or display name of the fuel this pump sells.
	FuelType string `mapstructure:"fuel"`

	// RefuelRate is the simulated time spent per liter.
	RefuelRate time.Duration `mapstructure:"refuel-rate"`

	Reconnect net.ReconnectPolicy `mapstructure:",squash"`
}

// DistributorConfig configures a distributor node.
type DistributorConfig struct {
	Config `mapstructure:",squash"`

	// BindAddr is the local address:port where pumps connect.
	BindAddr string `mapstructure:"listen"`

	// AdvertiseAddr optionally overrides the address reported for BindAddr.
	AdvertiseAddr string `mapstructure:"advertise"`

	// AdminAddr is the host:port of the admin node.
	AdminAddr string `mapstructure:"admin"`

	// UtilityFactor multiplies every base price received from the admin. It
	// must be greater than 1.
	UtilityFactor float64 `mapstructure:"utility"`

	Reconnect net.ReconnectPolicy `mapstructure:",squash"`
}

// AdminConfig configures the admin node.
type AdminConfig struct {
	Config `mapstructure:",squash"`

	// BindAddr is the local address:port where distributors connect.
	BindAddr string `mapstructure:"listen"`

	// AdvertiseAddr optionally overrides the address reported for BindAddr.
	AdvertiseAddr string `mapstructure:"advertise"`

	// Store keeps the transaction history in a Badger database under
	// DatabaseDir instead of memory.
	Store bool `mapstructure:"store"`

	// DatabaseDir is the directory containing the history database.
	DatabaseDir string `mapstructure:"db"`
}

// NewDefaultConfig returns the shared options with default values.
func NewDefaultConfig() *Config {
	return &Config{
		DataDir:     DefaultDataDir(),
		LogLevel:    DefaultLogLevel,
		ServiceAddr: DefaultServiceAddr,
		DialTimeout: DefaultDialTimeout,
	}
}

// NewDefaultPumpConfig ...
func NewDefaultPumpConfig() *PumpConfig {
	c := &PumpConfig{
		Config:          *NewDefaultConfig(),
		DistributorAddr: DefaultDistributorAddr,
		FuelType:        DefaultFuelType,
		RefuelRate:      DefaultRefuelRate,
		Reconnect: net.ReconnectPolicy{
			Interval:    DefaultPumpReconnectInterval,
			MaxAttempts: DefaultPumpReconnectAttempts,
		},
	}
	c.Moniker = "pump"
	return c
}

// NewDefaultDistributorConfig ...
func NewDefaultDistributorConfig() *DistributorConfig {
	c := &DistributorConfig{
		Config:        *NewDefaultConfig(),
		BindAddr:      DefaultDistributorAddr,
		AdminAddr:     DefaultAdminAddr,
		UtilityFactor: DefaultUtilityFactor,
		Reconnect: net.ReconnectPolicy{
			Interval:    DefaultDistributorReconnectInterval,
			MaxAttempts: DefaultDistributorReconnectAttempts,
		},
	}
	c.Moniker = "distributor"
	return c
}

// NewDefaultAdminConfig ...
func NewDefaultAdminConfig() *AdminConfig {
	c := &AdminConfig{
		Config:      *NewDefaultConfig(),
		BindAddr:    DefaultAdminAddr,
		Store:       DefaultStore,
		DatabaseDir: DefaultDatabaseDir(),
	}
	c.Moniker = "admin"
	return c
}

// NewTestConfig returns a config object with default values and a special
// logger for debugging tests.
func NewTestConfig(t testing.TB, moniker string) *Config {
	config := NewDefaultConfig()
	config.Moniker = moniker
	config.DataDir = t.TempDir()
	config.NoService = true
	config.DialTimeout = time.Second
	config.logger = common.NewTestLogger(t)
	return config
}

// SetDataDir sets the top-level directory, and updates the database directory
// of c if it is still the default one.
func (c *AdminConfig) SetDataDir(dataDir string) {
	c.DataDir = dataDir
	if c.DatabaseDir == DefaultDatabaseDir() {
		c.DatabaseDir = filepath.Join(dataDir, DefaultBadgerFile)
	}
}

// ParseFuelType resolves the configured fuel name.
func (c *PumpConfig) ParseFuelType() (fuel.Type, error) {
	return fuel.ParseType(c.FuelType)
}

// Validate checks the options that cannot be defaulted.
func (c *DistributorConfig) Validate() error {
	if !(c.UtilityFactor > 1) {
		return common.NewErr(common.InvalidArgument, "distributor config", "utility",
			fmt.Errorf("utility factor must be greater than 1, got %v", c.UtilityFactor))
	}
	return nil
}

// SetLogger replaces the logger returned by Logger.
func (c *Config) SetLogger(logger *logrus.Logger) {
	c.logger = logger
}

// Logger returns a formatted logrus Entry, with prefix set to "fuelnet".
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)
	}
	return c.logger.WithField("prefix", "fuelnet")
}

// DefaultDatabaseDir returns the default path for the badger database files.
func DefaultDatabaseDir() string {
	return filepath.Join(DefaultDataDir(), DefaultBadgerFile)
}

// DefaultDataDir return the default directory name for top-level config based
// on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".Fuelnet")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "Fuelnet")
		} else {
			return filepath.Join(home, ".fuelnet")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a Logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}
