// internal/config/config.go
package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Transport variants
const (
	TransportSerial = "serial"
	TransportUSB    = "usb"
	TransportUSBCDC = "usb-cdc"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Security SecurityConfig `mapstructure:"security"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Terminal TerminalConfig `mapstructure:"terminal"`
	Serial   SerialConfig   `mapstructure:"serial"`
	USB      USBConfig      `mapstructure:"usb"`
	App      AppConfig      `mapstructure:"app"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	TLS          TLSConfig     `mapstructure:"tls"`
}

// TLSConfig represents TLS configuration
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// DatabaseConfig represents the optional transcript archive
type DatabaseConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	DBName         string        `mapstructure:"dbname"`
	SSLMode        string        `mapstructure:"sslmode"`
	MaxOpenConns   int           `mapstructure:"max_open_conns"`
	MaxIdleConns   int           `mapstructure:"max_idle_conns"`
	MaxLifetime    time.Duration `mapstructure:"max_lifetime"`
	MigrationsPath string        `mapstructure:"migrations_path"`
	BatchSize      int           `mapstructure:"batch_size"`
	FlushInterval  time.Duration `mapstructure:"flush_interval"`
	Retention      time.Duration `mapstructure:"retention"`
}

// SecurityConfig represents security configuration
type SecurityConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// TerminalConfig represents device session behaviour
type TerminalConfig struct {
	Transport   string        `mapstructure:"transport"`
	SettleDelay time.Duration `mapstructure:"settle_delay"`
	ReadSize    int           `mapstructure:"read_size"`
}

// SerialConfig represents serial port parameters
type SerialConfig struct {
	Port        string        `mapstructure:"port"`
	VendorID    string        `mapstructure:"vendor_id"`
	BaudRate    int           `mapstructure:"baud_rate"`
	DataBits    int           `mapstructure:"data_bits"`
	StopBits    float64       `mapstructure:"stop_bits"`
	Parity      string        `mapstructure:"parity"`
	DTR         bool          `mapstructure:"dtr"`
	RTS         bool          `mapstructure:"rts"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

// USBConfig represents USB device parameters
type USBConfig struct {
	VendorID         string        `mapstructure:"vendor_id"`
	ProductID        string        `mapstructure:"product_id"`
	Configuration    int           `mapstructure:"configuration"`
	Interfaces       []int         `mapstructure:"interfaces"`
	InEndpoint       int           `mapstructure:"in_endpoint"`
	OutEndpoint      int           `mapstructure:"out_endpoint"`
	ControlTimeout   time.Duration `mapstructure:"control_timeout"`
	ControlInterface int           `mapstructure:"control_interface"`
	LineCoding       LineConfig    `mapstructure:"line_coding"`
}

// LineConfig represents CDC line coding and control lines
type LineConfig struct {
	BaudRate int     `mapstructure:"baud_rate"`
	DataBits int     `mapstructure:"data_bits"`
	StopBits float64 `mapstructure:"stop_bits"`
	Parity   string  `mapstructure:"parity"`
	DTR      bool    `mapstructure:"dtr"`
	RTS      bool    `mapstructure:"rts"`
}

// AppConfig represents application metadata
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// Load loads configuration from file and environment variables.
// An empty path searches for config.yaml in the working directory and ./config.
func Load(path string) (*Config, error) {
	return LoadWithOverrides(path, nil)
}

// LoadWithOverrides loads configuration like Load and then applies
// overrides, keyed like the file (e.g. "serial.port"), over every other
// source. Command line flags use it.
func LoadWithOverrides(path string, overrides map[string]interface{}) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variable support
	v.SetEnvPrefix("DEVICE_TERMINAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine, defaults and env cover everything
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	for key, value := range overrides {
		v.Set(key, value)
	}

	applyTransportPresets(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", "8085")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.tls.enabled", false)
	v.SetDefault("security.allowed_origins", []string{})

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "terminal")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "device_terminal")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 5)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.max_lifetime", "5m")
	v.SetDefault("database.migrations_path", "migrations")
	v.SetDefault("database.batch_size", 100)
	v.SetDefault("database.flush_interval", "2s")
	v.SetDefault("database.retention", "720h")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", true)

	// Terminal defaults
	v.SetDefault("terminal.transport", TransportSerial)
	v.SetDefault("terminal.settle_delay", "500ms")

	// Serial defaults
	v.SetDefault("serial.port", "")
	v.SetDefault("serial.vendor_id", "")
	v.SetDefault("serial.dtr", false)
	v.SetDefault("serial.rts", false)
	v.SetDefault("serial.baud_rate", 921600)
	v.SetDefault("serial.data_bits", 8)
	v.SetDefault("serial.stop_bits", 1)
	v.SetDefault("serial.parity", "none")
	v.SetDefault("serial.read_timeout", "0s")

	// USB defaults
	v.SetDefault("usb.vendor_id", "0x381F")
	v.SetDefault("usb.product_id", "")
	v.SetDefault("usb.configuration", 1)
	v.SetDefault("usb.in_endpoint", 1)
	v.SetDefault("usb.control_timeout", "1s")
	v.SetDefault("usb.control_interface", 0)
	v.SetDefault("usb.line_coding.baud_rate", 115200)
	v.SetDefault("usb.line_coding.data_bits", 8)
	v.SetDefault("usb.line_coding.stop_bits", 1)
	v.SetDefault("usb.line_coding.parity", "none")
	v.SetDefault("usb.line_coding.dtr", true)
	v.SetDefault("usb.line_coding.rts", true)

	// App defaults
	v.SetDefault("app.name", "device-terminal")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)
}

// applyTransportPresets fills in the defaults that depend on the variant.
// Explicit settings from file or env still win.
func applyTransportPresets(v *viper.Viper) {
	switch v.GetString("terminal.transport") {
	case TransportUSB:
		v.SetDefault("usb.interfaces", []int{0})
		v.SetDefault("usb.out_endpoint", 2)
		v.SetDefault("terminal.read_size", 64)
	case TransportUSBCDC:
		v.SetDefault("usb.interfaces", []int{0, 1})
		v.SetDefault("usb.out_endpoint", 1)
		v.SetDefault("terminal.read_size", 64)
	default:
		v.SetDefault("usb.interfaces", []int{0})
		v.SetDefault("usb.out_endpoint", 1)
		v.SetDefault("terminal.read_size", 256)
	}
}

// validate validates the configuration
func validate(config *Config) error {
	switch config.Terminal.Transport {
	case TransportSerial, TransportUSB, TransportUSBCDC:
	default:
		return fmt.Errorf("terminal.transport must be one of: %v",
			[]string{TransportSerial, TransportUSB, TransportUSBCDC})
	}

	if config.Terminal.SettleDelay < 0 {
		return fmt.Errorf("terminal.settle_delay must not be negative")
	}
	if config.Terminal.ReadSize <= 0 {
		return fmt.Errorf("terminal.read_size must be positive")
	}

	if err := validateLine("serial", config.Serial.BaudRate, config.Serial.DataBits, config.Serial.StopBits, config.Serial.Parity); err != nil {
		return err
	}
	if config.Serial.VendorID != "" {
		if _, err := ParseHexID(config.Serial.VendorID); err != nil {
			return fmt.Errorf("serial.vendor_id: %w", err)
		}
	}

	if config.Terminal.Transport != TransportSerial {
		if err := validateUSB(&config.USB); err != nil {
			return err
		}
	}

	validLevels := []string{"debug", "info", "warn", "error", "fatal"}
	isValidLevel := false
	for _, level := range validLevels {
		if config.Logging.Level == level {
			isValidLevel = true
			break
		}
	}
	if !isValidLevel {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}

	if config.Database.Enabled && config.Database.Host == "" {
		return fmt.Errorf("database.host is required when the database is enabled")
	}
	if config.Database.Enabled && (config.Database.BatchSize <= 0 || config.Database.FlushInterval <= 0) {
		return fmt.Errorf("database.batch_size and database.flush_interval must be positive")
	}

	return nil
}

func validateUSB(usb *USBConfig) error {
	if _, err := ParseHexID(usb.VendorID); err != nil {
		return fmt.Errorf("usb.vendor_id: %w", err)
	}
	if usb.ProductID != "" {
		if _, err := ParseHexID(usb.ProductID); err != nil {
			return fmt.Errorf("usb.product_id: %w", err)
		}
	}
	if len(usb.Interfaces) == 0 {
		return fmt.Errorf("usb.interfaces must list at least one interface")
	}
	if usb.InEndpoint < 1 || usb.InEndpoint > 15 {
		return fmt.Errorf("usb.in_endpoint must be between 1 and 15")
	}
	if usb.OutEndpoint < 1 || usb.OutEndpoint > 15 {
		return fmt.Errorf("usb.out_endpoint must be between 1 and 15")
	}
	lc := usb.LineCoding
	return validateLine("usb.line_coding", lc.BaudRate, lc.DataBits, lc.StopBits, lc.Parity)
}

func validateLine(prefix string, baud, dataBits int, stopBits float64, parity string) error {
	if baud <= 0 || int64(baud) > math.MaxUint32 {
		return fmt.Errorf("%s.baud_rate must be between 1 and %d", prefix, uint32(math.MaxUint32))
	}
	switch dataBits {
	case 5, 6, 7, 8, 16:
	default:
		return fmt.Errorf("%s.data_bits must be one of 5, 6, 7, 8, 16", prefix)
	}
	switch stopBits {
	case 1, 1.5, 2:
	default:
		return fmt.Errorf("%s.stop_bits must be 1, 1.5 or 2", prefix)
	}
	switch parity {
	case "none", "odd", "even", "mark", "space":
	default:
		return fmt.Errorf("%s.parity must be one of none, odd, even, mark, space", prefix)
	}
	return nil
}

// ParseHexID parses a 16-bit id written as 0x381F or 381F
func ParseHexID(s string) (uint16, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	id, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid hex id %q", s)
	}
	return uint16(id), nil
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User,
		c.Database.Password, c.Database.DBName, c.Database.SSLMode)
}

// GetServerAddr returns the server address
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// IsProduction checks if the environment is production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}
