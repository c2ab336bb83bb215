package config

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"smart-led-controller/backend/pkg/dialect"
)

type EnvKey string

const (
	EnvConfigFile EnvKey = "CONFIG_FILE"

	EnvPort      EnvKey = "PORT"
	EnvDataDir   EnvKey = "DATA_DIR"
	EnvLogLevel  EnvKey = "LOG_LEVEL"
	EnvLogToFile EnvKey = "LOG_TO_FILE"

	EnvTimezone     EnvKey = "TIMEZONE"
	EnvTickInterval EnvKey = "TICK_INTERVAL_MS"
	EnvSeedHistory  EnvKey = "SEED_HISTORY"
	EnvCORSOrigins  EnvKey = "CORS_ORIGINS"

	EnvDBDialect         EnvKey = "DB_DIALECT"
	EnvDBHost            EnvKey = "DB_HOST"
	EnvDBPort            EnvKey = "DB_PORT"
	EnvDBName            EnvKey = "DB_NAME"
	EnvDBUser            EnvKey = "DB_USER"
	EnvDBPass            EnvKey = "DB_PASSWORD"
	EnvDBSSLMode         EnvKey = "DB_SSLMODE"
	EnvDBConnectRetries  EnvKey = "DB_CONNECT_RETRIES"
	EnvMemoryRetention   EnvKey = "MEMORY_RETENTION"
	EnvBreakerFailures   EnvKey = "STORE_BREAKER_FAILURES"
	EnvBreakerOpenMillis EnvKey = "STORE_BREAKER_OPEN_MS"

	EnvMQTTEnabled    EnvKey = "MQTT_ENABLED"
	EnvMQTTBrokerPort EnvKey = "MQTT_SERVER_PORT"
	EnvMQTTBroker     EnvKey = "MQTT_BROKER"
	EnvMQTTClientID   EnvKey = "MQTT_CLIENT_ID"
	EnvMQTTUsername   EnvKey = "MQTT_USERNAME"
	EnvMQTTPassword   EnvKey = "MQTT_PASSWORD"

	EnvInfluxURL    EnvKey = "INFLUX_URL"
	EnvInfluxToken  EnvKey = "INFLUX_TOKEN"
	EnvInfluxOrg    EnvKey = "INFLUX_ORG"
	EnvInfluxBucket EnvKey = "INFLUX_BUCKET"

	EnvKafkaBrokers EnvKey = "KAFKA_BROKERS"
	EnvKafkaTopic   EnvKey = "KAFKA_TOPIC"
)

type Config struct {
	Port      int
	DataDir   string
	LogLevel  slog.Leveler
	LogOutput io.Writer

	Location     *time.Location
	TickInterval time.Duration
	SeedHistory  bool
	CORSOrigins  []string

	Database         string
	Dialect          dialect.Dialect
	DBConnectRetries uint64
	MemoryRetention  int
	BreakerFailures  uint32
	BreakerOpenFor   time.Duration

	// Embedded broker
	MQTTEnabled    bool
	MQTTBrokerPort int

	// Client connection
	MQTTBroker   string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string

	// Mirror and export are disabled when their address is empty.
	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string
	KafkaBrokers []string
	KafkaTopic   string
}

// source resolves a key from the environment first, then the optional YAML file.
type source struct {
	file map[string]string
}

func loadSource(path string) (source, error) {
	if path == "" {
		path, _ = os.LookupEnv(string(EnvConfigFile))
	}
	if path == "" {
		return source{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return source{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return source{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	file := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
		case []any:
			parts := make([]string, 0, len(val))
			for _, p := range val {
				parts = append(parts, fmt.Sprint(p))
			}
			file[strings.ToUpper(k)] = strings.Join(parts, ",")
		default:
			file[strings.ToUpper(k)] = fmt.Sprint(val)
		}
	}
	return source{file: file}, nil
}

// New builds the configuration from the environment, overlaying the YAML file at
// path (or CONFIG_FILE when path is empty). Environment values win.
func New(path string) (*Config, error) {
	src, err := loadSource(path)
	if err != nil {
		return nil, err
	}

	dataDir := src.getString(EnvDataDir, "data")
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	var logOutput io.Writer = os.Stdout
	if src.getBool(EnvLogToFile, false) {
		f, err := os.OpenFile(filepath.Join(dataDir, "app.log"), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		logOutput = f
	}

	loc, err := loadLocation(src.getString(EnvTimezone, "Local"))
	if err != nil {
		return nil, err
	}

	dbDialect := dialect.Dialect(src.getString(EnvDBDialect, string(dialect.SQLite)))
	if err := dbDialect.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database dialect: %w", err)
	}

	var dbConnString string
	switch dbDialect {
	case dialect.SQLite:
		dbConnString = filepath.Join(dataDir, "readings.sqlite")
	case dialect.PostgreSQL:
		dbConnString = fmt.Sprintf(
			"postgres://%s:%s@%s/%s?sslmode=%s",
			url.QueryEscape(src.getString(EnvDBUser, "led")),
			url.QueryEscape(src.getString(EnvDBPass, "")),
			net.JoinHostPort(src.getString(EnvDBHost, "localhost"), strconv.Itoa(src.getInt(EnvDBPort, 5432))),
			src.getString(EnvDBName, "led"),
			src.getString(EnvDBSSLMode, "disable"),
		)
	}

	tick := time.Duration(src.getInt(EnvTickInterval, 2000)) * time.Millisecond
	if tick <= 0 {
		return nil, fmt.Errorf("%s must be positive", EnvTickInterval)
	}

	return &Config{
		Port:      src.getInt(EnvPort, 8080),
		DataDir:   dataDir,
		LogLevel:  src.getLogLevel(EnvLogLevel, slog.LevelInfo),
		LogOutput: logOutput,

		Location:     loc,
		TickInterval: tick,
		SeedHistory:  src.getBool(EnvSeedHistory, true),
		CORSOrigins:  src.getList(EnvCORSOrigins, []string{"http://localhost:5173", "http://localhost:3000"}),

		Database:         dbConnString,
		Dialect:          dbDialect,
		DBConnectRetries: uint64(max(src.getInt(EnvDBConnectRetries, 5), 0)),
		MemoryRetention:  src.getInt(EnvMemoryRetention, 50000),
		BreakerFailures:  uint32(max(src.getInt(EnvBreakerFailures, 3), 1)),
		BreakerOpenFor:   time.Duration(src.getInt(EnvBreakerOpenMillis, 10000)) * time.Millisecond,

		MQTTEnabled:    src.getBool(EnvMQTTEnabled, true),
		MQTTBrokerPort: src.getInt(EnvMQTTBrokerPort, 1883),
		MQTTBroker:     src.getString(EnvMQTTBroker, "tcp://127.0.0.1:1883"),
		MQTTClientID:   src.getString(EnvMQTTClientID, "smart-led-controller"),
		MQTTUsername:   src.getString(EnvMQTTUsername, ""),
		MQTTPassword:   src.getString(EnvMQTTPassword, ""),

		InfluxURL:    src.getString(EnvInfluxURL, ""),
		InfluxToken:  src.getString(EnvInfluxToken, ""),
		InfluxOrg:    src.getString(EnvInfluxOrg, "smart-led"),
		InfluxBucket: src.getString(EnvInfluxBucket, "readings"),
		KafkaBrokers: src.getList(EnvKafkaBrokers, nil),
		KafkaTopic:   src.getString(EnvKafkaTopic, "led-readings"),
	}, nil
}

func (c *Config) Close() error {
	if f, ok := c.LogOutput.(*os.File); ok {
		if f != os.Stdout && f != os.Stderr {
			return f.Close()
		}
	}

	return nil
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", EnvTimezone, err)
	}
	return loc, nil
}

func (s source) lookup(key EnvKey) (string, bool) {
	if val, ok := os.LookupEnv(string(key)); ok {
		return val, true
	}
	val, ok := s.file[string(key)]
	return val, ok
}

func (s source) getString(key EnvKey, defaultVal string) string {
	val, exists := s.lookup(key)
	if !exists {
		return defaultVal
	}

	return val
}

func (s source) getBool(key EnvKey, defaultVal bool) bool {
	val, exists := s.lookup(key)
	if !exists {
		return defaultVal
	}

	switch strings.ToLower(val) {
	case "true", "1":
		return true
	default:
		return false
	}
}

func (s source) getInt(key EnvKey, defaultVal int) int {
	val, exists := s.lookup(key)
	if !exists {
		return defaultVal
	}

	if intVal, err := strconv.Atoi(val); err == nil {
		return intVal
	}

	return defaultVal
}

func (s source) getList(key EnvKey, defaultVal []string) []string {
	val, exists := s.lookup(key)
	if !exists {
		return defaultVal
	}

	var out []string
	for part := range strings.SplitSeq(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (s source) getLogLevel(key EnvKey, defaultVal slog.Leveler) slog.Leveler {
	val, exists := s.lookup(key)
	if !exists {
		return defaultVal
	}

	switch strings.ToUpper(val) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	}

	return defaultVal
}
