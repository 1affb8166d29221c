package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/annel0/tileworld/internal/logging"
	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации симуляции
type Config struct {
	Sim     SimConfig     `yaml:"sim"`
	Physics PhysicsConfig `yaml:"physics"`
	Storage StorageConfig `yaml:"storage"`
	Metrics MetricsConfig `yaml:"metrics"`
	Events  EventsConfig  `yaml:"events"`
	API     APIConfig     `yaml:"api"`
	Tracing TracingConfig `yaml:"tracing"`
	Logging LoggingConfig `yaml:"logging"`
}

type SimConfig struct {
	TickRate      int   `yaml:"tick_rate"`      // Тиков в секунду
	Seed          int64 `yaml:"seed"`           // Сид генератора
	PreloadRadius int   `yaml:"preload_radius"` // Радиус предзагрузки в чанках
	Animals       int   `yaml:"animals"`        // Животных в демо-популяции
	Crates        int   `yaml:"crates"`         // Ящиков в демо-популяции
}

type PhysicsConfig struct {
	Epsilon          float64 `yaml:"epsilon"`
	Slop             float64 `yaml:"slop"`
	MaxOverlapPasses int     `yaml:"max_overlap_passes"`
}

type StorageConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Dir         string `yaml:"dir"`
	SaveEvery   int    `yaml:"save_every_seconds"`
	Compression bool   `yaml:"compression"` // Сжимать снимки чанков zstd

	PositionsBackend string `yaml:"positions_backend"` // memory | mysql | redis
	PositionsDSN     string `yaml:"positions_dsn"`     // DSN MariaDB или адрес Redis
}

type MetricsConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Port         int    `yaml:"port"`
	Host         string `yaml:"host"`
	ProcessEvery int    `yaml:"process_every_seconds"` // Период снятия CPU/RSS, 0 - выключено
}

// EventsConfig настраивает шину событий мира
type EventsConfig struct {
	Backend string `yaml:"backend"` // memory | nats | none
	URL     string `yaml:"url"`     // nats://127.0.0.1:4222
	Stream  string `yaml:"stream"`
	Log     bool   `yaml:"log"` // Писать все события в лог (DEBUG)
}

// APIConfig настраивает REST API (слушает на адресе метрик)
type APIConfig struct {
	Enabled   bool   `yaml:"enabled"`
	JWTSecret string `yaml:"jwt_secret"` // base64, пусто - случайный секрет на каждый запуск
	TokenTTL  int    `yaml:"token_ttl_hours"`
	Operator  string `yaml:"operator"` // Если задан, при старте выпускается админский токен
}

// TracingConfig настраивает экспорт трейсов OTLP/HTTP
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"` // host:port коллектора
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

type LoggingConfig struct {
	Level     string `yaml:"level"`
	FileLevel string `yaml:"file_level"`
	Format    string `yaml:"format"` // console | json
	Dir       string `yaml:"dir"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		Sim: SimConfig{
			TickRate:      20,
			Seed:          1,
			PreloadRadius: 2,
			Animals:       16,
			Crates:        8,
		},
		Physics: PhysicsConfig{
			Epsilon:          1e-7,
			Slop:             1e-4,
			MaxOverlapPasses: 6,
		},
		Storage: StorageConfig{
			Enabled:     true,
			Dir:         "data/world",
			SaveEvery:   60,
			Compression: true,

			PositionsBackend: "memory",
		},
		Metrics: MetricsConfig{
			Enabled:      true,
			Port:         2112,
			ProcessEvery: 15,
		},
		Events: EventsConfig{
			Backend: "memory",
			Stream:  "TILEWORLD",
		},
		API: APIConfig{
			TokenTTL: 24,
		},
		Tracing: TracingConfig{
			Endpoint:    "localhost:4318",
			Insecure:    true,
			SampleRatio: 1,
		},
		Logging: LoggingConfig{
			Level:     "info",
			FileLevel: "debug",
			Format:    "console",
		},
	}
}

// GetTickRate возвращает частоту тиков с поддержкой fallback значений
func (s *SimConfig) GetTickRate() int {
	return getIntWithEnvFallback(s.TickRate, "TILEWORLD_TICK_RATE", 20)
}

// GetPreloadRadius возвращает радиус предзагрузки с поддержкой fallback значений
func (s *SimConfig) GetPreloadRadius() int {
	return getIntWithEnvFallback(s.PreloadRadius, "TILEWORLD_PRELOAD_RADIUS", 2)
}

// GetPort возвращает порт метрик с поддержкой fallback значений
func (m *MetricsConfig) GetPort() int {
	return getIntWithEnvFallback(m.Port, "TILEWORLD_METRICS_PORT", 2112)
}

// Addr возвращает адрес HTTP-эндпоинта метрик
func (m *MetricsConfig) Addr() string {
	return fmt.Sprintf("%s:%d", m.Host, m.GetPort())
}

// TTL возвращает время жизни токенов API
func (a *APIConfig) TTL() time.Duration {
	return time.Duration(getIntWithEnvFallback(a.TokenTTL, "TILEWORLD_TOKEN_TTL_HOURS", 24)) * time.Hour
}

// HTTPEnabled сообщает, нужен ли HTTP-сервер
func (c *Config) HTTPEnabled() bool {
	return c.Metrics.Enabled || c.API.Enabled
}

// Options переводит секцию logging в параметры логгеров
func (l *LoggingConfig) Options() (logging.Options, error) {
	opts := logging.DefaultOptions()
	opts.Format = l.Format
	opts.Dir = l.Dir

	if l.Level != "" {
		level, err := logging.ParseLevel(l.Level)
		if err != nil {
			return opts, fmt.Errorf("logging.level: %w", err)
		}
		opts.ConsoleLevel = level
	}
	if l.FileLevel != "" {
		level, err := logging.ParseLevel(l.FileLevel)
		if err != nil {
			return opts, fmt.Errorf("logging.file_level: %w", err)
		}
		opts.FileLevel = level
	}
	return opts, nil
}

// getIntWithEnvFallback возвращает значение с приоритетом: config -> env -> default
func getIntWithEnvFallback(configValue int, envVar string, defaultValue int) int {
	// Если значение задано в конфиге и больше 0, используем его
	if configValue > 0 {
		return configValue
	}

	// Пробуем прочитать из environment variable
	if envVal := os.Getenv(envVar); envVal != "" {
		if v, err := strconv.Atoi(envVal); err == nil && v > 0 {
			return v
		}
	}

	return defaultValue
}

// Validate проверяет значения, которые нельзя исправить fallback'ом
func (c *Config) Validate() error {
	if c.Physics.Epsilon < 0 || c.Physics.Slop < 0 {
		return fmt.Errorf("physics: epsilon и slop не могут быть отрицательными")
	}
	if c.Physics.MaxOverlapPasses < 0 {
		return fmt.Errorf("physics: max_overlap_passes не может быть отрицательным")
	}
	if c.Storage.Enabled && c.Storage.Dir == "" {
		return fmt.Errorf("storage: не задан dir")
	}
	switch c.Storage.PositionsBackend {
	case "", "memory", "mysql", "mariadb", "redis":
	default:
		return fmt.Errorf("storage: неизвестный positions_backend %q", c.Storage.PositionsBackend)
	}
	if _, err := c.Logging.Options(); err != nil {
		return err
	}
	switch c.Events.Backend {
	case "", "memory", "none":
	case "nats":
		if c.Events.URL == "" {
			return fmt.Errorf("events: для бэкенда nats нужен url")
		}
	default:
		return fmt.Errorf("events: неизвестный backend %q", c.Events.Backend)
	}
	if c.Tracing.Enabled {
		if c.Tracing.Endpoint == "" {
			return fmt.Errorf("tracing: не задан endpoint")
		}
		if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
			return fmt.Errorf("tracing: sample_ratio должен быть в [0, 1]")
		}
	}
	return nil
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", пытается прочитать из ENV TILEWORLD_CONFIG или возвращает Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("TILEWORLD_CONFIG")
		if path == "" {
			return cfg, nil // конфиг не задан - используем дефолты
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение конфигурации %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("разбор конфигурации %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("конфигурация %s: %w", path, err)
	}
	return cfg, nil
}
