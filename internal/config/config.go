// Пакет config — загрузка и валидация конфигурации видеохостинга
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации сервиса.
type Config struct {
	// Порт HTTP-сервера
	Port int
	// Директория постоянного хранения видеофайлов
	UploadDir string
	// Директория временных файлов загрузки (по умолчанию {UploadDir}/.tmp)
	TempDir string

	// Путь к бинарнику ffprobe
	FFprobePath string
	// Лимит времени одного запуска ffprobe
	ProbeTimeout time.Duration
	// Количество повторов ffprobe после неудачной попытки
	ProbeRetries int

	// Срок хранения видео (ExpiresAt = CreatedAt + Retention)
	Retention time.Duration
	// Интервал запуска GC
	GCInterval time.Duration
	// Возраст, после которого временный файл считается брошенным
	TempMaxAge time.Duration

	// Размер LRU-кэша embed-страниц
	EmbedCacheSize int
	// Время жизни записи кэша embed-страниц
	EmbedCacheTTL time.Duration

	// Таймауты HTTP-сервера. ReadTimeout не задаётся: размер загрузки не ограничен.
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration

	// Путь к TLS сертификату (опционально)
	TLSCert string
	// Путь к TLS приватному ключу (опционально)
	TLSKey string

	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
}

// Load загружает конфигурацию из переменных окружения, валидирует
// значения и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// VS_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("VS_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("VS_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("VS_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// VS_UPLOAD_DIR — директория загрузок (по умолчанию ./uploads)
	cfg.UploadDir = getEnvDefault("VS_UPLOAD_DIR", "uploads")

	// VS_TEMP_DIR — временная директория (по умолчанию внутри директории загрузок,
	// чтобы перенос файла был rename в пределах одной ФС)
	cfg.TempDir = getEnvDefault("VS_TEMP_DIR", filepath.Join(cfg.UploadDir, ".tmp"))
	if filepath.Clean(cfg.TempDir) == filepath.Clean(cfg.UploadDir) {
		return nil, fmt.Errorf("VS_TEMP_DIR: не должна совпадать с VS_UPLOAD_DIR")
	}

	// VS_FFPROBE_PATH — путь к ffprobe (по умолчанию ищется в PATH)
	cfg.FFprobePath = getEnvDefault("VS_FFPROBE_PATH", "ffprobe")

	// VS_PROBE_TIMEOUT — таймаут ffprobe (по умолчанию 30s)
	cfg.ProbeTimeout, err = getEnvDuration("VS_PROBE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("VS_PROBE_TIMEOUT: %w", err)
	}
	if cfg.ProbeTimeout <= 0 {
		return nil, fmt.Errorf("VS_PROBE_TIMEOUT: значение должно быть положительным")
	}

	// VS_PROBE_RETRIES — повторы ffprobe (по умолчанию 2)
	cfg.ProbeRetries, err = getEnvInt("VS_PROBE_RETRIES", 2)
	if err != nil {
		return nil, fmt.Errorf("VS_PROBE_RETRIES: %w", err)
	}
	if cfg.ProbeRetries < 0 {
		return nil, fmt.Errorf("VS_PROBE_RETRIES: значение не может быть отрицательным")
	}

	// VS_RETENTION — срок хранения видео (по умолчанию 30 дней)
	cfg.Retention, err = getEnvDuration("VS_RETENTION", 30*24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("VS_RETENTION: %w", err)
	}
	if cfg.Retention <= 0 {
		return nil, fmt.Errorf("VS_RETENTION: значение должно быть положительным")
	}

	// VS_GC_INTERVAL — интервал GC (по умолчанию 1h)
	cfg.GCInterval, err = getEnvDuration("VS_GC_INTERVAL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("VS_GC_INTERVAL: %w", err)
	}
	if cfg.GCInterval <= 0 {
		return nil, fmt.Errorf("VS_GC_INTERVAL: значение должно быть положительным")
	}

	// VS_TEMP_MAX_AGE — возраст брошенного временного файла (по умолчанию 24h)
	cfg.TempMaxAge, err = getEnvDuration("VS_TEMP_MAX_AGE", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("VS_TEMP_MAX_AGE: %w", err)
	}

	// VS_EMBED_CACHE_SIZE — размер кэша embed-страниц (по умолчанию 256)
	cfg.EmbedCacheSize, err = getEnvInt("VS_EMBED_CACHE_SIZE", 256)
	if err != nil {
		return nil, fmt.Errorf("VS_EMBED_CACHE_SIZE: %w", err)
	}
	if cfg.EmbedCacheSize <= 0 {
		return nil, fmt.Errorf("VS_EMBED_CACHE_SIZE: значение должно быть положительным")
	}

	// VS_EMBED_CACHE_TTL — TTL кэша embed-страниц (по умолчанию 10m)
	cfg.EmbedCacheTTL, err = getEnvDuration("VS_EMBED_CACHE_TTL", 10*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("VS_EMBED_CACHE_TTL: %w", err)
	}

	// VS_READ_HEADER_TIMEOUT — таймаут чтения заголовков (по умолчанию 10s)
	cfg.ReadHeaderTimeout, err = getEnvDuration("VS_READ_HEADER_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("VS_READ_HEADER_TIMEOUT: %w", err)
	}

	// VS_WRITE_TIMEOUT — таймаут записи ответа (по умолчанию 0, без ограничения:
	// отдача больших видео может длиться долго)
	cfg.WriteTimeout, err = getEnvDuration("VS_WRITE_TIMEOUT", 0)
	if err != nil {
		return nil, fmt.Errorf("VS_WRITE_TIMEOUT: %w", err)
	}

	// VS_IDLE_TIMEOUT — таймаут keep-alive (по умолчанию 120s)
	cfg.IdleTimeout, err = getEnvDuration("VS_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("VS_IDLE_TIMEOUT: %w", err)
	}

	// VS_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 30s)
	cfg.ShutdownTimeout, err = getEnvDuration("VS_SHUTDOWN_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("VS_SHUTDOWN_TIMEOUT: %w", err)
	}

	// VS_TLS_CERT / VS_TLS_KEY — задаются вместе или не задаются вовсе
	cfg.TLSCert = getEnvDefault("VS_TLS_CERT", "")
	cfg.TLSKey = getEnvDefault("VS_TLS_KEY", "")
	if (cfg.TLSCert == "") != (cfg.TLSKey == "") {
		return nil, fmt.Errorf("VS_TLS_CERT и VS_TLS_KEY должны быть заданы вместе")
	}

	// VS_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("VS_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("VS_LOG_LEVEL: %w", err)
	}

	// VS_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("VS_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("VS_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	return cfg, nil
}

// TLSEnabled сообщает, настроен ли TLS.
func (c *Config) TLSEnabled() bool {
	return c.TLSCert != "" && c.TLSKey != ""
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 720h)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
