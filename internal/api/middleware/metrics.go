// metrics.go — Prometheus HTTP метрики видеохостинга.
// Регистрирует метрики: vs_http_requests_total, vs_http_request_duration_seconds.
// Бизнес-метрики (vs_videos_total, vs_storage_bytes и др.) обновляются
// из сервисного слоя.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vs_http_requests_total",
			Help: "Общее количество HTTP-запросов",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	// Загрузки и отдача видео длятся долго, поэтому верхние бакеты крупные.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vs_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов в секундах",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120, 600},
		},
		[]string{"method", "path"},
	)
)

// Бизнес-метрики (экспортируются для обновления из сервисного слоя)
var (
	// VideosTotal — текущее количество видео в каталоге (gauge).
	VideosTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vs_videos_total",
			Help: "Текущее количество видео в каталоге",
		},
		[]string{"privacy"},
	)

	// StorageBytes — суммарный размер видеофайлов (gauge).
	StorageBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vs_storage_bytes",
			Help: "Суммарный размер видеофайлов в байтах",
		},
	)

	// OperationsTotal — общее количество операций над видео.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vs_operations_total",
			Help: "Общее количество операций над видео",
		},
		[]string{"operation", "result"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// Записывает количество запросов и длительность для каждого endpoint.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Нормализуем путь для лейблов метрик
			normalizedPath := normalizePath(r.URL.Path)

			wrapped := newMetricsResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(duration)
		})
	}
}

// metricsResponseWriter — обёртка для перехвата статус-кода.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (rw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// normalizePath заменяет идентификаторы и имена файлов в пути на шаблоны
// для предотвращения взрывного роста кардинальности метрик.
// /api/videos/a1b2c3d4-e5f6-7890-abcd-ef1234567890 → /api/videos/{videoId}
func normalizePath(path string) string {
	switch {
	case path == "/health/live",
		path == "/health/ready",
		path == "/metrics",
		path == "/api/info",
		path == "/api/openapi.yaml",
		path == "/api/videos",
		path == "/api/videos/upload":
		return path
	case strings.HasPrefix(path, "/api/videos/"):
		if isUUID(path[len("/api/videos/"):]) {
			return "/api/videos/{videoId}"
		}
		return "/api/videos/{invalid}"
	case strings.HasPrefix(path, "/embed/"):
		if isUUID(path[len("/embed/"):]) {
			return "/embed/{videoId}"
		}
		return "/embed/{invalid}"
	case strings.HasPrefix(path, "/uploads/"):
		return "/uploads/{file}"
	}
	return "other"
}

// isUUID проверяет, что строка имеет формат UUID: 8-4-4-4-12.
func isUUID(segment string) bool {
	if len(segment) != 36 {
		return false
	}
	for i, c := range segment {
		if i == 8 || i == 13 || i == 18 || i == 23 {
			if c != '-' {
				return false
			}
		} else {
			if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
				return false
			}
		}
	}
	return true
}
