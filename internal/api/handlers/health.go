// health.go — обработчики health endpoints для Kubernetes probes.
package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/bigkaa/vidshare/internal/config"
)

// statusFail — строковая константа для статуса "fail" в health checks.
const statusFail = "fail"

// serviceName — имя сервиса в ответах health и info.
const serviceName = "vidshare"

// ProbeChecker — проверка доступности ffprobe.
type ProbeChecker interface {
	Available() error
}

// HealthHandler реализует health endpoints: /health/live, /health/ready.
type HealthHandler struct {
	version string
	// uploadDir — директория загрузок (проверка записи)
	uploadDir string
	// tempDir — временная директория загрузок (проверка записи)
	tempDir string
	// prober — проверка ffprobe; nil отключает проверку
	prober ProbeChecker
}

// NewHealthHandler создаёт обработчик health endpoints.
func NewHealthHandler(uploadDir, tempDir string, prober ProbeChecker) *HealthHandler {
	return &HealthHandler{
		version:   config.Version,
		uploadDir: uploadDir,
		tempDir:   tempDir,
		prober:    prober,
	}
}

// HealthLive обрабатывает GET /health/live.
// Возвращает 200, если процесс жив. Не проверяет зависимости.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"service":   serviceName,
	})
}

// HealthReady обрабатывает GET /health/ready.
// Проверяет: директория загрузок, временная директория, ffprobe.
// Без ffprobe сервис работает (метаданные по умолчанию), статус degraded.
func (h *HealthHandler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	overallStatus := "ok"
	httpStatus := http.StatusOK

	uploadCheck := checkWritable(h.uploadDir, "Директория загрузок недоступна для записи: ")
	tempCheck := checkWritable(h.tempDir, "Временная директория недоступна для записи: ")
	if uploadCheck["status"] != "ok" || tempCheck["status"] != "ok" {
		overallStatus = statusFail
		httpStatus = http.StatusServiceUnavailable
	}

	probeCheck := h.checkProbe()
	if probeCheck["status"] != "ok" && overallStatus != statusFail {
		overallStatus = "degraded"
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"service":   serviceName,
		"checks": map[string]any{
			"uploads": uploadCheck,
			"temp":    tempCheck,
			"ffprobe": probeCheck,
		},
	})
}

// checkWritable проверяет доступность директории на запись.
func checkWritable(dir, failMessage string) map[string]any {
	if dir == "" {
		return map[string]any{
			"status":  "ok",
			"message": "Проверка не настроена",
		}
	}

	testFile := filepath.Join(dir, ".health_check")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return map[string]any{
			"status":  statusFail,
			"message": failMessage + err.Error(),
		}
	}
	_ = os.Remove(testFile)

	return map[string]any{
		"status": "ok",
	}
}

// checkProbe проверяет наличие исполняемого файла ffprobe.
func (h *HealthHandler) checkProbe() map[string]any {
	if h.prober == nil {
		return map[string]any{
			"status":  "ok",
			"message": "Проверка не настроена",
		}
	}
	if err := h.prober.Available(); err != nil {
		return map[string]any{
			"status":  statusFail,
			"message": err.Error(),
		}
	}
	return map[string]any{
		"status": "ok",
	}
}
