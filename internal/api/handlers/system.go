// system.go — обработчики GET /api/info и GET /api/openapi.yaml.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/bigkaa/vidshare/internal/api/openapi"
	"github.com/bigkaa/vidshare/internal/config"
	"github.com/bigkaa/vidshare/internal/storage/catalog"
)

// DiskUsageFunc возвращает ёмкость файловой системы директории загрузок.
type DiskUsageFunc func() (total, used, available int64, err error)

// SystemHandler — обработчик системных endpoints.
type SystemHandler struct {
	catalog   *catalog.Catalog
	diskUsage DiskUsageFunc
	logger    *slog.Logger
}

// NewSystemHandler создаёт обработчик системных endpoints.
// diskUsage может быть nil, тогда ёмкость диска не сообщается.
func NewSystemHandler(cat *catalog.Catalog, diskUsage DiskUsageFunc, logger *slog.Logger) *SystemHandler {
	return &SystemHandler{
		catalog:   cat,
		diskUsage: diskUsage,
		logger:    logger.With(slog.String("component", "system_handler")),
	}
}

// GetServiceInfo обрабатывает GET /api/info.
// Возвращает версию, количество видео и занятое место.
func (h *SystemHandler) GetServiceInfo(w http.ResponseWriter, _ *http.Request) {
	storage := map[string]any{
		"used_bytes": h.catalog.TotalSize(),
	}

	if h.diskUsage != nil {
		total, _, available, err := h.diskUsage()
		if err != nil {
			h.logger.Warn("Не удалось получить ёмкость диска", slog.String("error", err.Error()))
		} else {
			storage["disk_total_bytes"] = total
			storage["disk_available_bytes"] = available
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"service": serviceName,
		"version": config.Version,
		"videos":  h.catalog.Count(),
		"storage": storage,
	})
}

// GetOpenAPISpec обрабатывает GET /api/openapi.yaml.
func (h *SystemHandler) GetOpenAPISpec(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openapi.Spec())
}
