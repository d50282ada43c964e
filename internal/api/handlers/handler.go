// Пакет handlers — HTTP обработчики API видеохостинга.
// handler.go — APIHandler собирает доменные обработчики и регистрирует маршруты.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// APIHandler — единая точка регистрации всех endpoints.
type APIHandler struct {
	videos *VideosHandler
	embed  *EmbedHandler
	media  *MediaHandler
	system *SystemHandler
	health *HealthHandler
}

// NewAPIHandler создаёт единый handler для всех endpoints.
func NewAPIHandler(
	videos *VideosHandler,
	embed *EmbedHandler,
	media *MediaHandler,
	system *SystemHandler,
	health *HealthHandler,
) *APIHandler {
	return &APIHandler{
		videos: videos,
		embed:  embed,
		media:  media,
		system: system,
		health: health,
	}
}

// Register монтирует маршруты на роутер.
func (h *APIHandler) Register(r chi.Router) {
	// --- Video Operations ---
	r.Post("/api/videos/upload", h.videos.UploadVideo)
	r.Get("/api/videos", h.videos.ListVideos)
	r.Get("/api/videos/{videoId}", h.videos.GetVideo)
	r.Put("/api/videos/{videoId}", h.videos.UpdateVideo)
	r.Delete("/api/videos/{videoId}", h.videos.DeleteVideo)

	// --- Playback ---
	r.Get("/embed/{videoId}", h.embed.GetEmbed)
	r.Get("/uploads/*", h.media.GetMedia)
	r.Head("/uploads/*", h.media.GetMedia)

	// --- System ---
	r.Get("/api/info", h.system.GetServiceInfo)
	r.Get("/api/openapi.yaml", h.system.GetOpenAPISpec)

	// --- Health ---
	r.Get("/health/live", h.health.HealthLive)
	r.Get("/health/ready", h.health.HealthReady)
}

// writeJSON сериализует ответ в JSON с указанным статусом.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}
