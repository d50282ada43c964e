// embed.go — HTML-страница плеера для встраивания через iframe.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/vidshare/internal/service"
)

// EmbedHandler — обработчик GET /embed/{videoId}.
type EmbedHandler struct {
	videoSvc *service.VideoService
	embedSvc *service.EmbedService
	logger   *slog.Logger
}

// NewEmbedHandler создаёт обработчик embed-страниц.
func NewEmbedHandler(videoSvc *service.VideoService, embedSvc *service.EmbedService, logger *slog.Logger) *EmbedHandler {
	return &EmbedHandler{
		videoSvc: videoSvc,
		embedSvc: embedSvc,
		logger:   logger.With(slog.String("component", "embed_handler")),
	}
}

// GetEmbed обрабатывает GET /embed/{videoId}.
// Ошибки отдаются текстом, страница открывается внутри iframe.
// Каждый успешный запрос считается просмотром.
func (h *EmbedHandler) GetEmbed(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoId")

	video, videoErr := h.videoSvc.View(videoID)
	if videoErr != nil {
		switch videoErr.StatusCode {
		case http.StatusNotFound:
			http.Error(w, "Video not found", http.StatusNotFound)
		case http.StatusForbidden:
			http.Error(w, "Video is private", http.StatusForbidden)
		default:
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	page, err := h.embedSvc.Page(r.Context(), video)
	if err != nil {
		h.logger.Error("Ошибка рендеринга embed-страницы",
			slog.String("video_id", videoID),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page)
}
