// media.go — раздача видеофайлов из директории загрузок.
package handlers

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/vidshare/internal/api/errors"
	"github.com/bigkaa/vidshare/internal/service"
)

// MediaHandler — обработчик GET /uploads/*.
type MediaHandler struct {
	mediaSvc *service.MediaService
}

// NewMediaHandler создаёт обработчик раздачи файлов.
func NewMediaHandler(mediaSvc *service.MediaService) *MediaHandler {
	return &MediaHandler{mediaSvc: mediaSvc}
}

// GetMedia обрабатывает GET /uploads/{path}.
// Поддерживает Range requests (206) для перемотки в плеере.
func (h *MediaHandler) GetMedia(w http.ResponseWriter, r *http.Request) {
	storagePath := chi.URLParam(r, "*")
	// chi сопоставляет по RawPath, если он задан: декодируем %XX
	if r.URL.RawPath != "" {
		decoded, err := url.PathUnescape(storagePath)
		if err != nil {
			apierrors.NotFound(w, "Файл не найден")
			return
		}
		storagePath = decoded
	}

	if mediaErr := h.mediaSvc.Serve(w, r, storagePath); mediaErr != nil {
		apierrors.WriteError(w, mediaErr.StatusCode, mediaErr.Code, mediaErr.Message)
	}
}
