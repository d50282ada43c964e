// videos.go — HTTP handlers операций с видео.
// Upload, List, Get, Update, Delete.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	apierrors "github.com/bigkaa/vidshare/internal/api/errors"
	"github.com/bigkaa/vidshare/internal/api/openapi"
	"github.com/bigkaa/vidshare/internal/domain/model"
	"github.com/bigkaa/vidshare/internal/service"
	"github.com/bigkaa/vidshare/internal/storage/filestore"
)

const (
	// defaultListLimit — размер страницы списка по умолчанию
	defaultListLimit = 10
	// maxTitleFieldSize — максимальный размер поля title в multipart
	maxTitleFieldSize = 64 << 10
	// maxUpdateBodySize — максимальный размер тела PUT-запроса
	maxUpdateBodySize = 1 << 20
)

// videoResponse — JSON-представление записи видео.
type videoResponse struct {
	ID         int64     `json:"id"`
	VideoID    string    `json:"videoId"`
	Title      string    `json:"title"`
	Filename   string    `json:"filename"`
	FilePath   string    `json:"filePath"`
	FileSize   int64     `json:"fileSize"`
	Duration   int       `json:"duration"`
	Format     string    `json:"format"`
	Resolution string    `json:"resolution"`
	Status     string    `json:"status"`
	Views      int64     `json:"views"`
	CreatedAt  time.Time `json:"createdAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
	Privacy    string    `json:"privacy"`
}

// videoUpdateRequest — тело PUT /api/videos/{videoId} после проверки схемы.
type videoUpdateRequest struct {
	Title   *string `json:"title"`
	Privacy *string `json:"privacy"`
}

// VideosHandler — обработчик endpoints /api/videos.
type VideosHandler struct {
	uploadSvc    *service.UploadService
	videoSvc     *service.VideoService
	updateSchema *openapi.SchemaValidator
	logger       *slog.Logger
}

// NewVideosHandler создаёт обработчик endpoints /api/videos.
// updateSchema — валидатор схемы VideoUpdate из OpenAPI контракта.
func NewVideosHandler(
	uploadSvc *service.UploadService,
	videoSvc *service.VideoService,
	updateSchema *openapi.SchemaValidator,
	logger *slog.Logger,
) *VideosHandler {
	return &VideosHandler{
		uploadSvc:    uploadSvc,
		videoSvc:     videoSvc,
		updateSchema: updateSchema,
		logger:       logger.With(slog.String("component", "videos_handler")),
	}
}

// UploadVideo обрабатывает POST /api/videos/upload.
// Multipart form: video (файл video/*, обязательно), title (опционально).
// Тело читается потоково через multipart.Reader, размер не ограничен.
func (h *VideosHandler) UploadVideo(w http.ResponseWriter, r *http.Request) {
	mr, err := r.MultipartReader()
	if err != nil {
		apierrors.ValidationError(w, "Ожидается multipart/form-data: "+err.Error())
		return
	}

	var (
		staged *filestore.StagedFile
		title  string
	)
	// Временный файл удаляется при любом выходе до Finalize
	defer func() {
		if staged != nil {
			h.uploadSvc.Discard(staged)
		}
	}()

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			apierrors.ValidationError(w, "Ошибка чтения multipart: "+err.Error())
			return
		}

		switch part.FormName() {
		case "video":
			if staged != nil {
				apierrors.ValidationError(w, "Поле 'video' должно содержать один файл")
				return
			}
			if part.FileName() == "" {
				apierrors.ValidationError(w, "Поле 'video' должно содержать файл")
				return
			}
			// Отклоняется до записи первого байта на диск. Остаток тела
			// не дочитывается, соединение закрывает net/http.
			if !service.IsVideoContentType(part.Header.Get("Content-Type")) {
				apierrors.ValidationError(w, "Допускаются только видеофайлы (video/*)")
				return
			}

			s, uploadErr := h.uploadSvc.Stage(part, part.FileName())
			part.Close()
			if uploadErr != nil {
				apierrors.WriteError(w, uploadErr.StatusCode, uploadErr.Code, uploadErr.Message)
				return
			}
			staged = s

		case "title":
			data, err := io.ReadAll(io.LimitReader(part, maxTitleFieldSize+1))
			part.Close()
			if err != nil {
				apierrors.ValidationError(w, "Ошибка чтения поля 'title': "+err.Error())
				return
			}
			if len(data) > maxTitleFieldSize {
				apierrors.ValidationError(w, "Поле 'title' слишком длинное")
				return
			}
			title = string(data)

		default:
			// Неизвестные поля пропускаются
			part.Close()
		}
	}

	if staged == nil {
		apierrors.ValidationError(w, "Поле 'video' обязательно")
		return
	}

	// Тело полностью получено: отключение клиента не прерывает сохранение
	ctx := context.WithoutCancel(r.Context())
	video, uploadErr := h.uploadSvc.Finalize(ctx, staged, title)
	// Finalize сам отвечает за временный файл
	staged = nil
	if uploadErr != nil {
		apierrors.WriteError(w, uploadErr.StatusCode, uploadErr.Code, uploadErr.Message)
		return
	}

	writeJSON(w, http.StatusCreated, videoToResponse(video))
}

// ListVideos обрабатывает GET /api/videos.
// Пагинация: limit (по умолчанию 10), offset (по умолчанию 0).
// Нечисловые и отрицательные значения заменяются значениями по умолчанию.
func (h *VideosHandler) ListVideos(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultListLimit)
	if limit == 0 {
		limit = defaultListLimit
	}
	offset := queryInt(r, "offset", 0)

	items := h.videoSvc.List(limit, offset)

	resp := make([]videoResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, videoToResponse(item))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetVideo обрабатывает GET /api/videos/{videoId}.
// Каждый успешный запрос считается просмотром.
func (h *VideosHandler) GetVideo(w http.ResponseWriter, r *http.Request) {
	video, videoErr := h.videoSvc.View(chi.URLParam(r, "videoId"))
	if videoErr != nil {
		apierrors.WriteError(w, videoErr.StatusCode, videoErr.Code, videoErr.Message)
		return
	}

	writeJSON(w, http.StatusOK, videoToResponse(video))
}

// UpdateVideo обрабатывает PUT /api/videos/{videoId}.
// Частичное обновление title и/или privacy. Тело проверяется
// по схеме VideoUpdate; неизвестные поля игнорируются.
func (h *VideosHandler) UpdateVideo(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoId")

	if _, videoErr := h.videoSvc.Get(videoID); videoErr != nil {
		apierrors.WriteError(w, videoErr.StatusCode, videoErr.Code, videoErr.Message)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxUpdateBodySize+1))
	if err != nil {
		apierrors.ValidationError(w, "Ошибка чтения тела запроса: "+err.Error())
		return
	}
	if len(body) > maxUpdateBodySize {
		apierrors.ValidationError(w, "Тело запроса слишком большое")
		return
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		apierrors.ValidationError(w, fmt.Sprintf("Некорректный JSON: %s", err.Error()))
		return
	}
	if fieldErrs := h.updateSchema.Validate(payload); fieldErrs != nil {
		apierrors.ValidationErrorWithDetails(w, "Некорректные данные обновления", fieldErrs)
		return
	}

	var req videoUpdateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		apierrors.ValidationError(w, fmt.Sprintf("Некорректный JSON: %s", err.Error()))
		return
	}

	patch := model.VideoPatch{Title: req.Title}
	if req.Privacy != nil {
		privacy := model.Privacy(*req.Privacy)
		patch.Privacy = &privacy
	}

	video, videoErr := h.videoSvc.Update(videoID, patch)
	if videoErr != nil {
		apierrors.WriteError(w, videoErr.StatusCode, videoErr.Code, videoErr.Message)
		return
	}

	writeJSON(w, http.StatusOK, videoToResponse(video))
}

// DeleteVideo обрабатывает DELETE /api/videos/{videoId}.
func (h *VideosHandler) DeleteVideo(w http.ResponseWriter, r *http.Request) {
	if videoErr := h.videoSvc.Delete(chi.URLParam(r, "videoId")); videoErr != nil {
		apierrors.WriteError(w, videoErr.StatusCode, videoErr.Code, videoErr.Message)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// queryInt читает целочисленный query-параметр.
// Отсутствующее, нечисловое или отрицательное значение заменяется на def.
func queryInt(r *http.Request, name string, def int) int {
	var value *int
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), &value); err != nil {
		return def
	}
	if value == nil || *value < 0 {
		return def
	}
	return *value
}

// videoToResponse преобразует доменную модель в JSON-представление.
func videoToResponse(v *model.Video) videoResponse {
	return videoResponse{
		ID:         v.ID,
		VideoID:    v.VideoID,
		Title:      v.Title,
		Filename:   v.OriginalFilename,
		FilePath:   v.PublicPath(),
		FileSize:   v.FileSize,
		Duration:   v.Duration,
		Format:     v.Format,
		Resolution: v.Resolution,
		Status:     string(v.Status),
		Views:      v.Views,
		CreatedAt:  v.CreatedAt.UTC(),
		ExpiresAt:  v.ExpiresAt.UTC(),
		Privacy:    string(v.Privacy),
	}
}
