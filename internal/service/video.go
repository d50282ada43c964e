// Пакет service — бизнес-логика видеохостинга.
// video.go — просмотр, список, обновление и удаление видео.
package service

import (
	"fmt"
	"log/slog"

	apierrors "github.com/bigkaa/vidshare/internal/api/errors"
	"github.com/bigkaa/vidshare/internal/api/middleware"
	"github.com/bigkaa/vidshare/internal/domain/model"
	"github.com/bigkaa/vidshare/internal/storage/catalog"
)

// Invalidator сбрасывает производные данные видео (например, кэш embed-страниц).
type Invalidator interface {
	Invalidate(videoID string)
}

// VideoError — ошибка операции над видео с HTTP-кодом.
type VideoError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *VideoError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func videoNotFound(videoID string) *VideoError {
	return &VideoError{
		StatusCode: 404,
		Code:       apierrors.CodeNotFound,
		Message:    fmt.Sprintf("Видео %s не найдено", videoID),
	}
}

// VideoService — операции над записями каталога.
type VideoService struct {
	catalog     *catalog.Catalog
	invalidator Invalidator
	logger      *slog.Logger
}

// NewVideoService создаёт сервис видео.
// invalidator может быть nil.
func NewVideoService(cat *catalog.Catalog, invalidator Invalidator, logger *slog.Logger) *VideoService {
	return &VideoService{
		catalog:     cat,
		invalidator: invalidator,
		logger:      logger.With(slog.String("component", "video_service")),
	}
}

// View возвращает видео для просмотра и увеличивает счётчик просмотров.
// Возвращается запись после увеличения счётчика.
// Приватные видео недоступны (403), их счётчик не меняется.
func (s *VideoService) View(videoID string) (*model.Video, *VideoError) {
	v := s.catalog.GetByVideoID(videoID)
	if v == nil {
		return nil, videoNotFound(videoID)
	}
	if !v.IsViewable() {
		return nil, &VideoError{
			StatusCode: 403,
			Code:       apierrors.CodeForbidden,
			Message:    fmt.Sprintf("Видео %s недоступно для просмотра", videoID),
		}
	}

	viewed := s.catalog.IncrementViews(videoID)
	if viewed == nil {
		// Удалено между поиском и увеличением счётчика
		return nil, videoNotFound(videoID)
	}

	middleware.OperationsTotal.WithLabelValues("view", "success").Inc()
	return viewed, nil
}

// Get возвращает запись без учёта просмотра и без проверки доступа.
// Используется операциями управления (обновление, удаление).
func (s *VideoService) Get(videoID string) (*model.Video, *VideoError) {
	v := s.catalog.GetByVideoID(videoID)
	if v == nil {
		return nil, videoNotFound(videoID)
	}
	return v, nil
}

// List возвращает страницу публичных видео, новые первыми.
// Непубличные видео в список не попадают.
func (s *VideoService) List(limit, offset int) []*model.Video {
	items, _ := s.catalog.List(limit, offset, model.PrivacyPublic)
	return items
}

// Update применяет частичное обновление названия и/или уровня доступа.
// Файл на диске не переименовывается.
func (s *VideoService) Update(videoID string, patch model.VideoPatch) (*model.Video, *VideoError) {
	v := s.catalog.GetByVideoID(videoID)
	if v == nil {
		return nil, videoNotFound(videoID)
	}

	updated := s.catalog.Update(v.ID, patch)
	if updated == nil {
		return nil, videoNotFound(videoID)
	}

	if s.invalidator != nil {
		s.invalidator.Invalidate(videoID)
	}
	UpdateCatalogMetrics(s.catalog)
	middleware.OperationsTotal.WithLabelValues("update", "success").Inc()

	s.logger.Info("Видео обновлено",
		slog.String("video_id", videoID),
		slog.String("title", updated.Title),
		slog.String("privacy", string(updated.Privacy)),
	)

	return updated, nil
}

// Delete удаляет запись и файл видео.
func (s *VideoService) Delete(videoID string) *VideoError {
	v := s.catalog.GetByVideoID(videoID)
	if v == nil {
		return videoNotFound(videoID)
	}

	if !s.catalog.Delete(v.ID) {
		// Запись удалена параллельным запросом
		middleware.OperationsTotal.WithLabelValues("delete", "not_found").Inc()
		return videoNotFound(videoID)
	}

	if s.invalidator != nil {
		s.invalidator.Invalidate(videoID)
	}
	UpdateCatalogMetrics(s.catalog)
	middleware.OperationsTotal.WithLabelValues("delete", "success").Inc()

	s.logger.Info("Видео удалено",
		slog.String("video_id", videoID),
		slog.String("storage_path", v.StoragePath),
	)

	return nil
}

// UpdateCatalogMetrics обновляет Prometheus метрики каталога.
func UpdateCatalogMetrics(cat *catalog.Catalog) {
	for _, p := range []model.Privacy{model.PrivacyPublic, model.PrivacyUnlisted, model.PrivacyPrivate} {
		middleware.VideosTotal.WithLabelValues(string(p)).Set(float64(cat.CountByPrivacy(p)))
	}
	middleware.StorageBytes.Set(float64(cat.TotalSize()))
}
