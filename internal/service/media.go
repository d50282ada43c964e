// media.go — сервис отдачи сохранённых видеофайлов.
package service

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	apierrors "github.com/bigkaa/vidshare/internal/api/errors"
	"github.com/bigkaa/vidshare/internal/api/middleware"
	"github.com/bigkaa/vidshare/internal/storage/catalog"
	"github.com/bigkaa/vidshare/internal/storage/filestore"
)

// MediaError — ошибка отдачи файла с HTTP-кодом.
type MediaError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *MediaError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MediaService — сервис отдачи видеофайлов из директории загрузок.
type MediaService struct {
	store   *filestore.FileStore
	catalog *catalog.Catalog
	logger  *slog.Logger
}

// NewMediaService создаёт сервис отдачи файлов.
func NewMediaService(store *filestore.FileStore, cat *catalog.Catalog, logger *slog.Logger) *MediaService {
	return &MediaService{
		store:   store,
		catalog: cat,
		logger:  logger.With(slog.String("component", "media_service")),
	}
}

// Serve отдаёт файл клиенту через http.ServeContent.
// Поддерживает Range requests (206 Partial Content) и If-Modified-Since.
// storagePath — путь относительно директории загрузок; пути вне корня,
// служебные файлы и отсутствующие файлы дают 404, файлы приватных видео 403.
func (s *MediaService) Serve(w http.ResponseWriter, r *http.Request, storagePath string) *MediaError {
	notFound := &MediaError{
		StatusCode: 404,
		Code:       apierrors.CodeNotFound,
		Message:    fmt.Sprintf("Файл %s не найден", storagePath),
	}

	if _, err := s.store.Resolve(storagePath); err != nil {
		return notFound
	}

	if v := s.catalog.GetByStoragePath(storagePath); v != nil && !v.IsViewable() {
		return &MediaError{
			StatusCode: 403,
			Code:       apierrors.CodeForbidden,
			Message:    fmt.Sprintf("Файл %s недоступен", storagePath),
		}
	}

	file, err := s.store.Open(storagePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, filestore.ErrInvalidPath) {
			return notFound
		}
		s.logger.Error("Ошибка открытия файла",
			slog.String("storage_path", storagePath),
			slog.String("error", err.Error()),
		)
		return &MediaError{
			StatusCode: 500,
			Code:       apierrors.CodeInternalError,
			Message:    "Ошибка чтения файла",
		}
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		s.logger.Error("Ошибка получения stat файла",
			slog.String("storage_path", storagePath),
			slog.String("error", err.Error()),
		)
		return &MediaError{
			StatusCode: 500,
			Code:       apierrors.CodeInternalError,
			Message:    "Ошибка чтения файла",
		}
	}

	w.Header().Set("Accept-Ranges", "bytes")

	// http.ServeContent обрабатывает Range, If-Modified-Since, Content-Length
	// и определяет Content-Type по расширению имени.
	http.ServeContent(w, r, stat.Name(), stat.ModTime(), file)

	middleware.OperationsTotal.WithLabelValues("stream", "success").Inc()

	return nil
}
