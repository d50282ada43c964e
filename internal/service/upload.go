// upload.go — сервис загрузки видео.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"strings"

	"github.com/google/uuid"

	apierrors "github.com/bigkaa/vidshare/internal/api/errors"
	"github.com/bigkaa/vidshare/internal/api/middleware"
	"github.com/bigkaa/vidshare/internal/domain/model"
	"github.com/bigkaa/vidshare/internal/probe"
	"github.com/bigkaa/vidshare/internal/storage/catalog"
	"github.com/bigkaa/vidshare/internal/storage/filestore"
)

// Prober извлекает метаданные сохранённого видеофайла.
type Prober interface {
	Probe(ctx context.Context, videoPath string) probe.Result
}

// UploadError — ошибка загрузки с HTTP-кодом.
type UploadError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// UploadService — сервис загрузки видео.
type UploadService struct {
	store   *filestore.FileStore
	catalog *catalog.Catalog
	prober  Prober
	logger  *slog.Logger
}

// NewUploadService создаёт сервис загрузки видео.
func NewUploadService(
	store *filestore.FileStore,
	cat *catalog.Catalog,
	prober Prober,
	logger *slog.Logger,
) *UploadService {
	return &UploadService{
		store:   store,
		catalog: cat,
		prober:  prober,
		logger:  logger.With(slog.String("component", "upload_service")),
	}
}

// IsVideoContentType проверяет, что MIME-тип части относится к video/*.
// Параметры типа (codecs и т.п.) игнорируются.
func IsVideoContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "video/") && len(mediaType) > len("video/")
}

// Stage записывает поток файла во временную директорию.
// Проверка MIME-типа выполняется до вызова, на уровне multipart-части.
func (s *UploadService) Stage(reader io.Reader, originalFilename string) (*filestore.StagedFile, *UploadError) {
	staged, err := s.store.Stage(reader, originalFilename)
	if err != nil {
		s.logger.Error("Ошибка записи временного файла",
			slog.String("filename", originalFilename),
			slog.String("error", err.Error()),
		)
		middleware.OperationsTotal.WithLabelValues("upload", "error").Inc()
		return nil, &UploadError{
			StatusCode: 500,
			Code:       apierrors.CodeInternalError,
			Message:    "Ошибка сохранения файла: " + err.Error(),
		}
	}
	return staged, nil
}

// Discard удаляет временный файл незавершённой загрузки.
func (s *UploadService) Discard(staged *filestore.StagedFile) {
	if err := s.store.Discard(staged); err != nil {
		s.logger.Warn("Не удалось удалить временный файл",
			slog.String("error", err.Error()),
		)
	}
}

// Finalize завершает загрузку: переносит файл в хранилище,
// извлекает метаданные и создаёт запись каталога.
//
// Поток:
//  1. Генерация публичного идентификатора (UUID v4)
//  2. Название: переданное или имя файла без расширения
//  3. Имя файла: {sanitizedTitle}_{videoId}{ext}
//  4. Перенос временного файла (rename с повторами)
//  5. ffprobe (при сбое: длительность 0, разрешение unknown)
//  6. Создание записи (status=ready, privacy=public)
//
// При ошибке временный и перенесённый файлы удаляются, запись не создаётся.
func (s *UploadService) Finalize(ctx context.Context, staged *filestore.StagedFile, title string) (*model.Video, *UploadError) {
	videoID := uuid.New().String()

	title = strings.TrimSpace(title)
	if title == "" {
		title = strings.TrimSpace(filestore.TitleFromFilename(staged.OriginalFilename))
	}
	if title == "" {
		title = videoID
	}

	storageName := filestore.StorageName(title, videoID, staged.Ext)

	fullPath, err := s.store.Commit(ctx, staged, storageName)
	if err != nil {
		s.Discard(staged)
		s.logger.Error("Ошибка переноса файла в хранилище",
			slog.String("video_id", videoID),
			slog.String("storage_path", storageName),
			slog.String("error", err.Error()),
		)
		middleware.OperationsTotal.WithLabelValues("upload", "error").Inc()
		return nil, &UploadError{
			StatusCode: 500,
			Code:       apierrors.CodeInternalError,
			Message:    "Ошибка сохранения файла: " + err.Error(),
		}
	}

	info := s.prober.Probe(ctx, fullPath)

	created, err := s.catalog.Create(&model.Video{
		VideoID:          videoID,
		Title:            title,
		OriginalFilename: staged.OriginalFilename,
		StoragePath:      storageName,
		FileSize:         staged.Size,
		Duration:         info.Duration,
		Format:           strings.TrimPrefix(staged.Ext, "."),
		Resolution:       info.Resolution,
		Status:           model.StatusReady,
		Privacy:          model.PrivacyPublic,
	})
	if err != nil {
		if delErr := s.store.Delete(storageName); delErr != nil {
			s.logger.Error("Не удалось удалить файл после ошибки каталога",
				slog.String("storage_path", storageName),
				slog.String("error", delErr.Error()),
			)
		}
		s.logger.Error("Ошибка создания записи видео",
			slog.String("video_id", videoID),
			slog.String("status", string(model.StatusFailed)),
			slog.String("error", err.Error()),
		)
		middleware.OperationsTotal.WithLabelValues("upload", "error").Inc()
		return nil, &UploadError{
			StatusCode: 500,
			Code:       apierrors.CodeInternalError,
			Message:    "Ошибка создания записи видео: " + err.Error(),
		}
	}

	UpdateCatalogMetrics(s.catalog)
	middleware.OperationsTotal.WithLabelValues("upload", "success").Inc()

	s.logger.Info("Видео загружено",
		slog.String("video_id", created.VideoID),
		slog.String("title", created.Title),
		slog.String("storage_path", created.StoragePath),
		slog.Int64("size", created.FileSize),
		slog.Int("duration", created.Duration),
		slog.String("resolution", created.Resolution),
	)

	return created, nil
}
