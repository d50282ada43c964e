// Точка входа vidshare — анонимного видеохостинга.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/bigkaa/vidshare/internal/api/handlers"
	"github.com/bigkaa/vidshare/internal/api/openapi"
	"github.com/bigkaa/vidshare/internal/config"
	"github.com/bigkaa/vidshare/internal/probe"
	"github.com/bigkaa/vidshare/internal/server"
	"github.com/bigkaa/vidshare/internal/service"
	"github.com/bigkaa/vidshare/internal/storage/catalog"
	"github.com/bigkaa/vidshare/internal/storage/filestore"
)

func main() {
	// Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}

	// Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("vidshare запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("upload_dir", cfg.UploadDir),
		slog.String("temp_dir", cfg.TempDir),
		slog.String("retention", cfg.Retention.String()),
	)

	// --- Инициализация компонентов ---

	// 1. Файловое хранилище
	store, err := filestore.New(cfg.UploadDir, cfg.TempDir, logger)
	if err != nil {
		logger.Error("Ошибка инициализации FileStore", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. In-memory каталог видео
	cat := catalog.New(cfg.Retention, store, logger)

	// 3. ffprobe
	prober := probe.New(cfg.FFprobePath, cfg.ProbeTimeout, cfg.ProbeRetries, probe.NewCommandRunner(), logger)
	if err := prober.Available(); err != nil {
		logger.Warn("ffprobe недоступен, метаданные видео будут по умолчанию",
			slog.String("ffprobe_path", cfg.FFprobePath),
			slog.String("error", err.Error()),
		)
	}

	// 4. OpenAPI контракт для валидации тел запросов
	doc, err := openapi.Load()
	if err != nil {
		logger.Error("Ошибка загрузки OpenAPI контракта", slog.String("error", err.Error()))
		os.Exit(1)
	}
	updateSchema, err := openapi.NewSchemaValidator(doc, "VideoUpdate")
	if err != nil {
		logger.Error("Ошибка инициализации валидатора", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 5. Сервисы
	embedSvc := service.NewEmbedService(cfg.EmbedCacheSize, cfg.EmbedCacheTTL, logger)
	uploadSvc := service.NewUploadService(store, cat, prober, logger)
	videoSvc := service.NewVideoService(cat, embedSvc, logger)
	mediaSvc := service.NewMediaService(store, cat, logger)

	service.UpdateCatalogMetrics(cat)

	// 6. Фоновые процессы
	ctx := context.Background()

	// 6.1 GC — удаление видео с истёкшим сроком и брошенных временных файлов
	gcSvc := service.NewGCService(store, cat, embedSvc, cfg.GCInterval, cfg.TempMaxAge, logger)
	gcSvc.Start(ctx)

	// 7. Handlers
	apiHandler := handlers.NewAPIHandler(
		handlers.NewVideosHandler(uploadSvc, videoSvc, updateSchema, logger),
		handlers.NewEmbedHandler(videoSvc, embedSvc, logger),
		handlers.NewMediaHandler(mediaSvc),
		handlers.NewSystemHandler(cat, diskUsageFn(cfg.UploadDir), logger),
		handlers.NewHealthHandler(cfg.UploadDir, cfg.TempDir, prober),
	)

	// 8. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler)

	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		gcSvc.Stop()
		os.Exit(1)
	}

	// --- Graceful shutdown фоновых процессов ---
	logger.Info("Остановка фоновых процессов...")

	gcSvc.Stop()

	logger.Info("vidshare остановлен")
}
