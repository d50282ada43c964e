// gc.go — сервис фоновой очистки (Garbage Collection).
//
// GC выполняет две задачи:
//  1. Удаляет видео с истёкшим сроком хранения (запись + файл + кэш embed)
//  2. Удаляет брошенные временные файлы прерванных загрузок
//
// Запускается как горутина с периодическим тикером (VS_GC_INTERVAL).
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/vidshare/internal/storage/catalog"
	"github.com/bigkaa/vidshare/internal/storage/filestore"
)

// Prometheus метрики GC
var (
	// gcRunsTotal — количество запусков GC.
	gcRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vs_gc_runs_total",
		Help: "Общее количество запусков GC",
	})

	// gcVideosExpiredTotal — количество видео, удалённых по истечении срока.
	gcVideosExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vs_gc_videos_expired_total",
		Help: "Общее количество видео, удалённых GC по истечении срока хранения",
	})

	// gcTempFilesDeletedTotal — количество удалённых временных файлов.
	gcTempFilesDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vs_gc_temp_files_deleted_total",
		Help: "Общее количество брошенных временных файлов, удалённых GC",
	})

	// gcDurationSeconds — длительность выполнения GC.
	gcDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vs_gc_duration_seconds",
		Help:    "Длительность выполнения GC в секундах",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	})
)

// GCResult — результат одного запуска GC.
type GCResult struct {
	// ExpiredCount — количество удалённых видео с истёкшим сроком
	ExpiredCount int
	// TempDeletedCount — количество удалённых временных файлов
	TempDeletedCount int
	// Errors — количество ошибок при обработке
	Errors int
	// Duration — длительность выполнения
	Duration time.Duration
}

// GCService — сервис фоновой очистки.
type GCService struct {
	store       *filestore.FileStore
	catalog     *catalog.Catalog
	invalidator Invalidator
	interval    time.Duration
	tempMaxAge  time.Duration
	now         func() time.Time
	logger      *slog.Logger

	mu     sync.Mutex // защита от параллельного запуска RunOnce
	cancel context.CancelFunc
	done   chan struct{}
}

// NewGCService создаёт сервис GC.
// invalidator может быть nil.
func NewGCService(
	store *filestore.FileStore,
	cat *catalog.Catalog,
	invalidator Invalidator,
	interval time.Duration,
	tempMaxAge time.Duration,
	logger *slog.Logger,
) *GCService {
	return &GCService{
		store:       store,
		catalog:     cat,
		invalidator: invalidator,
		interval:    interval,
		tempMaxAge:  tempMaxAge,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      logger.With(slog.String("component", "gc")),
	}
}

// Start запускает фоновую горутину GC с периодическим тикером.
// Вызывается один раз при старте приложения.
func (gc *GCService) Start(ctx context.Context) {
	gcCtx, cancel := context.WithCancel(ctx)
	gc.cancel = cancel
	gc.done = make(chan struct{})

	go gc.run(gcCtx)

	gc.logger.Info("GC запущен",
		slog.String("interval", gc.interval.String()),
		slog.String("temp_max_age", gc.tempMaxAge.String()),
	)
}

// Stop останавливает фоновый процесс GC и ждёт завершения текущего цикла.
func (gc *GCService) Stop() {
	if gc.cancel != nil {
		gc.cancel()
		<-gc.done
	}
	gc.logger.Info("GC остановлен")
}

// run — основной цикл фоновой горутины.
func (gc *GCService) run(ctx context.Context) {
	defer close(gc.done)

	// Первый запуск — сразу после старта
	gc.RunOnce()

	ticker := time.NewTicker(gc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			gc.RunOnce()
		}
	}
}

// RunOnce выполняет один цикл GC.
// Потокобезопасен: использует mutex для защиты от параллельного запуска.
func (gc *GCService) RunOnce() *GCResult {
	gc.mu.Lock()
	defer gc.mu.Unlock()

	start := time.Now()
	result := &GCResult{}

	gc.logger.Debug("GC запуск начат")

	// Фаза 1: удаление видео с истёкшим сроком
	result.ExpiredCount = gc.deleteExpired(gc.now())

	// Фаза 2: удаление брошенных временных файлов
	if gc.tempMaxAge > 0 {
		removed, err := gc.store.CleanTemp(gc.tempMaxAge)
		if err != nil {
			gc.logger.Error("GC: ошибка очистки временной директории",
				slog.String("error", err.Error()),
			)
			result.Errors++
		}
		result.TempDeletedCount = removed
	}

	result.Duration = time.Since(start)

	if result.ExpiredCount > 0 {
		UpdateCatalogMetrics(gc.catalog)
	}

	// Обновляем Prometheus метрики
	gcRunsTotal.Inc()
	gcVideosExpiredTotal.Add(float64(result.ExpiredCount))
	gcTempFilesDeletedTotal.Add(float64(result.TempDeletedCount))
	gcDurationSeconds.Observe(result.Duration.Seconds())

	gc.logger.Info("GC завершён",
		slog.Int("expired", result.ExpiredCount),
		slog.Int("temp_deleted", result.TempDeletedCount),
		slog.Int("errors", result.Errors),
		slog.Duration("duration", result.Duration),
	)

	return result
}

// deleteExpired удаляет записи с истёкшим сроком хранения вместе с файлами.
func (gc *GCService) deleteExpired(now time.Time) int {
	count := 0
	for _, v := range gc.catalog.Expired(now) {
		if !gc.catalog.Delete(v.ID) {
			// Уже удалено параллельным запросом
			continue
		}
		if gc.invalidator != nil {
			gc.invalidator.Invalidate(v.VideoID)
		}

		gc.logger.Debug("GC: видео удалено по истечении срока",
			slog.String("video_id", v.VideoID),
			slog.String("storage_path", v.StoragePath),
			slog.Time("expires_at", v.ExpiresAt),
		)
		count++
	}
	return count
}
