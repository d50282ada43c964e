// embed.go — рендеринг embed-страниц с плеером и их LRU-кэш.
package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/vidshare/internal/domain/model"
)

// Prometheus-метрики кэша embed-страниц.
var (
	embedCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vs_embed_cache_hits_total",
		Help: "Общее количество попаданий в кэш embed-страниц.",
	})
	embedCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vs_embed_cache_misses_total",
		Help: "Общее количество промахов кэша embed-страниц.",
	})
)

// embedEntry — закэшированная страница и данные, из которых она построена.
type embedEntry struct {
	title string
	src   string
	page  []byte
}

// EmbedService рендерит embed-страницы и кэширует их по videoId.
// Запись кэша действительна, пока название и путь файла совпадают
// с переданной записью; обновление и удаление видео сбрасывают её явно.
type EmbedService struct {
	cache  *expirable.LRU[string, embedEntry]
	logger *slog.Logger
}

// NewEmbedService создаёт сервис embed-страниц.
// maxSize — максимальное количество страниц в кэше, ttl — время жизни страницы.
func NewEmbedService(maxSize int, ttl time.Duration, logger *slog.Logger) *EmbedService {
	return &EmbedService{
		cache:  expirable.NewLRU[string, embedEntry](maxSize, nil, ttl),
		logger: logger.With(slog.String("component", "embed_service")),
	}
}

// Page возвращает HTML embed-страницы для видео.
// Страница, построенная по устаревшей версии записи, считается промахом.
func (s *EmbedService) Page(ctx context.Context, v *model.Video) ([]byte, error) {
	src := v.PublicPath()
	if entry, ok := s.cache.Get(v.VideoID); ok && entry.title == v.Title && entry.src == src {
		embedCacheHitsTotal.Inc()
		return entry.page, nil
	}
	embedCacheMissesTotal.Inc()

	var buf bytes.Buffer
	if err := embedPage(v.Title, src).Render(ctx, &buf); err != nil {
		return nil, fmt.Errorf("ошибка рендеринга embed-страницы %s: %w", v.VideoID, err)
	}

	page := buf.Bytes()
	s.cache.Add(v.VideoID, embedEntry{title: v.Title, src: src, page: page})
	return page, nil
}

// Invalidate удаляет страницу видео из кэша.
func (s *EmbedService) Invalidate(videoID string) {
	if s.cache.Remove(videoID) {
		s.logger.Debug("Embed-страница удалена из кэша", slog.String("video_id", videoID))
	}
}

// Len возвращает количество страниц в кэше.
func (s *EmbedService) Len() int {
	return s.cache.Len()
}
