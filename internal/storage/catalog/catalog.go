// Пакет catalog — потокобезопасный in-memory каталог видеозаписей.
//
// Каталог живёт только в памяти процесса: при рестарте записи теряются.
// Все операции копируют записи на входе и выходе, поэтому вызывающий
// код не может изменить состояние каталога в обход блокировки.
// Файловый ввод-вывод под блокировкой не выполняется.
package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/bigkaa/vidshare/internal/domain/model"
)

// ErrDuplicate — запись с таким публичным идентификатором или файлом уже есть.
var ErrDuplicate = errors.New("запись уже существует")

// FileRemover удаляет файл записи с диска.
type FileRemover interface {
	Delete(storagePath string) error
}

// Catalog — in-memory каталог видео.
// Использует sync.RWMutex для конкурентного чтения и эксклюзивной записи.
type Catalog struct {
	mu        sync.RWMutex
	videos    map[int64]*model.Video // id → запись
	byVideoID map[string]int64       // videoId → id
	byPath    map[string]int64       // storage path → id
	nextID    int64

	retention time.Duration
	remover   FileRemover
	now       func() time.Time
	logger    *slog.Logger
}

// New создаёт пустой каталог.
// retention — срок хранения записи (ExpiresAt = CreatedAt + retention).
// remover — удаление файлов при Delete (может быть nil).
func New(retention time.Duration, remover FileRemover, logger *slog.Logger) *Catalog {
	return &Catalog{
		videos:    make(map[int64]*model.Video),
		byVideoID: make(map[string]int64),
		byPath:    make(map[string]int64),
		retention: retention,
		remover:   remover,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger.With(slog.String("component", "catalog")),
	}
}

// Create добавляет новую запись. Назначает ID, CreatedAt, ExpiresAt
// и обнуляет счётчик просмотров; одноимённые поля входа игнорируются.
// Возвращает копию сохранённой записи.
func (c *Catalog) Create(v *model.Video) (*model.Video, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.byVideoID[v.VideoID]; ok {
		return nil, fmt.Errorf("videoId %s: %w", v.VideoID, ErrDuplicate)
	}
	if _, ok := c.byPath[v.StoragePath]; ok {
		return nil, fmt.Errorf("файл %s: %w", v.StoragePath, ErrDuplicate)
	}

	c.nextID++
	stored := *v
	stored.ID = c.nextID
	stored.CreatedAt = c.now()
	stored.ExpiresAt = stored.CreatedAt.Add(c.retention)
	stored.Views = 0

	c.videos[stored.ID] = &stored
	c.byVideoID[stored.VideoID] = stored.ID
	c.byPath[stored.StoragePath] = stored.ID

	copied := stored
	return &copied, nil
}

// Get возвращает запись по внутреннему ID или nil.
func (c *Catalog) Get(id int64) *model.Video {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.getLocked(id)
}

// GetByVideoID возвращает запись по публичному идентификатору или nil.
func (c *Catalog) GetByVideoID(videoID string) *model.Video {
	c.mu.RLock()
	defer c.mu.RUnlock()

	id, ok := c.byVideoID[videoID]
	if !ok {
		return nil
	}
	return c.getLocked(id)
}

// GetByStoragePath возвращает запись по имени файла в хранилище или nil.
func (c *Catalog) GetByStoragePath(storagePath string) *model.Video {
	c.mu.RLock()
	defer c.mu.RUnlock()

	id, ok := c.byPath[storagePath]
	if !ok {
		return nil
	}
	return c.getLocked(id)
}

// Update применяет частичное обновление к записи.
// Возвращает обновлённую копию или nil, если записи нет.
func (c *Catalog) Update(id int64, patch model.VideoPatch) *model.Video {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.videos[id]
	if !ok {
		return nil
	}
	patch.Apply(v)

	copied := *v
	return &copied
}

// IncrementViews атомарно увеличивает счётчик просмотров на 1.
// Возвращает запись после увеличения или nil, если записи нет.
func (c *Catalog) IncrementViews(videoID string) *model.Video {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, ok := c.byVideoID[videoID]
	if !ok {
		return nil
	}
	v := c.videos[id]
	v.Views++

	copied := *v
	return &copied
}

// Delete удаляет запись и её файл.
// Ошибка удаления файла логируется и не отменяет удаление записи.
// Возвращает false, если записи нет.
func (c *Catalog) Delete(id int64) bool {
	c.mu.Lock()
	v, ok := c.videos[id]
	if ok {
		delete(c.videos, id)
		delete(c.byVideoID, v.VideoID)
		delete(c.byPath, v.StoragePath)
	}
	c.mu.Unlock()

	if !ok {
		return false
	}

	if c.remover != nil {
		if err := c.remover.Delete(v.StoragePath); err != nil {
			c.logger.Error("Ошибка удаления файла видео",
				slog.String("video_id", v.VideoID),
				slog.String("storage_path", v.StoragePath),
				slog.String("error", err.Error()),
			)
		}
	}

	return true
}

// List возвращает пагинированный список записей с опциональным фильтром доступа.
// Параметры:
//   - limit: максимальное количество элементов (0 = все)
//   - offset: смещение от начала списка
//   - privacy: фильтр по уровню доступа ("" = без фильтра)
//
// Записи отсортированы по CreatedAt (новые первые), при равенстве по ID (больший первый).
// Возвращает срез записей и общее количество с учётом фильтра.
func (c *Catalog) List(limit, offset int, privacy model.Privacy) ([]*model.Video, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var filtered []*model.Video
	for _, v := range c.videos {
		if privacy != "" && v.Privacy != privacy {
			continue
		}
		copied := *v
		filtered = append(filtered, &copied)
	}

	sort.Slice(filtered, func(i, j int) bool {
		if !filtered[i].CreatedAt.Equal(filtered[j].CreatedAt) {
			return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
		}
		return filtered[i].ID > filtered[j].ID
	})

	total := len(filtered)

	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []*model.Video{}, total
	}

	// limit сравнивается с остатком, чтобы offset+limit не переполнялся
	end := total
	if limit > 0 && limit < total-offset {
		end = offset + limit
	}

	return filtered[offset:end], total
}

// Expired возвращает записи с истёкшим сроком хранения на момент now.
func (c *Catalog) Expired(now time.Time) []*model.Video {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var result []*model.Video
	for _, v := range c.videos {
		if v.IsExpired(now) {
			copied := *v
			result = append(result, &copied)
		}
	}
	return result
}

// Count возвращает общее количество записей.
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.videos)
}

// CountByPrivacy возвращает количество записей с указанным уровнем доступа.
func (c *Catalog) CountByPrivacy(privacy model.Privacy) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	count := 0
	for _, v := range c.videos {
		if v.Privacy == privacy {
			count++
		}
	}
	return count
}

// TotalSize возвращает суммарный размер файлов всех записей в байтах.
func (c *Catalog) TotalSize() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var total int64
	for _, v := range c.videos {
		total += v.FileSize
	}
	return total
}

func (c *Catalog) getLocked(id int64) *model.Video {
	v, ok := c.videos[id]
	if !ok {
		return nil
	}
	copied := *v
	return &copied
}
