// Пакет model — доменные модели видеохостинга.
// Video — единственная сущность каталога: запись о загруженном видеофайле.
package model

import (
	"time"
)

// Status — статус обработки видео.
type Status string

const (
	// StatusProcessing — файл принят, метаданные ещё извлекаются
	StatusProcessing Status = "processing"
	// StatusReady — видео доступно для просмотра
	StatusReady Status = "ready"
	// StatusFailed — обработка завершилась ошибкой
	StatusFailed Status = "failed"
)

// Privacy — уровень доступа к видео.
type Privacy string

const (
	// PrivacyPublic — видео в общем списке и доступно по ссылке
	PrivacyPublic Privacy = "public"
	// PrivacyUnlisted — доступно по прямой ссылке, но не в списке
	PrivacyUnlisted Privacy = "unlisted"
	// PrivacyPrivate — недоступно для просмотра, только управление
	PrivacyPrivate Privacy = "private"
)

// Valid проверяет, что значение входит в допустимый набор.
func (p Privacy) Valid() bool {
	switch p {
	case PrivacyPublic, PrivacyUnlisted, PrivacyPrivate:
		return true
	}
	return false
}

// UploadsPrefix — URL-префикс, под которым отдаются сохранённые файлы.
const UploadsPrefix = "/uploads/"

// UnknownResolution — значение разрешения, если его не удалось определить.
const UnknownResolution = "unknown"

// Video — запись каталога о загруженном видео.
type Video struct {
	// ID — суррогатный последовательный идентификатор, назначается каталогом
	ID int64

	// VideoID — публичный идентификатор (UUID v4), используется в URL
	VideoID string

	// Title — отображаемое название
	Title string

	// OriginalFilename — имя файла, переданное клиентом
	OriginalFilename string

	// StoragePath — имя файла на диске относительно директории загрузок.
	// Не меняется после создания записи, в том числе при смене названия.
	StoragePath string

	// FileSize — размер файла в байтах
	FileSize int64

	// Duration — длительность в целых секундах (0, если неизвестна)
	Duration int

	// Format — расширение файла в нижнем регистре, без точки
	Format string

	// Resolution — разрешение вида "1920x1080" или "unknown"
	Resolution string

	// Status — статус обработки
	Status Status

	// Views — счётчик просмотров, только растёт
	Views int64

	// CreatedAt — время создания записи (UTC)
	CreatedAt time.Time

	// ExpiresAt — время, после которого запись удаляется GC
	ExpiresAt time.Time

	// Privacy — уровень доступа
	Privacy Privacy
}

// PublicPath возвращает URL, по которому клиент получает файл.
func (v *Video) PublicPath() string {
	return UploadsPrefix + v.StoragePath
}

// IsExpired проверяет, истёк ли срок хранения видео.
func (v *Video) IsExpired(now time.Time) bool {
	if v.ExpiresAt.IsZero() {
		return false
	}
	return now.After(v.ExpiresAt)
}

// IsViewable проверяет, можно ли смотреть видео по ссылке.
func (v *Video) IsViewable() bool {
	return v.Privacy != PrivacyPrivate
}

// VideoPatch — частичное обновление записи. nil-поля не меняются.
type VideoPatch struct {
	Title   *string
	Privacy *Privacy
}

// Apply применяет непустые поля патча к записи.
func (p VideoPatch) Apply(v *Video) {
	if p.Title != nil {
		v.Title = *p.Title
	}
	if p.Privacy != nil {
		v.Privacy = *p.Privacy
	}
}
