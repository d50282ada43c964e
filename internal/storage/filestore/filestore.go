// Пакет filestore — операции с видеофайлами на диске.
// Обеспечивает streaming-запись во временную директорию, перенос в
// постоянное хранилище, чтение с ограничением корнем загрузок,
// удаление и очистку устаревших временных файлов.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

// ErrInvalidPath — путь выходит за пределы директории загрузок
// или указывает на служебный файл.
var ErrInvalidPath = errors.New("недопустимый путь к файлу")

// commitRetries — количество повторов переноса файла при временных ошибках.
const commitRetries = 3

// FileStore — управление видеофайлами на диске.
type FileStore struct {
	// uploadDir — корневая директория постоянного хранения (VS_UPLOAD_DIR)
	uploadDir string
	// tempDir — директория временных файлов загрузки (VS_TEMP_DIR)
	tempDir string
	logger  *slog.Logger
}

// StagedFile — файл, записанный во временную директорию и ожидающий переноса.
type StagedFile struct {
	// Token — случайный идентификатор временного файла
	Token string
	// TempPath — абсолютный путь временного файла
	TempPath string
	// OriginalFilename — имя файла, переданное клиентом
	OriginalFilename string
	// Ext — нормализованное расширение с точкой (".mp4") или пустая строка
	Ext string
	// Size — количество записанных байт
	Size int64
}

// New создаёт FileStore. Создаёт директории, если они не существуют.
func New(uploadDir, tempDir string, logger *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(uploadDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию загрузок %s: %w", uploadDir, err)
	}
	if err := os.MkdirAll(tempDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать временную директорию %s: %w", tempDir, err)
	}

	return &FileStore{
		uploadDir: uploadDir,
		tempDir:   tempDir,
		logger:    logger.With(slog.String("component", "filestore")),
	}, nil
}

// Stage записывает поток во временный файл {token}{ext}.
// Имя не зависит от имени клиента, поэтому параллельные загрузки не конфликтуют.
//
// Паттерн: запись → fsync → close. При ошибке временный файл удаляется.
func (fs *FileStore) Stage(reader io.Reader, originalFilename string) (*StagedFile, error) {
	ext := Extension(originalFilename)
	token := uuid.New().String()
	tmpPath := filepath.Join(fs.tempDir, token+ext)

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	size, err := io.Copy(f, reader)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка записи данных: %w", err)
	}

	// fsync для гарантии записи на диск
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	return &StagedFile{
		Token:            token,
		TempPath:         tmpPath,
		OriginalFilename: originalFilename,
		Ext:              ext,
		Size:             size,
	}, nil
}

// Commit переносит временный файл в директорию загрузок под именем storageName.
// Временные ошибки rename повторяются с экспоненциальной задержкой.
// Если временная директория на другой файловой системе, файл копируется.
// Возвращает абсолютный путь сохранённого файла.
func (fs *FileStore) Commit(ctx context.Context, staged *StagedFile, storageName string) (string, error) {
	fullPath, err := fs.Resolve(storageName)
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(fullPath); err == nil {
		return "", fmt.Errorf("файл %s уже существует", storageName)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxElapsedTime = 5 * time.Second
	b.Reset()

	attempt := 0
	op := func() error {
		attempt++
		err := os.Rename(staged.TempPath, fullPath)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, syscall.EXDEV):
			return backoff.Permanent(moveAcrossDevices(staged.TempPath, fullPath))
		case errors.Is(err, os.ErrNotExist):
			return backoff.Permanent(err)
		}
		fs.logger.Warn("Ошибка переноса файла, повтор",
			slog.String("storage_path", storageName),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(b, commitRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return "", fmt.Errorf("ошибка переноса файла в хранилище: %w", err)
	}

	return fullPath, nil
}

// Discard удаляет временный файл. Отсутствие файла не считается ошибкой.
func (fs *FileStore) Discard(staged *StagedFile) error {
	if staged == nil {
		return nil
	}
	err := os.Remove(staged.TempPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления временного файла %s: %w", staged.TempPath, err)
	}
	return nil
}

// Resolve возвращает абсолютный путь файла внутри директории загрузок.
// Отклоняет абсолютные пути, выход за корень (..) и сегменты,
// начинающиеся с точки (временная директория, служебные файлы).
func (fs *FileStore) Resolve(storagePath string) (string, error) {
	if storagePath == "" {
		return "", ErrInvalidPath
	}
	local, err := filepath.Localize(storagePath)
	if err != nil || !filepath.IsLocal(local) {
		return "", ErrInvalidPath
	}
	for _, segment := range strings.Split(filepath.ToSlash(local), "/") {
		if segment == "" || strings.HasPrefix(segment, ".") {
			return "", ErrInvalidPath
		}
	}
	return filepath.Join(fs.uploadDir, local), nil
}

// Open открывает сохранённый файл для чтения.
// Вызывающий код обязан закрыть файл.
// Для отсутствующего файла и каталога возвращается ошибка, совместимая с os.ErrNotExist.
func (fs *FileStore) Open(storagePath string) (*os.File, error) {
	fullPath, err := fs.Resolve(storagePath)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("файл не найден: %s: %w", storagePath, os.ErrNotExist)
		}
		return nil, fmt.Errorf("ошибка открытия файла %s: %w", storagePath, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("ошибка получения информации о файле %s: %w", storagePath, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("файл не найден: %s: %w", storagePath, os.ErrNotExist)
	}

	return f, nil
}

// Delete удаляет файл из директории загрузок.
// Возвращает nil, если файл уже не существует.
func (fs *FileStore) Delete(storagePath string) error {
	fullPath, err := fs.Resolve(storagePath)
	if err != nil {
		return err
	}

	err = os.Remove(fullPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления файла %s: %w", storagePath, err)
	}
	return nil
}

// Exists проверяет существование файла в директории загрузок.
func (fs *FileStore) Exists(storagePath string) bool {
	fullPath, err := fs.Resolve(storagePath)
	if err != nil {
		return false
	}
	_, err = os.Stat(fullPath)
	return err == nil
}

// CleanTemp удаляет временные файлы старше olderThan.
// Такие файлы остаются от прерванных загрузок.
// Возвращает количество удалённых файлов.
func (fs *FileStore) CleanTemp(olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(fs.tempDir)
	if err != nil {
		return 0, fmt.Errorf("ошибка чтения временной директории %s: %w", fs.tempDir, err)
	}

	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(fs.tempDir, entry.Name())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			fs.logger.Warn("Не удалось удалить временный файл",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			continue
		}
		removed++
	}

	return removed, nil
}

// UploadDir возвращает путь к директории загрузок.
func (fs *FileStore) UploadDir() string {
	return fs.uploadDir
}

// TempDir возвращает путь к временной директории.
func (fs *FileStore) TempDir() string {
	return fs.tempDir
}

// moveAcrossDevices копирует файл и удаляет исходный,
// когда rename невозможен между файловыми системами.
func moveAcrossDevices(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("ошибка открытия временного файла: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("ошибка создания файла: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("ошибка копирования данных: %w", err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("ошибка fsync: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	return os.Remove(src)
}
