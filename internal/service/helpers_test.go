package service

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bigkaa/vidshare/internal/domain/model"
	"github.com/bigkaa/vidshare/internal/probe"
	"github.com/bigkaa/vidshare/internal/storage/catalog"
	"github.com/bigkaa/vidshare/internal/storage/filestore"
)

// testLogger возвращает логгер для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// fakeProber возвращает фиксированный результат и запоминает пути.
type fakeProber struct {
	result probe.Result
	paths  []string
}

func (f *fakeProber) Probe(_ context.Context, videoPath string) probe.Result {
	f.paths = append(f.paths, videoPath)
	return f.result
}

// recordingInvalidator запоминает сброшенные videoId.
type recordingInvalidator struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordingInvalidator) Invalidate(videoID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, videoID)
}

func (r *recordingInvalidator) has(videoID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.ids {
		if id == videoID {
			return true
		}
	}
	return false
}

// testEnv — хранилище и каталог во временной директории теста.
type testEnv struct {
	store   *filestore.FileStore
	catalog *catalog.Catalog
}

// setupTestEnv создаёт тестовое окружение сервисов.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	root := t.TempDir()
	store, err := filestore.New(filepath.Join(root, "uploads"), filepath.Join(root, "uploads", ".tmp"), testLogger())
	if err != nil {
		t.Fatalf("Ошибка создания FileStore: %v", err)
	}

	return &testEnv{
		store:   store,
		catalog: catalog.New(30*24*time.Hour, store, testLogger()),
	}
}

// addVideo создаёт файл на диске и запись каталога.
func (e *testEnv) addVideo(t *testing.T, videoID string, privacy model.Privacy) *model.Video {
	t.Helper()

	name := videoID + ".mp4"
	if err := os.WriteFile(filepath.Join(e.store.UploadDir(), name), []byte("0123456789"), 0o640); err != nil {
		t.Fatalf("Ошибка создания тестового файла: %v", err)
	}

	v, err := e.catalog.Create(&model.Video{
		VideoID:          videoID,
		Title:            "Clip " + videoID,
		OriginalFilename: name,
		StoragePath:      name,
		FileSize:         10,
		Format:           "mp4",
		Resolution:       model.UnknownResolution,
		Status:           model.StatusReady,
		Privacy:          privacy,
	})
	if err != nil {
		t.Fatalf("Ошибка создания записи: %v", err)
	}
	return v
}
