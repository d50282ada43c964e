package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/vidshare/internal/api/openapi"
	"github.com/bigkaa/vidshare/internal/domain/model"
	"github.com/bigkaa/vidshare/internal/probe"
	"github.com/bigkaa/vidshare/internal/service"
	"github.com/bigkaa/vidshare/internal/storage/catalog"
	"github.com/bigkaa/vidshare/internal/storage/filestore"
)

// testLogger возвращает логгер для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// fakeProber — ffprobe с фиксированным результатом.
type fakeProber struct {
	result    probe.Result
	available error
}

func (f *fakeProber) Probe(_ context.Context, _ string) probe.Result {
	return f.result
}

func (f *fakeProber) Available() error {
	return f.available
}

// testEnv — полностью собранный API поверх временной директории.
type testEnv struct {
	router  chi.Router
	store   *filestore.FileStore
	catalog *catalog.Catalog
	prober  *fakeProber
}

// noMetadata имитирует файл, метаданные которого извлечь не удалось.
func (e *testEnv) noMetadata() {
	e.prober.result = probe.Fallback
}

// setupTestEnv собирает сервисы и маршруты так же, как main.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := testLogger()
	root := t.TempDir()
	store, err := filestore.New(filepath.Join(root, "uploads"), filepath.Join(root, "uploads", ".tmp"), logger)
	if err != nil {
		t.Fatalf("Ошибка создания FileStore: %v", err)
	}
	cat := catalog.New(30*24*time.Hour, store, logger)
	prober := &fakeProber{result: probe.Result{Duration: 42, Resolution: "1920x1080"}}

	doc, err := openapi.Load()
	if err != nil {
		t.Fatalf("Ошибка загрузки OpenAPI: %v", err)
	}
	updateSchema, err := openapi.NewSchemaValidator(doc, "VideoUpdate")
	if err != nil {
		t.Fatalf("Ошибка создания валидатора: %v", err)
	}

	embedSvc := service.NewEmbedService(16, time.Minute, logger)
	uploadSvc := service.NewUploadService(store, cat, prober, logger)
	videoSvc := service.NewVideoService(cat, embedSvc, logger)
	mediaSvc := service.NewMediaService(store, cat, logger)

	api := NewAPIHandler(
		NewVideosHandler(uploadSvc, videoSvc, updateSchema, logger),
		NewEmbedHandler(videoSvc, embedSvc, logger),
		NewMediaHandler(mediaSvc),
		NewSystemHandler(cat, nil, logger),
		NewHealthHandler(store.UploadDir(), store.TempDir(), prober),
	)

	router := chi.NewRouter()
	api.Register(router)

	return &testEnv{router: router, store: store, catalog: cat, prober: prober}
}

// do выполняет запрос через роутер.
func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// addVideo создаёт файл и запись каталога в обход загрузки.
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

// uploadPart — часть multipart-запроса загрузки.
type uploadPart struct {
	name        string
	filename    string
	contentType string
	data        string
}

// newUploadRequest формирует POST /api/videos/upload с частями в заданном порядке.
func newUploadRequest(t *testing.T, parts ...uploadPart) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, p := range parts {
		header := make(textproto.MIMEHeader)
		disposition := `form-data; name="` + p.name + `"`
		if p.filename != "" {
			disposition += `; filename="` + p.filename + `"`
		}
		header.Set("Content-Disposition", disposition)
		if p.contentType != "" {
			header.Set("Content-Type", p.contentType)
		}
		w, err := mw.CreatePart(header)
		if err != nil {
			t.Fatalf("Ошибка создания части: %v", err)
		}
		if _, err := w.Write([]byte(p.data)); err != nil {
			t.Fatalf("Ошибка записи части: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("Ошибка закрытия multipart: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/videos/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// decodeVideo разбирает JSON-ответ с записью видео.
func decodeVideo(t *testing.T, rec *httptest.ResponseRecorder) videoResponse {
	t.Helper()
	var v videoResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("Ошибка разбора ответа %q: %v", rec.Body.String(), err)
	}
	return v
}

// errorResponse — тело ошибки API.
type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"details"`
	} `json:"error"`
}

// decodeError разбирает JSON-ответ с ошибкой.
func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var e errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil {
		t.Fatalf("Ошибка разбора ответа %q: %v", rec.Body.String(), err)
	}
	return e
}

// tempFiles возвращает количество файлов во временной директории.
func tempFiles(t *testing.T, store *filestore.FileStore) int {
	t.Helper()
	entries, err := os.ReadDir(store.TempDir())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Ошибка чтения временной директории: %v", err)
	}
	return len(entries)
}
