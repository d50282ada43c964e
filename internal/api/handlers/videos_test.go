package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bigkaa/vidshare/internal/domain/model"
)

func TestUploadVideo_Created(t *testing.T) {
	env := setupTestEnv(t)

	rec := env.do(newUploadRequest(t,
		uploadPart{name: "video", filename: "holiday.MP4", contentType: "video/mp4", data: "fake-video-bytes"},
		uploadPart{name: "title", data: "  My Clip!  "},
	))
	if rec.Code != http.StatusCreated {
		t.Fatalf("Ожидался статус 201, получен %d: %s", rec.Code, rec.Body.String())
	}

	v := decodeVideo(t, rec)
	if v.Title != "My Clip!" {
		t.Errorf("title: получено %q", v.Title)
	}
	if v.Filename != "holiday.MP4" {
		t.Errorf("filename: получено %q", v.Filename)
	}
	wantPath := "/uploads/My_Clip_" + v.VideoID + ".mp4"
	if v.FilePath != wantPath {
		t.Errorf("filePath: ожидалось %q, получено %q", wantPath, v.FilePath)
	}
	if v.FileSize != int64(len("fake-video-bytes")) {
		t.Errorf("fileSize: получено %d", v.FileSize)
	}
	if v.Duration != 42 || v.Resolution != "1920x1080" {
		t.Errorf("метаданные: получено %d / %q", v.Duration, v.Resolution)
	}
	if v.Format != "mp4" || v.Status != "ready" || v.Privacy != "public" || v.Views != 0 {
		t.Errorf("поля записи: %+v", v)
	}
	if v.ID == 0 || v.VideoID == "" {
		t.Errorf("идентификаторы не назначены: %+v", v)
	}
	if !v.ExpiresAt.After(v.CreatedAt) {
		t.Errorf("expiresAt должен быть позже createdAt")
	}

	data, err := os.ReadFile(filepath.Join(env.store.UploadDir(), strings.TrimPrefix(v.FilePath, "/uploads/")))
	if err != nil {
		t.Fatalf("файл не сохранён: %v", err)
	}
	if string(data) != "fake-video-bytes" {
		t.Errorf("содержимое файла: %q", data)
	}
	if n := tempFiles(t, env.store); n != 0 {
		t.Errorf("во временной директории осталось %d файлов", n)
	}
}

func TestUploadVideo_TitleBeforeFile(t *testing.T) {
	env := setupTestEnv(t)

	rec := env.do(newUploadRequest(t,
		uploadPart{name: "title", data: "First"},
		uploadPart{name: "video", filename: "a.webm", contentType: "video/webm; codecs=vp9", data: "x"},
	))
	if rec.Code != http.StatusCreated {
		t.Fatalf("Ожидался статус 201, получен %d: %s", rec.Code, rec.Body.String())
	}
	if v := decodeVideo(t, rec); v.Title != "First" || v.Format != "webm" {
		t.Errorf("получено %q / %q", v.Title, v.Format)
	}
}

func TestUploadVideo_DefaultTitle(t *testing.T) {
	env := setupTestEnv(t)

	rec := env.do(newUploadRequest(t,
		uploadPart{name: "video", filename: "Summer Trip.mov", contentType: "video/quicktime", data: "x"},
	))
	if rec.Code != http.StatusCreated {
		t.Fatalf("Ожидался статус 201, получен %d", rec.Code)
	}
	if v := decodeVideo(t, rec); v.Title != "Summer Trip" {
		t.Errorf("название по умолчанию: получено %q", v.Title)
	}
}

func TestUploadVideo_EmptyFileWithoutTitle(t *testing.T) {
	env := setupTestEnv(t)
	env.noMetadata()

	rec := env.do(newUploadRequest(t,
		uploadPart{name: "video", filename: "clip.mp4", contentType: "video/mp4", data: ""},
	))
	if rec.Code != http.StatusCreated {
		t.Fatalf("Ожидался статус 201, получен %d: %s", rec.Code, rec.Body.String())
	}

	v := decodeVideo(t, rec)
	if v.Title != "clip" {
		t.Errorf("title: ожидалось %q, получено %q", "clip", v.Title)
	}
	if v.Format != "mp4" {
		t.Errorf("format: ожидалось mp4, получено %q", v.Format)
	}
	if v.Duration != 0 {
		t.Errorf("duration: ожидалось 0, получено %d", v.Duration)
	}
	if v.Resolution != "unknown" {
		t.Errorf("resolution: ожидалось unknown, получено %q", v.Resolution)
	}
	if v.Status != "ready" {
		t.Errorf("status: ожидалось ready, получено %q", v.Status)
	}
	if v.FileSize != 0 {
		t.Errorf("fileSize: ожидалось 0, получено %d", v.FileSize)
	}

	info, err := os.Stat(filepath.Join(env.store.UploadDir(), strings.TrimPrefix(v.FilePath, "/uploads/")))
	if err != nil {
		t.Fatalf("пустой файл не сохранён: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("размер файла на диске: %d", info.Size())
	}
}

func TestUploadVideo_Rejected(t *testing.T) {
	tests := []struct {
		name  string
		parts []uploadPart
	}{
		{"не видео", []uploadPart{{name: "video", filename: "notes.txt", contentType: "text/plain", data: "hello"}}},
		{"без Content-Type", []uploadPart{{name: "video", filename: "clip.mp4", data: "hello"}}},
		{"нет файла", []uploadPart{{name: "title", data: "Only title"}}},
		{"поле без имени файла", []uploadPart{{name: "video", contentType: "video/mp4", data: "x"}}},
		{"два файла", []uploadPart{
			{name: "video", filename: "a.mp4", contentType: "video/mp4", data: "a"},
			{name: "video", filename: "b.mp4", contentType: "video/mp4", data: "b"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnv(t)

			rec := env.do(newUploadRequest(t, tt.parts...))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("Ожидался статус 400, получен %d: %s", rec.Code, rec.Body.String())
			}
			if e := decodeError(t, rec); e.Error.Code != "VALIDATION_ERROR" {
				t.Errorf("код ошибки: %q", e.Error.Code)
			}
			if env.catalog.Count() != 0 {
				t.Errorf("запись не должна создаваться")
			}
			if n := tempFiles(t, env.store); n != 0 {
				t.Errorf("во временной директории осталось %d файлов", n)
			}
		})
	}
}

func TestUploadVideo_NotMultipart(t *testing.T) {
	env := setupTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/videos/upload", strings.NewReader(`{"title":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := env.do(req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Ожидался статус 400, получен %d", rec.Code)
	}
}

func TestListVideos(t *testing.T) {
	env := setupTestEnv(t)
	env.addVideo(t, "pub-1", model.PrivacyPublic)
	env.addVideo(t, "hidden", model.PrivacyUnlisted)
	env.addVideo(t, "pub-2", model.PrivacyPublic)
	env.addVideo(t, "secret", model.PrivacyPrivate)
	env.addVideo(t, "pub-3", model.PrivacyPublic)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"по умолчанию", "", []string{"pub-3", "pub-2", "pub-1"}},
		{"limit и offset", "?limit=1&offset=1", []string{"pub-2"}},
		{"нечисловые значения", "?limit=abc&offset=xyz", []string{"pub-3", "pub-2", "pub-1"}},
		{"отрицательные значения", "?limit=-5&offset=-1", []string{"pub-3", "pub-2", "pub-1"}},
		{"за концом списка", "?offset=100", []string{}},
		{"максимальный limit", "?limit=9223372036854775807&offset=1", []string{"pub-2", "pub-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(httptest.NewRequest(http.MethodGet, "/api/videos"+tt.query, nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("Ожидался статус 200, получен %d", rec.Code)
			}

			var items []videoResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
				t.Fatalf("Ошибка разбора ответа %q: %v", rec.Body.String(), err)
			}
			if items == nil {
				t.Fatalf("ожидался JSON-массив, получено %q", rec.Body.String())
			}
			if len(items) != len(tt.want) {
				t.Fatalf("ожидалось %d видео, получено %d", len(tt.want), len(items))
			}
			for i, id := range tt.want {
				if items[i].VideoID != id {
					t.Errorf("позиция %d: ожидалось %s, получено %s", i, id, items[i].VideoID)
				}
			}
		})
	}
}

func TestGetVideo(t *testing.T) {
	env := setupTestEnv(t)
	env.addVideo(t, "pub", model.PrivacyPublic)
	env.addVideo(t, "unl", model.PrivacyUnlisted)
	env.addVideo(t, "prv", model.PrivacyPrivate)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/videos/pub", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Ожидался статус 200, получен %d", rec.Code)
	}
	if v := decodeVideo(t, rec); v.Views != 1 || v.FilePath != "/uploads/pub.mp4" {
		t.Errorf("получено views=%d filePath=%q", v.Views, v.FilePath)
	}

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/videos/unl", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("unlisted: ожидался статус 200, получен %d", rec.Code)
	}

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/videos/prv", nil))
	if rec.Code != http.StatusForbidden {
		t.Errorf("private: ожидался статус 403, получен %d", rec.Code)
	}
	if e := decodeError(t, rec); e.Error.Code != "FORBIDDEN" {
		t.Errorf("код ошибки: %q", e.Error.Code)
	}

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/videos/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Ожидался статус 404, получен %d", rec.Code)
	}
	if e := decodeError(t, rec); e.Error.Code != "NOT_FOUND" {
		t.Errorf("код ошибки: %q", e.Error.Code)
	}
}

func TestUpdateVideo(t *testing.T) {
	env := setupTestEnv(t)
	env.addVideo(t, "vid", model.PrivacyPublic)

	put := func(videoID, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, "/api/videos/"+videoID, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return env.do(req)
	}

	rec := put("vid", `{"title":"Renamed","views":999}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Ожидался статус 200, получен %d: %s", rec.Code, rec.Body.String())
	}
	v := decodeVideo(t, rec)
	if v.Title != "Renamed" || v.Privacy != "public" || v.Views != 0 {
		t.Errorf("получено %+v", v)
	}
	if v.FilePath != "/uploads/vid.mp4" {
		t.Errorf("файл не должен переименовываться: %q", v.FilePath)
	}

	rec = put("vid", `{"privacy":"private"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Ожидался статус 200, получен %d", rec.Code)
	}
	if v := decodeVideo(t, rec); v.Privacy != "private" || v.Title != "Renamed" {
		t.Errorf("получено %+v", v)
	}

	rec = put("vid", `{"privacy":"secret"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Ожидался статус 400, получен %d", rec.Code)
	}
	e := decodeError(t, rec)
	if e.Error.Code != "VALIDATION_ERROR" || len(e.Error.Details) == 0 || e.Error.Details[0].Field != "/privacy" {
		t.Errorf("ошибка валидации: %+v", e)
	}

	for _, body := range []string{`{"title":42}`, `[]`, `not json`, ``} {
		if rec := put("vid", body); rec.Code != http.StatusBadRequest {
			t.Errorf("тело %q: ожидался статус 400, получен %d", body, rec.Code)
		}
	}

	if got := env.catalog.GetByVideoID("vid"); got.Privacy != model.PrivacyPrivate || got.Title != "Renamed" {
		t.Errorf("некорректные запросы не должны менять запись: %+v", got)
	}

	// Отсутствующее видео проверяется до тела запроса
	if rec := put("missing", `{"privacy":"secret"}`); rec.Code != http.StatusNotFound {
		t.Errorf("Ожидался статус 404, получен %d", rec.Code)
	}
}

func TestDeleteVideo(t *testing.T) {
	env := setupTestEnv(t)
	env.addVideo(t, "vid", model.PrivacyPrivate)

	rec := env.do(httptest.NewRequest(http.MethodDelete, "/api/videos/vid", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("Ожидался статус 204, получен %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("тело ответа 204 должно быть пустым: %q", rec.Body.String())
	}
	if env.store.Exists("vid.mp4") {
		t.Error("файл должен быть удалён")
	}

	rec = env.do(httptest.NewRequest(http.MethodDelete, "/api/videos/vid", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("повторное удаление: ожидался статус 404, получен %d", rec.Code)
	}
}

func TestUploadThenList(t *testing.T) {
	env := setupTestEnv(t)

	for _, title := range []string{"Same", "Same"} {
		rec := env.do(newUploadRequest(t,
			uploadPart{name: "title", data: title},
			uploadPart{name: "video", filename: "clip.mp4", contentType: "video/mp4", data: "x"},
		))
		if rec.Code != http.StatusCreated {
			t.Fatalf("Ожидался статус 201, получен %d", rec.Code)
		}
	}

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/videos", nil))
	var items []videoResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("Ошибка разбора ответа: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("ожидалось 2 видео, получено %d", len(items))
	}
	if items[0].FilePath == items[1].FilePath {
		t.Errorf("одинаковые названия не должны давать один файл: %s", items[0].FilePath)
	}
}
