package openapi

import (
	"encoding/json"
	"testing"
)

func mustValidator(t *testing.T, name string) *SchemaValidator {
	t.Helper()
	doc, err := Load()
	if err != nil {
		t.Fatalf("ошибка загрузки контракта: %v", err)
	}
	v, err := NewSchemaValidator(doc, name)
	if err != nil {
		t.Fatalf("ошибка создания валидатора: %v", err)
	}
	return v
}

func decode(t *testing.T, body string) any {
	t.Helper()
	var value any
	if err := json.Unmarshal([]byte(body), &value); err != nil {
		t.Fatalf("ошибка разбора JSON: %v", err)
	}
	return value
}

func TestLoad(t *testing.T) {
	doc, err := Load()
	if err != nil {
		t.Fatalf("ошибка загрузки контракта: %v", err)
	}
	for _, path := range []string{"/api/videos", "/api/videos/upload", "/api/videos/{videoId}", "/embed/{videoId}"} {
		if doc.Paths.Find(path) == nil {
			t.Errorf("путь %s отсутствует в контракте", path)
		}
	}
	if len(Spec()) == 0 {
		t.Error("исходный YAML не должен быть пустым")
	}
}

func TestNewSchemaValidator_Unknown(t *testing.T) {
	doc, err := Load()
	if err != nil {
		t.Fatalf("ошибка загрузки контракта: %v", err)
	}
	if _, err := NewSchemaValidator(doc, "Missing"); err == nil {
		t.Error("ожидалась ошибка для отсутствующей схемы")
	}
}

func TestVideoUpdateSchema(t *testing.T) {
	v := mustValidator(t, "VideoUpdate")

	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{"только название", `{"title":"New"}`, ""},
		{"только доступ", `{"privacy":"unlisted"}`, ""},
		{"оба поля", `{"title":"","privacy":"private"}`, ""},
		{"пустой объект", `{}`, ""},
		{"неизвестные поля допускаются", `{"title":"x","views":100}`, ""},
		{"недопустимый доступ", `{"privacy":"secret"}`, "/privacy"},
		{"название не строка", `{"title":42}`, "/title"},
		{"массив вместо объекта", `[1,2]`, "/"},
		{"null", `null`, "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := v.Validate(decode(t, tt.body))
			if tt.wantField == "" {
				if errs != nil {
					t.Errorf("неожиданные ошибки: %+v", errs)
				}
				return
			}
			if len(errs) == 0 {
				t.Fatalf("ожидалась ошибка для поля %s", tt.wantField)
			}
			found := false
			for _, e := range errs {
				if e.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("ожидалась ошибка для поля %s, получено %+v", tt.wantField, errs)
			}
		})
	}
}
