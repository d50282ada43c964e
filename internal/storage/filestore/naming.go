package filestore

import (
	"path/filepath"
	"strings"
	"unicode"
)

// maxTitleStem — максимальная длина части имени файла, полученной из названия.
const maxTitleStem = 100

// SanitizeTitle приводит название к безопасному виду для имени файла:
// удаляет всё, кроме ASCII-букв, цифр, '_', '-' и пробельных символов,
// затем заменяет последовательности пробельных символов на '_'.
// Может вернуть пустую строку.
func SanitizeTitle(title string) string {
	var result strings.Builder
	inSpace := false
	for _, r := range title {
		switch {
		case unicode.IsSpace(r):
			if !inSpace {
				result.WriteByte('_')
				inSpace = true
			}
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_':
			result.WriteRune(r)
			inSpace = false
		}
	}

	s := result.String()
	if len(s) > maxTitleStem {
		s = s[:maxTitleStem]
	}
	return s
}

// StorageName формирует имя файла в хранилище.
// Формат: {sanitizedTitle}_{videoID}{ext}, или {videoID}{ext}
// если от названия ничего не осталось. Публичный идентификатор
// делает имя уникальным при совпадающих названиях.
func StorageName(title, videoID, ext string) string {
	stem := SanitizeTitle(title)
	if stem == "" {
		return videoID + ext
	}
	return stem + "_" + videoID + ext
}

// Extension возвращает расширение имени файла в нижнем регистре с точкой.
// Расширение с символами вне [a-z0-9] отбрасывается.
func Extension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if len(ext) < 2 || len(ext) > 16 {
		return ""
	}
	for _, r := range ext[1:] {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')) {
			return ""
		}
	}
	return ext
}

// Format возвращает расширение без точки ("mp4") для поля format записи.
func Format(filename string) string {
	return strings.TrimPrefix(Extension(filename), ".")
}

// TitleFromFilename возвращает имя файла без расширения,
// используется как название по умолчанию.
func TitleFromFilename(filename string) string {
	base := filepath.Base(filename)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
