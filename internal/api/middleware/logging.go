// logging.go — middleware журнала HTTP-запросов через slog.
// В журнал попадает шаблон маршрута chi, а не сырой путь: имена файлов
// в /uploads и идентификаторы видео не раздувают кардинальность полей.
package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// bodyCounter считает байты, фактически прочитанные обработчиком из тела запроса.
type bodyCounter struct {
	io.ReadCloser
	n int64
}

func (b *bodyCounter) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	b.n += int64(n)
	return n, err
}

// routeLabel возвращает шаблон маршрута, по которому прошёл запрос.
// Для запросов, не совпавших ни с одним маршрутом, возвращается путь.
func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

// RequestLogger возвращает middleware, логирующий каждый HTTP-запрос.
// Уровень: INFO (1xx-3xx), WARN (4xx), ERROR (5xx).
// bytes_in — прочитано из тела (для загрузок это размер принятого multipart),
// content_length — заявленный клиентом размер (-1, если неизвестен).
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			var body *bodyCounter
			if r.Body != nil && r.Body != http.NoBody {
				body = &bodyCounter{ReadCloser: r.Body}
				r.Body = body
			}

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			level := slog.LevelInfo
			switch {
			case status >= 500:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelWarn
			}

			var bytesIn int64
			if body != nil {
				bytesIn = body.n
			}

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("route", routeLabel(r)),
				slog.Int("status", status),
				slog.Duration("duration", time.Since(start)),
				slog.Int64("content_length", r.ContentLength),
				slog.Int64("bytes_in", bytesIn),
				slog.Int("bytes_out", ww.BytesWritten()),
				slog.String("remote_addr", r.RemoteAddr),
			}
			if videoID := chi.URLParam(r, "videoId"); videoID != "" {
				attrs = append(attrs, slog.String("video_id", videoID))
			}

			logger.LogAttrs(r.Context(), level, "HTTP запрос", attrs...)
		})
	}
}
