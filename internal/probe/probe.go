// Пакет probe — извлечение метаданных видео через ffprobe.
//
// Probe никогда не возвращает ошибку: при любом сбое (нет бинарника,
// таймаут, нечитаемый файл, некорректный вывод) возвращается
// Result{Duration: 0, Resolution: "unknown"}.
package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os/exec"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/vidshare/internal/domain/model"
)

// probeTotal — результаты извлечения метаданных.
var probeTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "vs_probe_total",
		Help: "Общее количество запусков ffprobe по результату",
	},
	[]string{"result"},
)

// Result — метаданные видео.
type Result struct {
	// Duration — длительность в целых секундах (округление вниз)
	Duration int
	// Resolution — "{width}x{height}" первого видеопотока или "unknown"
	Resolution string
}

// Fallback — результат при невозможности определить метаданные.
var Fallback = Result{Duration: 0, Resolution: model.UnknownResolution}

// ffprobeOutput — интересующая часть JSON-вывода ffprobe.
type ffprobeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width,omitempty"`
		Height    int    `json:"height,omitempty"`
		Duration  string `json:"duration,omitempty"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Prober — запуск ffprobe с таймаутом и повторами.
type Prober struct {
	path    string
	timeout time.Duration
	retries uint64
	runner  Runner
	logger  *slog.Logger
}

// New создаёт Prober.
// path — путь к бинарнику ffprobe, timeout — лимит одной попытки,
// retries — количество повторов после первой неудачной попытки.
func New(path string, timeout time.Duration, retries int, runner Runner, logger *slog.Logger) *Prober {
	if retries < 0 {
		retries = 0
	}
	return &Prober{
		path:    path,
		timeout: timeout,
		retries: uint64(retries),
		runner:  runner,
		logger:  logger.With(slog.String("component", "probe")),
	}
}

// Probe извлекает длительность и разрешение файла по пути videoPath.
func (p *Prober) Probe(ctx context.Context, videoPath string) Result {
	var result Result

	op := func() error {
		r, err := p.probeOnce(ctx, videoPath)
		if err != nil {
			return err
		}
		result = r
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.Reset()
	policy := backoff.WithContext(backoff.WithMaxRetries(b, p.retries), ctx)

	notify := func(err error, wait time.Duration) {
		p.logger.Warn("ffprobe: повтор после ошибки",
			slog.String("path", videoPath),
			slog.Duration("wait", wait),
			slog.String("error", err.Error()),
		)
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		p.logger.Warn("Не удалось извлечь метаданные видео",
			slog.String("path", videoPath),
			slog.String("error", err.Error()),
		)
		probeTotal.WithLabelValues("fallback").Inc()
		return Fallback
	}

	probeTotal.WithLabelValues("success").Inc()
	return result
}

// Available проверяет, что бинарник ffprobe найден.
func (p *Prober) Available() error {
	if _, err := exec.LookPath(p.path); err != nil {
		return fmt.Errorf("ffprobe недоступен (%s): %w", p.path, err)
	}
	return nil
}

// probeOnce выполняет одну попытку. Детерминированные ошибки
// (нет бинарника, ненулевой код выхода, некорректный вывод) возвращаются
// как backoff.Permanent; таймаут попытки допускает повтор.
func (p *Prober) probeOnce(ctx context.Context, videoPath string) (Result, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		videoPath,
	}

	output, err := p.runner.Run(attemptCtx, p.path, args...)
	if err != nil {
		if attemptCtx.Err() != nil && ctx.Err() == nil {
			return Result{}, fmt.Errorf("таймаут ffprobe (%s): %w", p.timeout, err)
		}
		var exitErr *exec.ExitError
		if errors.Is(err, exec.ErrNotFound) || errors.As(err, &exitErr) {
			return Result{}, backoff.Permanent(fmt.Errorf("ошибка ffprobe: %w", err))
		}
		return Result{}, fmt.Errorf("ошибка запуска ffprobe: %w", err)
	}

	result, err := parseOutput(output)
	if err != nil {
		return Result{}, backoff.Permanent(err)
	}
	return result, nil
}

// parseOutput разбирает JSON-вывод ffprobe.
// Длительность берётся из format.duration, при её отсутствии из первого видеопотока.
func parseOutput(output []byte) (Result, error) {
	var data ffprobeOutput
	if err := json.Unmarshal(output, &data); err != nil {
		return Result{}, fmt.Errorf("ошибка разбора вывода ffprobe: %w", err)
	}

	result := Fallback
	duration := parseSeconds(data.Format.Duration)

	for _, stream := range data.Streams {
		if stream.CodecType != "video" {
			continue
		}
		if stream.Width > 0 && stream.Height > 0 {
			result.Resolution = fmt.Sprintf("%dx%d", stream.Width, stream.Height)
		}
		if duration == 0 {
			duration = parseSeconds(stream.Duration)
		}
		break
	}

	result.Duration = duration
	return result, nil
}

// parseSeconds преобразует строку секунд в целое число с округлением вниз.
func parseSeconds(s string) int {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return int(math.Floor(f))
}
