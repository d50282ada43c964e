package probe

import (
	"context"
	"os/exec"
)

// Runner запускает внешнюю команду и возвращает её stdout.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// CommandRunner — Runner поверх os/exec.
type CommandRunner struct{}

// NewCommandRunner создаёт Runner для запуска реальных процессов.
func NewCommandRunner() *CommandRunner {
	return &CommandRunner{}
}

// Run выполняет команду. Процесс завершается при отмене ctx.
func (r *CommandRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}
