// disk_usage.go — ёмкость файловой системы директории загрузок для /api/info.
// Платформозависимый код для Unix-подобных систем.
package main

import (
	"fmt"
	"syscall"

	"github.com/bigkaa/vidshare/internal/api/handlers"
)

// diskUsageFn возвращает функцию получения ёмкости диска для директории.
func diskUsageFn(dir string) handlers.DiskUsageFunc {
	return func() (int64, int64, int64, error) {
		return getDiskUsage(dir)
	}
}

// getDiskUsage возвращает total, used, available в байтах.
// available учитывает только блоки, доступные непривилегированному процессу.
func getDiskUsage(path string) (total, used, available int64, err error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0, 0, 0, fmt.Errorf("ошибка statfs %s: %w", path, err)
	}

	blockSize := int64(stat.Bsize)
	total = int64(stat.Blocks) * blockSize
	available = int64(stat.Bavail) * blockSize
	used = total - int64(stat.Bfree)*blockSize

	return total, used, available, nil
}
