package image

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
)

var savedExts = []string{".png", ".jpg", ".jpeg", ".gif", ".webp"}

// Cleaner удаляет старые сохранённые картинки по TTL в заданной директории.
type Cleaner struct {
	logger *zap.SugaredLogger
	dir    string
	ttl    time.Duration
}

func NewCleaner(dir string, ttl time.Duration, logger *zap.SugaredLogger) *Cleaner {
	return &Cleaner{logger: logger, dir: dir, ttl: ttl}
}

// Clean удаляет файлы картинок старше ttl; возвращает число удалённых.
func (c *Cleaner) Clean() int {
	if c.ttl <= 0 || c.dir == "" {
		return 0
	}

	deadline := time.Now().Add(-c.ttl)

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0
		}
		c.logger.Warnw("Failed to read images dir for cleanup", "dir", c.dir, "error", err)
		return 0
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		lower := strings.ToLower(name)
		if slices.IndexFunc(savedExts, func(ext string) bool { return strings.HasSuffix(lower, ext) }) == -1 {
			continue
		}
		fi, statErr := e.Info()
		if statErr != nil {
			c.logger.Warnw("Failed to stat file during cleanup", "name", name, "error", statErr)
			continue
		}
		if fi.ModTime().Before(deadline) {
			full := filepath.Join(c.dir, name)
			if err := os.Remove(full); err != nil {
				c.logger.Warnw("Failed to remove old image", "path", full, "error", err)
				continue
			}
			removed++
		}
	}
	if removed > 0 {
		c.logger.Debugw("Old images removed", "dir", c.dir, "removed", removed, "before", deadline.Format(time.RFC3339))
	}
	return removed
}

// Job — задача для планировщика.
func (c *Cleaner) Job(ctx context.Context) error {
	if err := context.Cause(ctx); err != nil {
		return err
	}
	c.Clean()
	return nil
}
