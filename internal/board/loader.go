package board

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"led-service/internal/model"
)

// LoadDir registers every *.json board definition found in dir.
// Files that fail to parse are logged and skipped.
func LoadDir(registry *Registry, dir string, logger *zap.Logger) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read boards directory %s: %w", dir, err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		b, err := LoadFile(path)
		if err != nil {
			logger.Warn("Skipping board definition", zap.String("file", path), zap.Error(err))
			continue
		}

		if err := registry.Register(b); err != nil {
			logger.Warn("Skipping board definition", zap.String("file", path), zap.Error(err))
			continue
		}
		loaded++
	}

	logger.Info("Board definitions loaded",
		zap.String("dir", dir),
		zap.Int("count", loaded),
	)
	return loaded, nil
}

// LoadFile reads one JSON board definition
func LoadFile(path string) (*model.Board, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetDefault("serial.baud_rate", 9600)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read board file: %w", err)
	}

	var b model.Board
	if err := v.Unmarshal(&b); err != nil {
		return nil, fmt.Errorf("failed to decode board file: %w", err)
	}

	if b.ID == "" {
		b.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	b.Led.Type = model.LedType(strings.ToLower(string(b.Led.Type)))

	return &b, nil
}
