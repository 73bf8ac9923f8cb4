package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Products []Draft `yaml:"products"`
}

func LoadSeed(path string) ([]Draft, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}
	return f.Products, nil
}

// Seed creates each draft in order. Drafts whose code is already present are
// skipped, which makes seeding safe to repeat on every start.
func Seed(ctx context.Context, m *Manager, drafts []Draft, log *zap.Logger) (int, error) {
	created := 0
	for _, d := range drafts {
		_, err := m.Create(ctx, d)
		if errors.Is(err, ErrDuplicateCode) {
			log.Info("seed product already present", zap.String("code", d.Code))
			continue
		}
		if err != nil {
			return created, fmt.Errorf("seed %q: %w", d.Code, err)
		}
		created++
	}
	return created, nil
}
