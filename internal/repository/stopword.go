package repository

import (
	"context"
	"strings"

	"inkwell/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StopWordRepository stores the tokens search ignores.
type StopWordRepository interface {
	All(ctx context.Context) ([]string, error)
	Add(ctx context.Context, words ...string) error
}

type stopWordRepository struct {
	db *gorm.DB
}

// NewStopWordRepository creates a new StopWordRepository
func NewStopWordRepository(db *gorm.DB) StopWordRepository {
	return &stopWordRepository{db: db}
}

func (r *stopWordRepository) All(ctx context.Context) ([]string, error) {
	words := []string{}
	if err := r.db.WithContext(ctx).Model(&models.StopWord{}).Order("word").Pluck("word", &words).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return words, nil
}

// Add stores words lower-cased; existing words are skipped.
func (r *stopWordRepository) Add(ctx context.Context, words ...string) error {
	rows := make([]models.StopWord, 0, len(words))
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		rows = append(rows, models.StopWord{Word: w})
	}
	if len(rows) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
