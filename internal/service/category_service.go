package service

import (
	"context"

	"inkwell/internal/cache"
	"inkwell/internal/models"
	"inkwell/internal/repository"
)

type CategoryService struct {
	categories repository.CategoryRepository
	cache      *cache.Store
}

func NewCategoryService(categories repository.CategoryRepository, store *cache.Store) *CategoryService {
	if store == nil {
		store = cache.NewStore(nil)
	}
	return &CategoryService{categories: categories, cache: store}
}

// List returns all categories with visible post counts, cache-aside.
func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := s.cache.Aside(ctx, "categories", cache.CategoriesKey, &categories, cache.CategoriesTTL, func() error {
		found, err := s.categories.List(ctx)
		if err != nil {
			return err
		}
		categories = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return categories, nil
}
