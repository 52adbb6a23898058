package seed

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/validation"

	"gopkg.in/yaml.v3"
)

//go:embed reference.yml
var builtinReference []byte

// CategoryDef is one category entry of the reference file.
type CategoryDef struct {
	Name        string `yaml:"name"`
	Slug        string `yaml:"slug"`
	Icon        string `yaml:"icon"`
	Description string `yaml:"description"`
}

// Reference is the permanent data every installation starts with.
type Reference struct {
	Categories []CategoryDef `yaml:"categories"`
	StopWords  []string      `yaml:"stop_words"`
}

// BuiltinReference parses the reference data compiled into the binary.
func BuiltinReference() (*Reference, error) {
	return ParseReference(builtinReference)
}

// ParseReference decodes and validates a reference document.
func ParseReference(data []byte) (*Reference, error) {
	var ref Reference
	if err := yaml.Unmarshal(data, &ref); err != nil {
		return nil, fmt.Errorf("decode reference data: %w", err)
	}

	seen := make(map[string]struct{}, len(ref.Categories))
	for i := range ref.Categories {
		c := &ref.Categories[i]
		c.Name = strings.TrimSpace(c.Name)
		c.Slug = strings.TrimSpace(c.Slug)
		if c.Name == "" {
			return nil, fmt.Errorf("category %d: name is required", i)
		}
		if err := validation.ValidateCategorySlug(c.Slug); err != nil {
			return nil, fmt.Errorf("category %q: %w", c.Slug, err)
		}
		if _, dup := seen[c.Slug]; dup {
			return nil, fmt.Errorf("category %q: duplicate slug", c.Slug)
		}
		seen[c.Slug] = struct{}{}
	}
	return &ref, nil
}

// ApplyReference upserts the categories by slug and adds the stop words.
// Running it twice leaves the same rows.
func ApplyReference(ctx context.Context, categories repository.CategoryRepository, stopWords repository.StopWordRepository, ref *Reference) error {
	rows := make([]models.Category, 0, len(ref.Categories))
	for _, c := range ref.Categories {
		rows = append(rows, models.Category{
			Name:        c.Name,
			Slug:        c.Slug,
			Icon:        c.Icon,
			Description: c.Description,
		})
	}
	if len(rows) > 0 {
		if err := categories.Upsert(ctx, rows); err != nil {
			return fmt.Errorf("seed categories: %w", err)
		}
	}
	if err := stopWords.Add(ctx, ref.StopWords...); err != nil {
		return fmt.Errorf("seed stop words: %w", err)
	}
	return nil
}
