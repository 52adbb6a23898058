package server

import (
	"inkwell/internal/middleware"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetCategories handles GET /api/categories
// @Summary List categories
// @Description Every category with its visible post count
// @Tags categories
// @Produce json
// @Success 200 {array} models.Category
// @Router /categories [get]
func (s *Server) GetCategories(c *fiber.Ctx) error {
	categories, err := s.categoryService.List(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(categories)
}

// GetCategoryPosts handles GET /api/categories/:slug/posts
func (s *Server) GetCategoryPosts(c *fiber.Ctx) error {
	page := parsePagination(c, service.DefaultPageSize)
	result, err := s.postService.List(c.UserContext(), middleware.SessionFrom(c), service.ListPostsInput{
		CategorySlug: c.Params("slug"),
		Limit:        page.Limit,
		Offset:       page.Offset,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}
