package server

import (
	"strings"

	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// AdminListUsers handles GET /admin/users?state=&q=
func (s *Server) AdminListUsers(c *fiber.Ctx) error {
	page := parsePagination(c, service.DefaultPageSize)
	filter := repository.UserListFilter{
		State: models.AccountState(strings.ToLower(c.Query("state"))),
		Query: c.Query("q"),
	}
	result, err := s.adminService.ListUsers(c.UserContext(), middleware.SessionFrom(c), filter, page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// AdminWithdrawUser handles POST /admin/users/:id/withdraw
func (s *Server) AdminWithdrawUser(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.lifecycle.Withdraw(c.UserContext(), middleware.SessionFrom(c), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Account withdrawn"})
}

// AdminRestoreUser handles POST /admin/users/:id/restore
func (s *Server) AdminRestoreUser(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.lifecycle.Restore(c.UserContext(), middleware.SessionFrom(c), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Account restored"})
}

// AdminSetRole handles PUT /admin/users/:id/role
func (s *Server) AdminSetRole(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Role models.Role `json:"role"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	role := models.Role(strings.ToUpper(string(req.Role)))
	if err := s.adminService.SetRole(c.UserContext(), middleware.SessionFrom(c), id, role); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Role updated", "role": role})
}

// AdminSweep handles POST /admin/sweep by running one anonymization pass now.
func (s *Server) AdminSweep(c *fiber.Ctx) error {
	result, err := s.sweeper.RunOnce(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// AdminListPosts handles GET /admin/posts
func (s *Server) AdminListPosts(c *fiber.Ctx) error {
	page := parsePagination(c, service.DefaultPageSize)
	result, err := s.postService.AdminList(c.UserContext(), middleware.SessionFrom(c), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// AdminRestorePost handles POST /admin/posts/:id/restore
func (s *Server) AdminRestorePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.postService.Restore(c.UserContext(), middleware.SessionFrom(c), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post restored"})
}

// AdminRestoreComment handles POST /admin/comments/:id/restore
func (s *Server) AdminRestoreComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.commentService.Restore(c.UserContext(), middleware.SessionFrom(c), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Comment restored"})
}

// AdminStats handles GET /admin/stats
func (s *Server) AdminStats(c *fiber.Ctx) error {
	stats, err := s.adminService.Stats(c.UserContext(), middleware.SessionFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}
