package server

import (
	"time"

	"inkwell/internal/activity"
	"inkwell/internal/middleware"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMe handles GET /api/users/me
// @Summary Current account
// @Tags users
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 401 {object} models.ErrorResponse
// @Router /users/me [get]
func (s *Server) GetMe(c *fiber.Ctx) error {
	user, err := s.authService.Me(c.UserContext(), middleware.SessionFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// UpdateMe handles PUT /api/users/me
func (s *Server) UpdateMe(c *fiber.Ctx) error {
	var req service.UpdateProfileInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	user, err := s.userService.UpdateProfile(c.UserContext(), middleware.SessionFrom(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// GetUserProfile handles GET /api/users/:id
// @Summary Public profile
// @Description Withdrawn accounts are returned as placeholders
// @Tags users
// @Param id path int true "User ID"
// @Success 200 {object} visibility.ProfileView
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id} [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	profile, err := s.userService.Profile(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}

// GetUserPosts handles GET /api/users/:id/posts
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, service.DefaultPageSize)
	result, err := s.userService.Posts(c.UserContext(), middleware.SessionFrom(c), id, page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// GetUserActivity handles GET /api/users/:id/activity?days=365
// @Summary Activity calendar
// @Description Daily post activity in Sunday-first week columns
// @Tags users
// @Param id path int true "User ID"
// @Param days query int false "Trailing window in days" default(365)
// @Success 200 {object} activity.Calendar
// @Router /users/{id}/activity [get]
func (s *Server) GetUserActivity(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	cal, err := s.userService.Activity(c.UserContext(), id, c.QueryInt("days", activity.DefaultSpan))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(cal)
}

// WithdrawUser handles DELETE /api/users/:id. Owners withdraw themselves,
// admins may withdraw anyone.
func (s *Server) WithdrawUser(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	sess := middleware.SessionFrom(c)
	if err := s.lifecycle.Withdraw(c.UserContext(), sess, id); err != nil {
		return respondError(c, err)
	}
	if sess.Owns(id) {
		s.setSessionCookie(c, "", time.Unix(0, 0))
	}
	return c.JSON(fiber.Map{"message": "Account withdrawn"})
}
