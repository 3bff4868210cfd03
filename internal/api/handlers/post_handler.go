package handlers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rverdier/postpilot/internal/models"
	"github.com/rverdier/postpilot/internal/scheduler"
	"github.com/rverdier/postpilot/internal/transfer"
)

const defaultListLimit = 20

type postScheduler interface {
	Submit(ctx context.Context, userID, title, content, network string, targetTime time.Time) (string, bool, error)
	Cancel(ctx context.Context, userID, id string) (bool, error)
	UpdateSchedule(ctx context.Context, userID, id string, targetTime time.Time) (bool, error)
	ListScheduled(ctx context.Context, userID string, limit int) ([]*models.Post, error)
}

type publishedLister interface {
	ListPublished(ctx context.Context, limit int) ([]*models.Post, error)
}

type PostHandler struct {
	s  postScheduler
	pr publishedLister
}

func NewPostHandler(s postScheduler, pr publishedLister) *PostHandler {
	return &PostHandler{s: s, pr: pr}
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var req transfer.PostSubmission
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	if req.Title == "" || req.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Title and content are required",
		})
	}

	targetTime, err := parseScheduledTime(req.ScheduledTime)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid scheduled time format",
		})
	}

	id, scheduled, err := h.s.Submit(c.Context(), userID, req.Title, req.Content, req.Network, targetTime)
	if err != nil {
		if errors.Is(err, scheduler.ErrPastSchedule) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Scheduled time cannot be in the past",
			})
		}
		slog.Error("submit failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to create post",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"id":        id,
		"scheduled": scheduled,
	})
}

func (h *PostHandler) ListScheduled(c *fiber.Ctx) error {
	userID := GetUserID(c)

	limit := c.QueryInt("limit", defaultListLimit)
	if c.QueryBool("all") {
		limit = 0
	}

	posts, err := h.s.ListScheduled(c.Context(), userID, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to list scheduled posts",
		})
	}
	if posts == nil {
		posts = []*models.Post{}
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) ListPublished(c *fiber.Ctx) error {
	posts, err := h.pr.ListPublished(c.Context(), defaultListLimit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to list published posts",
		})
	}
	if posts == nil {
		posts = []*models.Post{}
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) UpdatePost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var req transfer.ScheduleUpdate
	if err := c.BodyParser(&req); err != nil || req.ID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	targetTime, err := parseScheduledTime(req.ScheduledTime)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid scheduled time format",
		})
	}

	found, err := h.s.UpdateSchedule(c.Context(), userID, req.ID, targetTime)
	if err != nil {
		if errors.Is(err, scheduler.ErrPastSchedule) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Scheduled time cannot be in the past",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to update post",
		})
	}
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Post not found",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	id := c.Query("id")

	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "id is required",
		})
	}

	found, err := h.s.Cancel(c.Context(), userID, id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to remove post",
		})
	}
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Post not found",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
