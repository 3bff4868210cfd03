package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rverdier/postpilot/internal/models"
	"github.com/rverdier/postpilot/internal/transfer"
)

type resultStore interface {
	SetResult(ctx context.Context, id, status string, publishedAt *time.Time, publishedURL string) (bool, error)
}

// CallbackHandler receives the publishing pipeline's asynchronous verdict
// and finalizes the post's status.
type CallbackHandler struct {
	pr resultStore
}

func NewCallbackHandler(pr resultStore) *CallbackHandler {
	return &CallbackHandler{pr: pr}
}

func (h *CallbackHandler) PublishCallback(c *fiber.Ctx) error {
	var req transfer.PublishCallback
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	if req.PostID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "post_id is required",
		})
	}

	if req.Status != models.PostStatusPublished && req.Status != models.PostStatusFailed {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "status must be published or failed",
		})
	}

	var publishedAt *time.Time
	if req.Status == models.PostStatusPublished {
		now := time.Now()
		publishedAt = &now
	}

	found, err := h.pr.SetResult(c.Context(), req.PostID, req.Status, publishedAt, req.PublishedURL)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to update post",
		})
	}
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Post not found",
		})
	}

	slog.Info("publish callback applied", "post_id", req.PostID, "status", req.Status)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"post_id": req.PostID,
	})
}
