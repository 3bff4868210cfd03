package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

func GetUserID(c *fiber.Ctx) string {
	userID, _ := c.Locals("user_id").(string)
	return userID
}

// parseScheduledTime accepts RFC 3339 or the datetime-local form value.
func parseScheduledTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04", value, time.Local)
}
