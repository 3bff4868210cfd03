package models

import "time"

type Post struct {
	ID            string     `db:"id" json:"id"`
	UserID        string     `db:"user_id" json:"user_id"`
	Title         string     `db:"title" json:"title"`
	Content       string     `db:"content" json:"content"`
	Network       string     `db:"network" json:"network"`
	ScheduledTime time.Time  `db:"scheduled_time" json:"scheduled_time"`
	PublishedAt   *time.Time `db:"published_at" json:"published_at,omitempty"`
	PublishedURL  string     `db:"published_url" json:"published_url,omitempty"`
	Status        string     `db:"status" json:"status"` // draft, scheduled, published, failed
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

const (
	PostStatusDraft     = "draft"
	PostStatusScheduled = "scheduled"
	PostStatusPublished = "published"
	PostStatusFailed    = "failed"
)

const (
	NetworkLinkedin  = "linkedin"
	NetworkTwitter   = "twitter"
	NetworkInstagram = "instagram"
	NetworkFacebook  = "facebook"
)
