package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/rverdier/postpilot/internal/models"
)

type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	CheckByUserID(ctx context.Context, id, userID string) (bool, error)
	ListScheduled(ctx context.Context, userID string, limit int) ([]*models.Post, error)
	ListAllScheduled(ctx context.Context) ([]*models.Post, error)
	ListPublished(ctx context.Context, limit int) ([]*models.Post, error)
	UpdateScheduledTime(ctx context.Context, id string, t time.Time) (bool, error)
	UpdateStatus(ctx context.Context, id, status string) error
	SetResult(ctx context.Context, id, status string, publishedAt *time.Time, publishedURL string) (bool, error)
	FailOverdue(ctx context.Context, now time.Time) (int64, error)
	Remove(ctx context.Context, id, userID string) (bool, error)
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, user_id, title, content, network, scheduled_time, published_at, published_url, status, created_at, updated_at`

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	query := `
		INSERT INTO posts (id, user_id, title, content, network, scheduled_time, published_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		post.ID, post.UserID, post.Title, post.Content, post.Network,
		post.ScheduledTime, post.PublishedAt, post.Status)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	post, err := scanPost(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return post, nil
}

func (r *postRepository) CheckByUserID(ctx context.Context, id, userID string) (bool, error) {
	query := `SELECT 1 FROM posts WHERE id = $1 AND user_id = $2`

	var result int
	err := r.db.QueryRowContext(ctx, query, id, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

// ListScheduled returns upcoming posts ordered soonest first. Overdue rows
// are excluded; callers reconcile those through FailOverdue beforehand.
func (r *postRepository) ListScheduled(ctx context.Context, userID string, limit int) ([]*models.Post, error) {
	query := `
		SELECT ` + postColumns + `
		FROM posts
		WHERE user_id = $1 AND status = $2 AND scheduled_time >= now()
		ORDER BY scheduled_time ASC
	`
	args := []interface{}{userID, models.PostStatusScheduled}

	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return scanPosts(rows)
}

func (r *postRepository) ListAllScheduled(ctx context.Context) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE status = $1 ORDER BY scheduled_time ASC`

	rows, err := r.db.QueryContext(ctx, query, models.PostStatusScheduled)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return scanPosts(rows)
}

func (r *postRepository) ListPublished(ctx context.Context, limit int) ([]*models.Post, error) {
	query := `
		SELECT ` + postColumns + `
		FROM posts
		WHERE status = $1
		ORDER BY published_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, models.PostStatusPublished, limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return scanPosts(rows)
}

func (r *postRepository) UpdateScheduledTime(ctx context.Context, id string, t time.Time) (bool, error) {
	query := `
		UPDATE posts
		SET scheduled_time = $1,
			updated_at = $2
		WHERE id = $3 AND status = $4
	`

	result, err := r.db.ExecContext(ctx, query, t, time.Now(), id, models.PostStatusScheduled)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *postRepository) UpdateStatus(ctx context.Context, id, status string) error {
	query := `
		UPDATE posts
		SET status = $1,
			updated_at = $2
		WHERE id = $3
	`

	_, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// SetResult applies the publishing pipeline's terminal verdict. It reports
// false when no row matched the id.
func (r *postRepository) SetResult(ctx context.Context, id, status string, publishedAt *time.Time, publishedURL string) (bool, error) {
	query := `
		UPDATE posts
		SET status = $1,
			published_at = $2,
			published_url = $3,
			updated_at = $4
		WHERE id = $5
	`

	url := sql.NullString{String: publishedURL, Valid: publishedURL != ""}
	result, err := r.db.ExecContext(ctx, query, status, publishedAt, url, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// FailOverdue marks every scheduled post whose time has already passed as
// failed, in a single statement.
func (r *postRepository) FailOverdue(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE posts
		SET status = $1,
			updated_at = $2
		WHERE status = $3 AND scheduled_time < $4
	`

	result, err := r.db.ExecContext(ctx, query, models.PostStatusFailed, time.Now(), models.PostStatusScheduled, now)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return result.RowsAffected()
}

func (r *postRepository) Remove(ctx context.Context, id, userID string) (bool, error) {
	query := `DELETE FROM posts WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPost(row rowScanner) (*models.Post, error) {
	var post models.Post
	var publishedURL sql.NullString

	err := row.Scan(&post.ID, &post.UserID, &post.Title, &post.Content, &post.Network,
		&post.ScheduledTime, &post.PublishedAt, &publishedURL, &post.Status,
		&post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}

	post.PublishedURL = publishedURL.String
	return &post, nil
}

func scanPosts(rows *sql.Rows) ([]*models.Post, error) {
	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}
