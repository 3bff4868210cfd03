package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/robfig/cron"

	"github.com/rverdier/postpilot/internal/dispatch"
	"github.com/rverdier/postpilot/internal/models"
)

var ErrPastSchedule = errors.New("scheduled time cannot be in the past")

// maxTimerDelay is the longest countdown armed as a live timer. Posts
// further out stay store-only until the sweep or a restart picks them up.
const maxTimerDelay = time.Duration(math.MaxInt32) * time.Millisecond

// immediateWindow is the tolerance around now inside which a submission is
// published right away instead of scheduled.
const immediateWindow = 10 * time.Second

const sweepSpec = "@every 0h05m00s"

type postStore interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	ListScheduled(ctx context.Context, userID string, limit int) ([]*models.Post, error)
	ListAllScheduled(ctx context.Context) ([]*models.Post, error)
	UpdateScheduledTime(ctx context.Context, id string, t time.Time) (bool, error)
	UpdateStatus(ctx context.Context, id, status string) error
	FailOverdue(ctx context.Context, now time.Time) (int64, error)
	Remove(ctx context.Context, id, userID string) (bool, error)
}

// Scheduler owns the in-memory countdown index for scheduled posts. The
// store stays authoritative; the index only exists for low-latency firing.
type Scheduler struct {
	store          postStore
	dispatcher     dispatch.Dispatcher
	defaultNetwork string

	mu     sync.Mutex
	timers map[string]*time.Timer

	cron *cron.Cron
}

func New(store postStore, dispatcher dispatch.Dispatcher, defaultNetwork string) *Scheduler {
	return &Scheduler{
		store:          store,
		dispatcher:     dispatcher,
		defaultNetwork: defaultNetwork,
		timers:         make(map[string]*time.Timer),
	}
}

// Submit publishes immediately when the target time is within
// immediateWindow of now, otherwise schedules for later. It reports whether
// the post was scheduled.
func (s *Scheduler) Submit(ctx context.Context, userID, title, content, network string, targetTime time.Time) (string, bool, error) {
	now := time.Now()

	if targetTime.After(now.Add(immediateWindow)) {
		id, err := s.Schedule(ctx, userID, title, content, network, targetTime)
		return id, true, err
	}

	if targetTime.Before(now.Add(-immediateWindow)) {
		return "", false, ErrPastSchedule
	}

	id, err := s.publishNow(ctx, userID, title, content, network)
	return id, false, err
}

func (s *Scheduler) publishNow(ctx context.Context, userID, title, content, network string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", err
	}

	now := time.Now()
	post := &models.Post{
		ID:            id,
		UserID:        userID,
		Title:         title,
		Content:       content,
		Network:       s.network(network),
		ScheduledTime: now,
		PublishedAt:   &now,
		Status:        models.PostStatusPublished,
	}

	if err := s.store.Create(ctx, post); err != nil {
		return "", err
	}

	if err := s.dispatcher.Send(ctx, payload(post)); err != nil {
		slog.Error("immediate publish failed", "post_id", id, "error", err)
		if err := s.store.UpdateStatus(ctx, id, models.PostStatusFailed); err != nil {
			slog.Error("failed to mark post failed", "post_id", id, "error", err)
		}
	}

	return id, nil
}

// Schedule persists the post as scheduled and arms a countdown when the
// delay fits the timer horizon.
func (s *Scheduler) Schedule(ctx context.Context, userID, title, content, network string, targetTime time.Time) (string, error) {
	if !targetTime.After(time.Now()) {
		return "", ErrPastSchedule
	}

	id, err := gonanoid.New()
	if err != nil {
		return "", err
	}

	post := &models.Post{
		ID:            id,
		UserID:        userID,
		Title:         title,
		Content:       content,
		Network:       s.network(network),
		ScheduledTime: targetTime,
		Status:        models.PostStatusScheduled,
	}

	if err := s.store.Create(ctx, post); err != nil {
		return "", err
	}

	s.arm(id, targetTime)
	return id, nil
}

// Cancel stops any pending countdown and hard-deletes the post. A missing
// or already-fired post reports not found rather than erroring.
func (s *Scheduler) Cancel(ctx context.Context, userID, id string) (bool, error) {
	found, err := s.store.Remove(ctx, id, userID)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	s.disarm(id)
	return true, nil
}

// UpdateSchedule moves a scheduled post to a new future time and re-arms
// its countdown. It reconverges with the store when the post has no
// in-memory entry, e.g. after a restart.
func (s *Scheduler) UpdateSchedule(ctx context.Context, userID, id string, targetTime time.Time) (bool, error) {
	if !targetTime.After(time.Now()) {
		return false, ErrPastSchedule
	}

	post, err := s.store.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if post == nil || post.UserID != userID {
		return false, nil
	}

	updated, err := s.store.UpdateScheduledTime(ctx, id, targetTime)
	if err != nil || !updated {
		return false, err
	}

	s.arm(id, targetTime)
	return true, nil
}

// ListScheduled reconciles overdue posts first, then reads upcoming posts
// from the store. The in-memory index is never consulted for listings.
func (s *Scheduler) ListScheduled(ctx context.Context, userID string, limit int) ([]*models.Post, error) {
	if err := s.reconcile(ctx); err != nil {
		return nil, err
	}
	return s.store.ListScheduled(ctx, userID, limit)
}

// Restore rebuilds the countdown index from the store after a restart.
func (s *Scheduler) Restore(ctx context.Context) error {
	if err := s.reconcile(ctx); err != nil {
		return err
	}

	posts, err := s.store.ListAllScheduled(ctx)
	if err != nil {
		return err
	}

	armed := 0
	for _, post := range posts {
		if s.arm(post.ID, post.ScheduledTime) {
			armed++
		}
	}

	slog.Info("scheduler restored", "scheduled", len(posts), "armed", armed)
	return nil
}

// Start launches the periodic sweep that arms posts whose remaining delay
// has fallen under the timer horizon.
func (s *Scheduler) Start() {
	c := cron.New()
	c.AddFunc(sweepSpec, s.sweep)
	c.Start()
	s.cron = c
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}

func (s *Scheduler) reconcile(ctx context.Context) error {
	failed, err := s.store.FailOverdue(ctx, time.Now())
	if err != nil {
		return err
	}
	if failed > 0 {
		slog.Info("failed overdue scheduled posts", "count", failed)
	}
	return nil
}

func (s *Scheduler) sweep() {
	ctx := context.Background()
	posts, err := s.store.ListAllScheduled(ctx)
	if err != nil {
		slog.Error("sweep failed to load scheduled posts", "error", err)
		return
	}

	now := time.Now()
	for _, post := range posts {
		if !post.ScheduledTime.After(now) {
			// overdue, left for lazy reconciliation
			continue
		}
		if s.armed(post.ID) {
			continue
		}
		s.arm(post.ID, post.ScheduledTime)
	}
}

// arm schedules the countdown for id, replacing any existing one. It
// reports false when the delay exceeds the timer horizon.
func (s *Scheduler) arm(id string, targetTime time.Time) bool {
	delay := time.Until(targetTime)
	if delay > maxTimerDelay {
		slog.Info("post beyond timer horizon, deferred to sweep", "post_id", id, "scheduled_time", targetTime)
		s.disarm(id)
		return false
	}
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.timers[id]; ok {
		timer.Stop()
	}
	s.timers[id] = time.AfterFunc(delay, func() { s.fire(id) })
	return true
}

func (s *Scheduler) disarm(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.timers[id]; ok {
		timer.Stop()
		delete(s.timers, id)
	}
}

func (s *Scheduler) armed(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[id]
	return ok
}

// fire dispatches one due post. The post is re-read so edits or deletions
// made since arming are honored, and the countdown entry is dropped either
// way; terminal status is the callback's responsibility.
func (s *Scheduler) fire(id string) {
	ctx := context.Background()

	s.mu.Lock()
	delete(s.timers, id)
	s.mu.Unlock()

	post, err := s.store.GetByID(ctx, id)
	if err != nil {
		slog.Error("could not load post at fire time", "post_id", id, "error", err)
		return
	}
	if post == nil || post.Status != models.PostStatusScheduled {
		return
	}

	if err := s.dispatcher.Send(ctx, payload(post)); err != nil {
		slog.Error("dispatch failed", "post_id", id, "network", post.Network, "error", err)
		if err := s.store.UpdateStatus(ctx, id, models.PostStatusFailed); err != nil {
			slog.Error("failed to mark post failed", "post_id", id, "error", err)
		}
		return
	}

	slog.Info("post dispatched, awaiting callback", "post_id", id, "network", post.Network)
}

func (s *Scheduler) network(network string) string {
	if network == "" {
		return s.defaultNetwork
	}
	return network
}

func payload(post *models.Post) dispatch.Payload {
	return dispatch.Payload{
		ID:      post.ID,
		Title:   post.Title,
		Content: post.Content,
		Network: post.Network,
	}
}
