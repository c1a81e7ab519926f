// Package state tracks the single active pipeline run behind the trigger surface.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"fouani/storesync/internal/domain"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const saveTimeout = 2 * time.Second

// SnapshotStore persists the last run status across restarts
type SnapshotStore interface {
	Save(ctx context.Context, status domain.RunStatus) error
	Load(ctx context.Context) (domain.RunStatus, bool, error)
}

// Tracker is the only writer of the run status. TryStart is the single
// check-and-set that lets a run begin.
type Tracker struct {
	mu     sync.Mutex
	status domain.RunStatus
	store  SnapshotStore
	now    func() time.Time
}

// NewTracker returns an idle tracker. store may be nil.
func NewTracker(store SnapshotStore) *Tracker {
	return &Tracker{
		status: domain.RunStatus{Status: domain.StatusIdle},
		store:  store,
		now:    time.Now,
	}
}

// Restore loads the last persisted status. A run that was still marked
// running belonged to a process that no longer exists.
func (t *Tracker) Restore(ctx context.Context) error {
	if t.store == nil {
		return nil
	}

	status, ok, err := t.store.Load(ctx)
	if err != nil || !ok {
		return err
	}
	if status.IsRunning {
		status.IsRunning = false
		status.Status = "failed: interrupted"
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = status
	return nil
}

// TryStart marks a run active. It returns false if one already is.
func (t *Tracker) TryStart() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status.IsRunning {
		return false
	}
	t.status.IsRunning = true
	t.status.Status = domain.StatusRunning
	t.persist()
	return true
}

// Finish ends the active run. A nil err completes it; otherwise the status
// becomes "failed: <err>".
func (t *Tracker) Finish(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.status.IsRunning = false
	t.status.LastRun = &now
	t.status.Status = domain.StatusCompleted
	if err != nil {
		t.status.Status = fmt.Sprintf("failed: %v", err)
	}
	t.persist()
}

// Snapshot returns a copy of the current status.
func (t *Tracker) Snapshot() domain.RunStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return copyStatus(t.status)
}

// persist must be called with mu held so snapshots are saved in order
func (t *Tracker) persist() {
	if t.store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := t.store.Save(ctx, copyStatus(t.status)); err != nil {
		log.Warnf("⚠️ Failed to persist run status: %v", err)
	}
}

func copyStatus(s domain.RunStatus) domain.RunStatus {
	if s.LastRun != nil {
		last := *s.LastRun
		s.LastRun = &last
	}
	return s
}

type redisSnapshotStore struct {
	redisClient *redis.Client
	key         string
}

func NewRedisSnapshotStore(redisClient *redis.Client, key string) SnapshotStore {
	return &redisSnapshotStore{
		redisClient: redisClient,
		key:         key,
	}
}

func (s *redisSnapshotStore) Load(ctx context.Context) (domain.RunStatus, bool, error) {
	val, err := s.redisClient.Get(ctx, s.key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return domain.RunStatus{}, false, nil // nothing saved yet
		}
		return domain.RunStatus{}, false, fmt.Errorf("failed to get run status: %w", err)
	}

	var status domain.RunStatus
	if err := json.Unmarshal(val, &status); err != nil {
		return domain.RunStatus{}, false, fmt.Errorf("failed to decode run status: %w", err)
	}
	return status, true, nil
}

func (s *redisSnapshotStore) Save(ctx context.Context, status domain.RunStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return err
	}
	if err := s.redisClient.Set(ctx, s.key, data, 0).Err(); err != nil { // no expiration
		return fmt.Errorf("failed to set run status: %w", err)
	}
	return nil
}
