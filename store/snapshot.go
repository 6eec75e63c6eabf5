package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"taskflow-sync/domain"
)

const snapshotKey = "taskflow:state"

// Snapshot persists the last synced mirror to Redis so a restarted
// gateway can serve stale-but-available state until the first real fetch
// resolves. A nil Snapshot, or one with a nil Redis client, is a no-op.
type Snapshot struct {
	redis *redis.Client
	ttl   time.Duration
	log   *log.Logger
}

// NewSnapshot creates a snapshot layer. ttl zero disables writes.
func NewSnapshot(client *redis.Client, ttl time.Duration, logger *log.Logger) *Snapshot {
	if ttl < 0 {
		ttl = 0
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Snapshot{redis: client, ttl: ttl, log: logger}
}

type snapshotState struct {
	Projects []domain.Project `json:"projects"`
	Tasks    []domain.Task    `json:"tasks"`
	SavedAt  time.Time        `json:"savedAt"`
}

// Load reads the last saved state. Corrupt payloads self-evict.
func (s *Snapshot) Load(ctx context.Context) ([]domain.Project, []domain.Task, bool) {
	if s == nil || s.redis == nil {
		return nil, nil, false
	}
	data, err := s.redis.Get(ctx, snapshotKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.log.WithError(err).Debug("snapshot load failed")
		}
		return nil, nil, false
	}
	var state snapshotState
	if err := json.Unmarshal(data, &state); err != nil {
		_ = s.redis.Del(ctx, snapshotKey).Err()
		return nil, nil, false
	}
	return state.Projects, state.Tasks, true
}

// Save stores the current mirror, best effort.
func (s *Snapshot) Save(ctx context.Context, projects []domain.Project, tasks []domain.Task) {
	if s == nil || s.redis == nil || s.ttl == 0 {
		return
	}
	data, err := json.Marshal(snapshotState{Projects: projects, Tasks: tasks, SavedAt: time.Now()})
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, snapshotKey, data, s.ttl).Err(); err != nil {
		s.log.WithError(err).Debug("snapshot save failed")
	}
}

// Evict drops the saved state. Called when a real projects fetch fails,
// since the store must not fall back to stale data after that.
func (s *Snapshot) Evict(ctx context.Context) {
	if s == nil || s.redis == nil {
		return
	}
	_ = s.redis.Del(ctx, snapshotKey).Err()
}
