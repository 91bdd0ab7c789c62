package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/BoiseITGuru/project-toucans-v2/internal/models"
)

const (
	enabledPrefix = "jobs:enabled:"
	lastRunPrefix = "jobs:lastrun:"
)

var nameRe = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`)

// Store keeps job switches and last-run records in Redis so operators can
// pause a job or inspect its most recent outcome without touching the
// process.
type Store struct {
	client redis.Cmdable
}

func NewStore(client redis.Cmdable) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	return &Store{client: client}, nil
}

func ValidateName(name string) error {
	if !nameRe.MatchString(name) {
		return fmt.Errorf("invalid job name")
	}
	return nil
}

// Enabled reports whether a job should run. Jobs with no stored switch
// default to enabled.
func (s *Store) Enabled(ctx context.Context, name string) (bool, error) {
	if err := ValidateName(name); err != nil {
		return false, err
	}

	val, err := s.client.Get(ctx, enabledKey(name)).Result()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("get job switch: %w", err)
	}
	return val == "1", nil
}

// SetEnabled flips a job's switch and returns the updated state.
func (s *Store) SetEnabled(ctx context.Context, name string, enabled bool) (*State, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	val := "0"
	if enabled {
		val = "1"
	}
	if err := s.client.Set(ctx, enabledKey(name), val, 0).Err(); err != nil {
		return nil, fmt.Errorf("set job switch: %w", err)
	}

	return &State{Name: name, Enabled: enabled, UpdatedAt: time.Now().UTC()}, nil
}

// RecordRun stores the outcome of the job's latest run, replacing the
// previous one.
func (s *Store) RecordRun(ctx context.Context, name string, status models.RunStatus) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	b, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("marshal run status: %w", err)
	}
	if err := s.client.Set(ctx, lastRunKey(name), b, 0).Err(); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// LastRun returns the most recent run outcome, ErrNotFound when the job
// has never run.
func (s *Store) LastRun(ctx context.Context, name string) (*models.RunStatus, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	val, err := s.client.Get(ctx, lastRunKey(name)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get last run: %w", err)
	}

	var status models.RunStatus
	if err := json.Unmarshal([]byte(val), &status); err != nil {
		return nil, fmt.Errorf("unmarshal run status: %w", err)
	}
	return &status, nil
}

// JobState returns the combined switch and last-run view for one job.
func (s *Store) JobState(ctx context.Context, name string) (*State, error) {
	enabled, err := s.Enabled(ctx, name)
	if err != nil {
		return nil, err
	}

	state := &State{Name: name, Enabled: enabled}

	lastRun, err := s.LastRun(ctx, name)
	if err != nil && err != ErrNotFound {
		return nil, err
	}
	state.LastRun = lastRun

	return state, nil
}

func enabledKey(name string) string {
	return enabledPrefix + name
}

func lastRunKey(name string) string {
	return lastRunPrefix + name
}
