package jobs

import (
	"errors"
	"time"

	"github.com/BoiseITGuru/project-toucans-v2/internal/models"
)

var ErrNotFound = errors.New("job not found")

// JobName identifiers for the background jobs this service runs.
const (
	RankingJob = "ranking"
	RefillJob  = "refill"
)

// State is the control-plane view of one background job.
type State struct {
	Name      string            `json:"name"`
	Enabled   bool              `json:"enabled"`
	UpdatedAt time.Time         `json:"updated_at"`
	LastRun   *models.RunStatus `json:"last_run,omitempty"`
}
