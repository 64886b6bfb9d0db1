package store

import (
	"context"
	"errors"
	"time"

	"github.com/comicverse/unigraph/pkg/common"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("not found")

// DefaultTopN is the number of characters GetTopCharacters returns when n <= 0.
const DefaultTopN = 20

type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is the metadata of one pipeline execution. Every output table row
// belongs to exactly one run.
type Run struct {
	ID         string     `json:"id"`
	Status     RunStatus  `json:"status"`
	TopN       int        `json:"top_n"`
	Characters int        `json:"characters"`
	Nodes      int        `json:"nodes"`
	Edges      int        `json:"edges"`
	GiantNodes int        `json:"giant_nodes"`
	GiantEdges int        `json:"giant_edges"`
	Components int        `json:"components"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// GraphStorage persists the output tables of a run and serves them back.
// Save methods replace whatever the run already stored in that table, so a
// retried run writes the same rows again.
type GraphStorage interface {
	SaveRun(ctx context.Context, run Run) error
	GetRun(ctx context.Context, id string) (Run, error)

	SaveCharacters(ctx context.Context, runID string, records []common.CharacterRecord) error
	GetCharacters(ctx context.Context, runID string) ([]common.CharacterRecord, error)

	SaveGraph(ctx context.Context, runID string, nodes []common.NodeRow, edges []common.EdgeRow) error
	GetGraph(ctx context.Context, runID string) ([]common.NodeRow, []common.EdgeRow, error)

	SaveDegrees(ctx context.Context, runID string, degrees []common.DegreeRow) error
	GetDegrees(ctx context.Context, runID string) ([]common.DegreeRow, error)
	GetTopCharacters(ctx context.Context, runID string, n int) ([]common.DegreeRow, error)

	SaveVisualEdges(ctx context.Context, runID string, rows []common.VisualEdgeRow) error
	GetVisualEdges(ctx context.Context, runID string, class string) ([]common.VisualEdgeRow, error)

	Close() error
}
