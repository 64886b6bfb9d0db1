package queue

import (
	"encoding/json"
	"fmt"

	"github.com/comicverse/unigraph/pkg/common"
	"github.com/comicverse/unigraph/pkg/loader"

	"github.com/go-playground/validator"
)

// GraphRunMsg asks a worker to build the mention graph of one run.
type GraphRunMsg struct {
	RunID         string `json:"run_id" validate:"required"`
	MarvelPath    string `json:"marvel_path" validate:"required"`
	DCPath        string `json:"dc_path" validate:"required"`
	ArticlePrefix string `json:"article_prefix"`
	TopN          int    `json:"top_n" validate:"min=0,max=10000"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// RunEventMsg is published on the events exchange when a run ends.
type RunEventMsg struct {
	RunID         string `json:"run_id"`
	Status        string `json:"status"`
	Nodes         int    `json:"nodes,omitempty"`
	Edges         int    `json:"edges,omitempty"`
	Error         string `json:"error,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

var validate = validator.New()

// ParseGraphRunMsg decodes and validates a message body.
func ParseGraphRunMsg(body []byte) (GraphRunMsg, error) {
	var msg GraphRunMsg
	if err := json.Unmarshal(body, &msg); err != nil {
		return GraphRunMsg{}, fmt.Errorf("failed to decode graph run message: %w", err)
	}
	if err := validate.Struct(msg); err != nil {
		return GraphRunMsg{}, fmt.Errorf("invalid graph run message: %w", err)
	}
	if err := msg.CheckPaths(); err != nil {
		return GraphRunMsg{}, fmt.Errorf("invalid graph run message: %w", err)
	}
	return msg, nil
}

// CheckPaths rejects input paths that would escape the data root.
func (m GraphRunMsg) CheckPaths() error {
	for _, p := range []string{m.MarvelPath, m.DCPath, m.ArticlePrefix} {
		if err := loader.CheckLocalPath(p); err != nil {
			return err
		}
	}
	return nil
}

// Files returns the character listings of the run in catalog order:
// Marvel first, then DC.
func (m GraphRunMsg) Files(base loader.GraphFileLoader) []loader.GraphFile {
	return []loader.GraphFile{
		loader.NewCharacterFile(loader.NewGraphFileParams{ID: m.RunID + "-marvel", FilePath: m.MarvelPath, Loader: base}, common.UniverseMarvel),
		loader.NewCharacterFile(loader.NewGraphFileParams{ID: m.RunID + "-dc", FilePath: m.DCPath, Loader: base}, common.UniverseDC),
	}
}
