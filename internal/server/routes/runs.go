package routes

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/comicverse/unigraph/internal/queue"
	"github.com/comicverse/unigraph/internal/server/middleware"
	"github.com/comicverse/unigraph/pkg/loader"
	"github.com/comicverse/unigraph/pkg/logger"
	"github.com/comicverse/unigraph/pkg/store"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/labstack/echo/v4"
)

// CreateRunHandler stores a pending run and queues it for a worker.
func CreateRunHandler(c echo.Context) error {
	type createRunBody struct {
		MarvelPath    string `json:"marvel_path" validate:"required"`
		DCPath        string `json:"dc_path" validate:"required"`
		ArticlePrefix string `json:"article_prefix"`
		TopN          int    `json:"top_n" validate:"min=0,max=10000"`
	}

	data := new(createRunBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	for _, p := range []string{data.MarvelPath, data.DCPath, data.ArticlePrefix} {
		if err := loader.CheckLocalPath(p); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid file path"})
		}
	}

	app := c.(*middleware.AppContext).App
	if app.Queue == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Run submission unavailable"})
	}

	ctx := c.Request().Context()
	runID, err := gonanoid.New()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	run := store.Run{
		ID:        runID,
		Status:    store.RunStatusPending,
		TopN:      data.TopN,
		CreatedAt: time.Now().UTC(),
	}
	if err := app.Storage.SaveRun(ctx, run); err != nil {
		logger.Error("[Server] Failed to save run", "run", runID, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	msg, err := json.Marshal(queue.GraphRunMsg{
		RunID:         runID,
		MarvelPath:    data.MarvelPath,
		DCPath:        data.DCPath,
		ArticlePrefix: data.ArticlePrefix,
		TopN:          data.TopN,
		CorrelationID: c.Response().Header().Get(echo.HeaderXRequestID),
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	if err := queue.PublishFIFO(app.Queue, queue.GraphQueue, msg); err != nil {
		logger.Error("[Server] Failed to queue run", "run", runID, "err", err)
		run.Status = store.RunStatusFailed
		run.Error = "failed to queue run"
		_ = app.Storage.SaveRun(ctx, run)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	return c.JSON(http.StatusAccepted, run)
}

func GetRunHandler(c echo.Context) error {
	type getRunParams struct {
		RunID string `param:"id" validate:"required"`
	}

	params := new(getRunParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	run, err := loadRun(c, params.RunID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, run)
}

// loadRun fetches a run, mapping a missing run to 404.
func loadRun(c echo.Context, runID string) (store.Run, error) {
	app := c.(*middleware.AppContext).App
	run, err := app.Storage.GetRun(c.Request().Context(), runID)
	if errors.Is(err, store.ErrNotFound) {
		return store.Run{}, echo.NewHTTPError(http.StatusNotFound, "Run not found")
	}
	if err != nil {
		logger.Error("[Server] Failed to load run", "run", runID, "err", err)
		return store.Run{}, echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
	}
	return run, nil
}

// loadCompletedRun is loadRun restricted to runs whose tables are written.
func loadCompletedRun(c echo.Context, runID string) (store.Run, error) {
	run, err := loadRun(c, runID)
	if err != nil {
		return run, err
	}
	if run.Status != store.RunStatusCompleted {
		return run, echo.NewHTTPError(http.StatusConflict, "Run is not completed")
	}
	return run, nil
}
