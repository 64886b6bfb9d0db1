package routes

import (
	"net/http"

	"github.com/comicverse/unigraph/internal/server/middleware"
	"github.com/comicverse/unigraph/pkg/common"
	"github.com/comicverse/unigraph/pkg/logger"

	"github.com/labstack/echo/v4"
)

type runParams struct {
	RunID string `param:"id" validate:"required"`
}

func bindRunParams[T any](c echo.Context, params *T) error {
	if err := c.Bind(params); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request params")
	}
	if err := c.Validate(params); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request params")
	}
	return nil
}

func internalError(runID string, err error) error {
	logger.Error("[Server] Failed to read run tables", "run", runID, "err", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
}

// GetDegreesHandler returns the degree table of a completed run.
func GetDegreesHandler(c echo.Context) error {
	params := new(runParams)
	if err := bindRunParams(c, params); err != nil {
		return err
	}
	if _, err := loadCompletedRun(c, params.RunID); err != nil {
		return err
	}

	app := c.(*middleware.AppContext).App
	degrees, err := app.Storage.GetDegrees(c.Request().Context(), params.RunID)
	if err != nil {
		return internalError(params.RunID, err)
	}
	return c.JSON(http.StatusOK, degrees)
}

// GetTopHandler returns the n most mentioned characters of a completed run.
func GetTopHandler(c echo.Context) error {
	type getTopParams struct {
		RunID string `param:"id" validate:"required"`
		N     int    `query:"n" validate:"min=0,max=10000"`
	}

	params := new(getTopParams)
	if err := bindRunParams(c, params); err != nil {
		return err
	}
	run, err := loadCompletedRun(c, params.RunID)
	if err != nil {
		return err
	}

	n := params.N
	if n == 0 {
		n = run.TopN
	}
	app := c.(*middleware.AppContext).App
	top, err := app.Storage.GetTopCharacters(c.Request().Context(), params.RunID, n)
	if err != nil {
		return internalError(params.RunID, err)
	}
	return c.JSON(http.StatusOK, top)
}

// GetGraphHandler returns the node and edge tables of a completed run.
func GetGraphHandler(c echo.Context) error {
	type graphResponse struct {
		Nodes []common.NodeRow `json:"nodes"`
		Edges []common.EdgeRow `json:"edges"`
	}

	params := new(runParams)
	if err := bindRunParams(c, params); err != nil {
		return err
	}
	if _, err := loadCompletedRun(c, params.RunID); err != nil {
		return err
	}

	app := c.(*middleware.AppContext).App
	nodes, edges, err := app.Storage.GetGraph(c.Request().Context(), params.RunID)
	if err != nil {
		return internalError(params.RunID, err)
	}
	return c.JSON(http.StatusOK, graphResponse{Nodes: nodes, Edges: edges})
}

// GetVisualEdgesHandler returns the presentation table of a completed run,
// optionally restricted to Cross or Intra edges.
func GetVisualEdgesHandler(c echo.Context) error {
	type getVisualParams struct {
		RunID string `param:"id" validate:"required"`
		Class string `query:"class" validate:"omitempty,oneof=Cross Intra"`
	}

	params := new(getVisualParams)
	if err := bindRunParams(c, params); err != nil {
		return err
	}
	if _, err := loadCompletedRun(c, params.RunID); err != nil {
		return err
	}

	app := c.(*middleware.AppContext).App
	rows, err := app.Storage.GetVisualEdges(c.Request().Context(), params.RunID, params.Class)
	if err != nil {
		return internalError(params.RunID, err)
	}
	if rows == nil {
		rows = []common.VisualEdgeRow{}
	}
	return c.JSON(http.StatusOK, rows)
}

