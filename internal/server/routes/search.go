package routes

import (
	"net/http"

	"github.com/comicverse/unigraph/internal/server/middleware"
	"github.com/comicverse/unigraph/pkg/common"
	"github.com/comicverse/unigraph/pkg/search"

	"github.com/labstack/echo/v4"
)

// SearchCharactersHandler runs a full-text search over the characters of a
// completed run.
func SearchCharactersHandler(c echo.Context) error {
	type searchParams struct {
		RunID    string `param:"id" validate:"required"`
		Query    string `query:"q" validate:"max=256"`
		Universe string `query:"universe" validate:"omitempty,oneof=Marvel DC"`
		Limit    int    `query:"limit" validate:"min=0,max=100"`
		Offset   int    `query:"offset" validate:"min=0"`
	}

	params := new(searchParams)
	if err := bindRunParams(c, params); err != nil {
		return err
	}
	if _, err := loadCompletedRun(c, params.RunID); err != nil {
		return err
	}

	app := c.(*middleware.AppContext).App
	if app.Search == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Search unavailable")
	}

	ctx := c.Request().Context()
	idx, err := app.Search.ForRun(ctx, params.RunID)
	if err != nil {
		return internalError(params.RunID, err)
	}
	res, err := idx.Search(ctx, search.Params{
		Query:    params.Query,
		Universe: common.Universe(params.Universe),
		Limit:    params.Limit,
		Offset:   params.Offset,
	})
	if err != nil {
		return internalError(params.RunID, err)
	}
	return c.JSON(http.StatusOK, res)
}
