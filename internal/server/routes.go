package server

import (
	"github.com/comicverse/unigraph/internal/server/middleware"
	"github.com/comicverse/unigraph/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Run routes
	apiRoutes.POST("/runs", routes.CreateRunHandler, middleware.RequirePermission(middleware.PermissionRunCreate))
	apiRoutes.GET("/runs/:id", routes.GetRunHandler, middleware.RequirePermission(middleware.PermissionRunView))

	// Run output routes
	view := middleware.RequirePermission(middleware.PermissionRunView)
	apiRoutes.GET("/runs/:id/degrees", routes.GetDegreesHandler, view)
	apiRoutes.GET("/runs/:id/top", routes.GetTopHandler, view)
	apiRoutes.GET("/runs/:id/graph", routes.GetGraphHandler, view)
	apiRoutes.GET("/runs/:id/visual-edges", routes.GetVisualEdgesHandler, view)
	apiRoutes.GET("/runs/:id/search", routes.SearchCharactersHandler, view)
}
