package middleware

import (
	"github.com/comicverse/unigraph/internal/queue"
	"github.com/comicverse/unigraph/pkg/search"
	"github.com/comicverse/unigraph/pkg/store"

	"github.com/labstack/echo/v4"
)

type AppUser struct {
	Subject     string
	Permissions []string
}

// App holds the collaborators shared by every request. Queue may be nil, in
// which case run submission is unavailable.
type App struct {
	Storage   store.GraphStorage
	Queue     queue.Publisher
	Search    *search.RunIndexes
	APIKey    string
	JWTSecret []byte
}

// AuthEnabled reports whether requests must carry a bearer token.
func (a *App) AuthEnabled() bool {
	return a.APIKey != "" || len(a.JWTSecret) > 0
}

type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app, nil}
			return next(cc)
		}
	}
}
