package main

import (
	"github.com/comicverse/unigraph/internal/server"
	"github.com/comicverse/unigraph/internal/util"
	"github.com/comicverse/unigraph/pkg/logger"
	"github.com/comicverse/unigraph/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
		JSON:  util.GetEnvBool("LOG_JSON", false),
	})
	logger.Init(consoleLogger)

	server.Init()
}
