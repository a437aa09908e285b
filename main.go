package main

import (
	_ "gz302-agent/cmd"
	"gz302-agent/cmd/root"
	"gz302-agent/internal/config"
	"gz302-agent/internal/logger"
	"os"
)

func main() {
	logger.InitLogger(config.Config.Log.Path, config.Config.Log.Level, false)

	if err := root.RootCmd.Execute(); err != nil {
		logger.Fatal(err)
	}
	os.Exit(0)
}
