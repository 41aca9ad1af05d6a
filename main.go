/*
This is the mirror demo built on the engine package: a room with a
mirror, shadows and screen space ambient occlusion.
*/
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/lumen/engine"
	"github.com/spaghettifunk/lumen/engine/config"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/testbed"
)

func main() {
	cfg, err := config.Load(config.DefaultPath)
	if err != nil {
		core.LogFatal("%s", err)
	}

	e, err := engine.New(testbed.NewTestGame(cfg, config.DefaultPath))
	if err != nil {
		core.LogFatal("%s", err)
	}

	// capture sigterm and other system calls here
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	code := 0
	if err := e.Initialize(); err != nil {
		core.LogError("initialization failed: %s", err)
		code = 1
	} else if err := e.Run(ctx); err != nil {
		core.LogError("frame loop failed: %s", err)
		code = 1
	}
	if err := e.Shutdown(); err != nil {
		core.LogError("shutdown: %s", err)
		code = 1
	}
	stop()
	os.Exit(code)
}
