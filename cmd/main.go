package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/Lenniott/FITTNESS-BUILDER/internal/app"
)

func envTrue(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
}

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("failed to initialize app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	runServer := envTrue("RUN_SERVER", true)
	runWorker := envTrue("RUN_WORKER", true)

	if runWorker {
		a.Start()
	}

	if runServer {
		a.Log.Info("server listening", "addr", a.Cfg.ListenAddr)
		if err := a.Run(a.Cfg.ListenAddr); err != nil {
			a.Log.Error("server failed", "error", err.Error())
		}
		return
	}

	select {}
}
