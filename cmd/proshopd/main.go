package main

import (
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/openretail/proshop/config"
	"github.com/openretail/proshop/internal/adminapi"
	"github.com/openretail/proshop/internal/app"
	"github.com/openretail/proshop/internal/webserver"
)

var (
	cfile     = flag.String("c", "proshop.yml", "config file path")
	initdb    = flag.Bool("initdb", false, "drop and recreate all tables, then exit")
	showVer   = flag.Bool("v", false, "print version and exit")
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	flag.Parse()
	if *showVer {
		fmt.Printf("proshopd %s (built %s)\n", version, buildTime)
		return
	}

	cfg := config.LoadConfig(*cfile)
	application := app.NewApplication(cfg)
	application.Init(cfg)
	defer application.Release()

	if *initdb {
		application.InitDb()
		zap.S().Info("database initialized")
		return
	}

	webserver.Init(application)
	adminapi.InitRouter()

	go func() {
		if err := webserver.Listen(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.S().Fatalf("webserver stopped: %v", err)
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc

	zap.S().Info("shutting down")
	if err := webserver.Shutdown(); err != nil {
		zap.S().Errorf("webserver shutdown: %v", err)
	}
}
