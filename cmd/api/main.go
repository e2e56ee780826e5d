// @title           PDF Chat API
// @version         1.0
// @description     Chat with your PDFs. Uploads are indexed per session and questions are answered asynchronously.
// @termsOfService  http://swagger.io/terms/

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/akolanti/PDFChat/internal/bootstrap"
	"github.com/akolanti/PDFChat/internal/config"
	jobmodel "github.com/akolanti/PDFChat/internal/domain/jobModel"
	"github.com/akolanti/PDFChat/internal/handlers"
	"github.com/akolanti/PDFChat/internal/job"
	"github.com/akolanti/PDFChat/internal/middleware"
	"github.com/akolanti/PDFChat/internal/server"
	"github.com/akolanti/PDFChat/internal/worker"
	"github.com/akolanti/PDFChat/pkg/logger_i"
	"github.com/joho/godotenv"
)

var (
	listenAddr        string
	configPath        string
	requestCount      int64
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func main() {
	//config
	flag.StringVar(&listenAddr, "listen-addr", "", "server listen address, overrides the settings file")
	flag.StringVar(&configPath, "config", "settings.yaml", "path to the settings file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		logger_i.NewLogger("main").Debug("No .env file loaded", "error", err)
	}
	settings, err := config.Load(configPath)
	if err != nil {
		logger_i.NewLogger("main").Error("Invalid settings", "error", err)
		os.Exit(1)
	}
	if listenAddr != "" {
		settings.Server.ListenAddr = listenAddr
	}

	logger_i.Init(logger_i.Options{Level: settings.Log.SlogLevel(), JSON: settings.Log.JSON})
	var logger = logger_i.NewLogger("main")

	//init buffered job channel
	jobChannel := make(chan jobmodel.Job, config.BufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel = make(chan bool, 1)

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	core, err := bootstrap.Build(serviceContext, settings)
	if err != nil {
		logger.Error("One or more external services failed to initialize. Shutting down.", "error", err)
		return
	}

	//init job service and job store
	logger.Info("Starting job service")
	service := job.InitJobService(job.ServiceConfig{
		JobChannel:        jobChannel,
		RequestCount:      requestCount,
		DispatcherChannel: dispatcherChannel,
		JobStore:          core.JobStore,
	})

	handlers.InitJobHandler(handlers.Dependencies{
		Jobs:     service,
		Sessions: core.Sessions,
		Archive:  core.Archive,
	})
	middleware.Configure(settings.Auth, settings.RateLimit)

	//init worker pool
	worker.InitServices(service, core.Executor)
	worker.InitWorkerPool(stopWorkerChannel, &workerWaitGroup)

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		Cleanup:          core.Shutdown,
		CloseServices:    closeExternalServices,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(settings.Server.ListenAddr)

	<-stopExecution
	logger.Info("Server stopped")
}
