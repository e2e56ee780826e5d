package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"

	"github.com/akolanti/PDFChat/internal/adapter/utils"
	"github.com/akolanti/PDFChat/internal/config"
	"github.com/akolanti/PDFChat/internal/middleware"
	"github.com/akolanti/PDFChat/pkg/logger_i"
	"github.com/go-chi/chi/v5"
)

var (
	server  *http.Server
	_logger = logger_i.NewLogger("Server")
)

type ShutdownParams struct {
	GracefulShutdown chan os.Signal
	StopExecution    chan bool
	WorkerStop       chan bool
	Group            *sync.WaitGroup
	// Cleanup runs after the workers are gone, before external services close.
	Cleanup       func(ctx context.Context)
	CloseServices context.CancelFunc
}

func RegisterRoutes(r chi.Router) {
	r.Get("/health", middleware.GetHandler)

	r.Post("/chat", middleware.ChatHandler)
	r.Get("/status/{id}", middleware.GetStatusHandler)

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", middleware.CreateSessionHandler)
		r.Delete("/{id}", middleware.DeleteSessionHandler)
		r.Post("/{id}/documents", middleware.PostDocumentsHandler)
		r.Post("/{id}/reload", middleware.ReloadHandler)
		r.Post("/{id}/reset", middleware.ResetSessionHandler)
		r.Get("/{id}/engine", middleware.EngineStatusHandler)
		r.Get("/{id}/messages", middleware.MessagesHandler)
		r.Get("/{id}/files", middleware.FilesHandler)
		r.Get("/{id}/files/{name}", middleware.FileHandler)
		r.Get("/{id}/index", middleware.IndexHandler)
	})

	r.Route("/chats", func(r chi.Router) {
		r.Get("/", middleware.ListChatsHandler)
		r.Post("/save", middleware.SaveChatHandler)
		r.Post("/export", middleware.ExportChatHandler)
		r.Post("/archive", middleware.ArchiveChatsHandler)
		r.Get("/{name}", middleware.GetChatHandler)
	})
}

func CreateServer(listenAddr string) {
	r := utils.GetRouter()
	RegisterRoutes(r.Router)

	server = &http.Server{
		Addr:         listenAddr,
		Handler:      r.Router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	_logger.Info("Server is listening at", "address", listenAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		_logger.Error("Server crashed", "error", err.Error(), "addr", listenAddr)
	}
}

func ShutDownHandler(shutdownParams ShutdownParams) {
	state := <-shutdownParams.GracefulShutdown
	_logger.Info("Server is shutting down", "signal", state.String())

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownContextTimeout)
	defer cancel()

	done := make(chan struct{})

	go func() {
		if server != nil {
			server.SetKeepAlivesEnabled(false)
			if err := server.Shutdown(ctx); err != nil {
				_logger.Error("Could not shutdown gracefully", "error", err)
			}
		}

		//close workers
		close(shutdownParams.WorkerStop)
		shutdownParams.Group.Wait()
		if shutdownParams.Cleanup != nil {
			shutdownParams.Cleanup(ctx)
		}
		shutdownParams.CloseServices()
		close(done)
	}()

	select {
	case <-done:
		_logger.Info("Gracefully shut down")
		close(shutdownParams.StopExecution)
	case <-ctx.Done():
		_logger.Info("Force Shut down")
		os.Exit(1)
	}
}
