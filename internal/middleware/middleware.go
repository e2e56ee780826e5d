package middleware

import (
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/akolanti/PDFChat/internal/config"
	"github.com/akolanti/PDFChat/internal/handlers"
	"github.com/akolanti/PDFChat/internal/metrics"
	"github.com/akolanti/PDFChat/pkg/logger_i"
	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorMessage string
	id           string
}

type options struct {
	auth    config.AuthSettings
	limiter *IPRateLimiter
}

var active atomic.Pointer[options]

// Configure applies the auth and rate limit settings to every wrapped handler.
func Configure(auth config.AuthSettings, limits config.RateLimitSettings) {
	opts := &options{auth: auth}
	if !limits.Disabled {
		opts.limiter = NewIPRateLimiter(rate.Limit(limits.PerSecond), limits.Burst)
	}
	active.Store(opts)
}

func current() *options {
	if opts := active.Load(); opts != nil {
		return opts
	}
	return &options{limiter: defaultLimiter}
}

var GetHandler = Wrap(handlers.GetHandler)

var ChatHandler = Wrap(handlers.ChatHandler)
var GetStatusHandler = Wrap(handlers.GetStatusHandler)

var CreateSessionHandler = Wrap(handlers.CreateSessionHandler)
var DeleteSessionHandler = Wrap(handlers.DeleteSessionHandler)
var PostDocumentsHandler = Wrap(handlers.PostDocumentsHandler)
var ReloadHandler = Wrap(handlers.ReloadHandler)
var ResetSessionHandler = Wrap(handlers.ResetSessionHandler)
var EngineStatusHandler = Wrap(handlers.EngineStatusHandler)
var MessagesHandler = Wrap(handlers.MessagesHandler)
var FilesHandler = Wrap(handlers.FilesHandler)
var FileHandler = Wrap(handlers.FileHandler)
var IndexHandler = Wrap(handlers.IndexHandler)

var SaveChatHandler = Wrap(handlers.SaveChatHandler)
var ExportChatHandler = Wrap(handlers.ExportChatHandler)
var ListChatsHandler = Wrap(handlers.ListChatsHandler)
var GetChatHandler = Wrap(handlers.GetChatHandler)
var ArchiveChatsHandler = Wrap(handlers.ArchiveChatsHandler)

func Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: http.StatusOK} //metrics
		re := processRequest(requestResponseStruct{req: r, writer: rec})

		if !re.badRequest.isBadRequest {
			next(rec, re.req)
		}

		metrics.HttpRequestsTotal.WithLabelValues(routePattern(r), strconv.Itoa(rec.Status)).Inc() //metrics
	}
}

// routePattern keeps the metric label cardinality bounded by ids in paths.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

func processRequest(re requestResponseStruct) requestResponseStruct {
	re.logger = logger_i.NewLogger("middleware")
	re = injectTrace(re)
	if re.badRequest.isBadRequest {
		handleBadRequest(re)
		return re
	}
	re.logger.Info("New request received", "method", re.req.Method, "path", re.req.URL.Path)

	re = authenticate(re)
	if re.badRequest.isBadRequest {
		handleBadRequest(re)
		return re //stop if auth fails
	}
	re = rateLimiter(re)
	if re.badRequest.isBadRequest {
		handleBadRequest(re)
		return re //stop here if rate limit fails
	}

	return re
}
