package actions

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/relloyd/dbcop/constants"
	"github.com/relloyd/dbcop/helper"
	"github.com/relloyd/dbcop/locality"
	"github.com/relloyd/dbcop/logger"
)

type WebServerConfig struct {
	LogLevel         string `errorTxt:"log level" mandatory:"yes"`
	Scheme           string `errorTxt:"scheme" mandatory:"no"`
	Addr             net.IP `errorTxt:"address" mandatory:"no"`
	Port             int    `errorTxt:"port" mandatory:"yes"`
	Connections      ConnectionSource
	ToolPath         string
	TempDir          string
	LockFile         string
	StackDumpOnPanic bool
}

func RunWebServer(web *WebServerConfig) error {
	// Setup logging.
	if web == nil {
		return errors.New("nil pointer to web server config supplied")
	}
	log := logger.NewLogger(constants.AppName, web.LogLevel, web.StackDumpOnPanic)
	// Check if we have valid input params.
	err := helper.ValidateStructIsPopulated(web)
	if err != nil {
		return err
	}
	svc := NewSyncService(log, web.Connections, web.LockFile)
	svc.ToolPath = web.ToolPath
	svc.TempDir = web.TempDir
	svc.Metrics = NewSyncMetrics()
	ctxServer, cancelSessions := context.WithCancel(context.Background())
	defer cancelSessions()
	// Start the web server.
	srv, chanStopServer := runServer(log, web, newRouter(log, ctxServer, svc, locality.NewClassifier(log)))
	// Block & wait for completion.
	return waitForServer(log, srv, chanStopServer, svc, cancelSessions)
}

// newRouter creates the API routes.
func newRouter(log logger.Logger, ctxServer context.Context, svc *SyncService, a Analyzer) *mux.Router {
	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if req.URL.Path != "/metrics" {
				w.Header().Set("Content-Type", "application/json")
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Path("/health").Methods(http.MethodGet).HandlerFunc(GetHandlerHealth(log))
	r.Path("/syncs").Methods(http.MethodPost).HandlerFunc(GetHandlerSyncStart(log, ctxServer, svc))
	r.Path("/syncs/current").Methods(http.MethodGet).HandlerFunc(GetHandlerSyncStatus(log, svc.Orchestrator))
	r.Path("/syncs/current/cancel").Methods(http.MethodPost).HandlerFunc(GetHandlerSyncCancel(log, svc.Orchestrator))
	r.Path("/analyze/{server}").Methods(http.MethodGet).HandlerFunc(GetHandlerAnalyze(log, a))
	if svc.Metrics != nil {
		r.Path("/metrics").Handler(svc.Metrics.Handler())
	}
	return r
}

// runServer starts a web server and returns:
// 1) the server; and
// 2) a channel that can be used to stop the web server
func runServer(log logger.Logger, web *WebServerConfig, r *mux.Router) (*http.Server, chan string) {
	chanStopServer := make(chan string, 1)
	r.HandleFunc("/stop", GetHandlerStopServer(log, chanStopServer)).Methods(http.MethodPost)
	// Configure HTTP server.
	addr := web.Addr
	if addr == nil {
		addr = net.IPv4zero
	}
	srv := &http.Server{ // Good practice to set timeouts to avoid Slowloris attacks.
		Addr:         fmt.Sprintf("%v:%v", addr, web.Port),
		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      r, // supply our instance of gorilla/mux.
	}
	// Run HTTP server non-blocking.
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			if err == http.ErrServerClosed {
				log.Info(err)
			} else {
				log.Error(err)
				chanStopServer <- "error"
			}
		}
	}()
	scheme := web.Scheme
	if scheme == "" {
		scheme = "http"
	}
	log.Info(fmt.Sprintf("Listening on %v://%v:%v", strings.ToLower(scheme), addr, web.Port))
	return srv, chanStopServer
}

func waitForServer(log logger.Logger, srv *http.Server, chanStopServer chan string, svc *SyncService, cancelSessions context.CancelFunc) error {
	// Block & wait for shutdown signals.
	// Accept graceful shutdowns when quit via SIGINT (Ctrl+C)
	// SIGKILL, SIGQUIT or SIGTERM (Ctrl+\) will not be caught.
	chanOS := make(chan os.Signal, 1)
	signal.Notify(chanOS, os.Interrupt) // request signals be sent to chanOS.
	defer signal.Stop(chanOS)
	select {
	case <-chanStopServer:
	case <-chanOS:
	}
	fmt.Println() // print new line char for clean looking CLI.
	log.Info("Shutting down web server...")
	wait := time.Second * 15
	// Cancel the running sync first and wait for it to clean up.
	cancelSessions()
	if s := svc.Orchestrator.Current(); s != nil && s.Running() {
		log.Info("Waiting for sync ", s.ID, " to stop")
		select {
		case <-s.Done():
		case <-time.After(wait):
			log.Warn("sync ", s.ID, " did not stop within ", wait)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), wait) // create a timeout to wait for.
	defer cancel()
	return srv.Shutdown(ctx) // Doesn't block if no connections, but will otherwise wait until the timeout deadline.
}
