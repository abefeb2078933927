package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/relloyd/dbcop/locality"
	"github.com/relloyd/dbcop/logger"
	"github.com/relloyd/dbcop/orchestrator"
)

type WebServerResponse uint32

const (
	Okay WebServerResponse = iota + 1
	Error
)

func (w WebServerResponse) MarshalJSON() ([]byte, error) {
	var retval string
	switch w {
	case Okay:
		retval = "ok"
	case Error:
		retval = "error"
	default:
		err := fmt.Errorf("unhandled WebServerResponse value in MarshalJSON() conversion")
		return nil, err
	}
	return json.Marshal(retval)
}

type ResponseSimple struct {
	ServerStatus WebServerResponse `json:"status"`
}

type ResponseSyncStart struct {
	Status    WebServerResponse `json:"status"`
	Message   string            `json:"message"`
	SessionId string            `json:"sessionId,omitempty"`
}

type ResponseSyncStatus struct {
	Status     WebServerResponse    `json:"status"`
	Message    string               `json:"message"`
	SyncStatus *orchestrator.Status `json:"sync,omitempty"`
}

type ResponseAnalyze struct {
	Status   WebServerResponse `json:"status"`
	Decision locality.Decision `json:"decision"`
	Report   string            `json:"report"`
}

// SyncStartRequest is the body of POST /syncs.
// Destructive work on a remote target only goes ahead with ConfirmRemote set.
type SyncStartRequest struct {
	SyncRequest
	ConfirmRemote bool `json:"confirmRemote"`
}

type Analyzer interface {
	Analyze(ctx context.Context, server string) locality.Report
}

func GetHandlerHealth(log logger.Logger) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		respond(log, w, ResponseSimple{ServerStatus: Okay})
	}
}

func GetHandlerStopServer(log logger.Logger, chanStop chan string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		chanStop <- "stop"
		log.Info("Stop signal sent")
		respond(log, w, ResponseSimple{ServerStatus: Okay})
	}
}

// GetHandlerSyncStart starts a sync from the JSON body.
// The session outlives the request so it is bound to ctxServer rather than the request context.
func GetHandlerSyncStart(log logger.Logger, ctxServer context.Context, svc *SyncService) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		req := SyncStartRequest{}
		if err := json.Unmarshal(b, &req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			logAndRespond(log, err, w, ResponseSyncStart{Status: Error, Message: fmt.Sprintf("error unmarshalling JSON: %v", err)})
			return
		}
		confirm := func(context.Context, locality.Decision) (bool, error) {
			return req.ConfirmRemote, nil
		}
		sess, err := svc.Start(ctxServer, req.SyncRequest, confirm)
		if err != nil {
			if errors.Is(err, orchestrator.ErrSessionActive) { // if we are busy...
				w.WriteHeader(http.StatusConflict)
			} else {
				w.WriteHeader(http.StatusBadRequest)
			}
			logAndRespond(log, err, w, ResponseSyncStart{Status: Error, Message: err.Error()})
			return
		}
		w.WriteHeader(http.StatusAccepted)
		respond(log, w, ResponseSyncStart{Status: Okay, Message: "sync started", SessionId: sess.ID})
	}
}

func GetHandlerSyncStatus(log logger.Logger, o *orchestrator.Orchestrator) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		s := o.Current()
		if s == nil {
			w.WriteHeader(http.StatusNotFound)
			respond(log, w, ResponseSyncStatus{Status: Error, Message: "no sync has been started"})
			return
		}
		st := s.Snapshot()
		w.WriteHeader(http.StatusOK)
		respond(log, w, ResponseSyncStatus{Status: Okay, SyncStatus: &st})
	}
}

func GetHandlerSyncCancel(log logger.Logger, o *orchestrator.Orchestrator) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		s := o.Current()
		if s == nil || !s.Running() {
			w.WriteHeader(http.StatusConflict)
			log.Info("HTTP request to cancel a sync when none is running.")
			respond(log, w, ResponseSyncStatus{Status: Error, Message: "no sync is running"})
			return
		}
		log.Info("Cancelling sync ", s.ID)
		s.Cancel()
		st := s.Snapshot()
		w.WriteHeader(http.StatusAccepted)
		respond(log, w, ResponseSyncStatus{Status: Okay, Message: "cancelling", SyncStatus: &st})
	}
}

func GetHandlerAnalyze(log logger.Logger, a Analyzer) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		server := mux.Vars(r)["server"]
		rpt := a.Analyze(r.Context(), server)
		w.WriteHeader(http.StatusOK)
		respond(log, w, ResponseAnalyze{Status: Okay, Decision: rpt.Decision, Report: rpt.String()})
	}
}

func logAndRespond(log logger.Logger, err error, w http.ResponseWriter, response interface{}) {
	log.Error(err)
	respond(log, w, response)
}

func respond(log logger.Logger, w http.ResponseWriter, response interface{}) {
	b, err := json.Marshal(response)
	if err != nil {
		log.Error("error marshalling web server response: ", err)
		return
	}
	if _, err = w.Write(b); err != nil {
		log.Error("error writing web server response: ", err)
	}
}
