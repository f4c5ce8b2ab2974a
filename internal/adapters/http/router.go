package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/fleetyard/regsync/internal/core/domain"
	"github.com/fleetyard/regsync/internal/core/ports"
	"github.com/fleetyard/regsync/internal/observability/metrics"
)

type Router struct {
	submitter ports.DocumentSubmitter
	checker   ports.TransactionChecker
	results   ports.ResultProcessor
	canceler  ports.DocumentCanceler
	docs      ports.DocumentStore

	service string
	metrics *metrics.HTTPServerMetrics

	rateLimitRPS   int
	rateLimitBurst int
}

func NewRouter(
	submitter ports.DocumentSubmitter,
	checker ports.TransactionChecker,
	results ports.ResultProcessor,
	canceler ports.DocumentCanceler,
	docs ports.DocumentStore,
	serverMetrics *metrics.HTTPServerMetrics,
	rateLimitRPS, rateLimitBurst int,
) *Router {
	return &Router{
		submitter:      submitter,
		checker:        checker,
		results:        results,
		canceler:       canceler,
		docs:           docs,
		service:        "api",
		metrics:        serverMetrics,
		rateLimitRPS:   rateLimitRPS,
		rateLimitBurst: rateLimitBurst,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.Handle("/metrics", rt.metrics.Handler())
	mux.HandleFunc("/v1/documents/", rt.documentRoutes)
	mux.HandleFunc("/v1/transactions/", rt.transactionRoutes)

	handler := validationMiddleware(mux)
	handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst)
	handler = metricsMiddleware(handler, rt.service, rt.metrics)
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// documentRoutes dispatches /v1/documents/{id}[/submit|/cancel].
func (rt *Router) documentRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "document id is required")
		return
	}

	switch action {
	case "":
		rt.getDocument(w, r, id)
	case "submit":
		rt.submitDocument(w, r, id)
	case "cancel":
		rt.cancelDocument(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "unknown document operation")
	}
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	doc, err := rt.docs.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) submitDocument(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	result, err := rt.submitter.Submit(r.Context(), id)
	if err != nil {
		rt.metrics.ObserveSubmission(rt.service, "unknown", err)
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}
	rt.metrics.ObserveSubmission(rt.service, string(result.Document.Channel), nil)

	status := http.StatusOK
	if result.Transaction != nil {
		// Asynchronous path: the outcome arrives through polling.
		status = http.StatusAccepted
	}
	writeJSON(w, status, result)
}

func (rt *Router) cancelDocument(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
	}

	doc, err := rt.canceler.Cancel(r.Context(), id, req.Reason)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}
	mode := "remote"
	if doc.RemoteID == "" {
		mode = "local"
	}
	rt.metrics.ObserveCancellation(rt.service, mode)
	writeJSON(w, http.StatusOK, doc)
}

// transactionRoutes dispatches /v1/transactions/{id}/status|result.
func (rt *Router) transactionRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/transactions/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "transaction id is required")
		return
	}

	switch action {
	case "status":
		rt.checkStatus(w, r, id)
	case "result":
		rt.processResult(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "unknown transaction operation")
	}
}

func (rt *Router) checkStatus(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status, err := rt.checker.CheckStatus(r.Context(), id)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (rt *Router) processResult(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	report, err := rt.results.ProcessResult(r.Context(), id)
	if err != nil {
		if domain.IsKind(err, domain.ErrInconsistentRemoteState) {
			rt.metrics.ObserveReconciliationConflict(rt.service)
		}
		// A partial report is still useful to the caller.
		if report != nil && len(report.Applied) > 0 {
			writeJSON(w, http.StatusMultiStatus, map[string]any{
				"report": report,
				"error":  err.Error(),
			})
			return
		}
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
