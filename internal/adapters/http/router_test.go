package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fleetyard/regsync/internal/core/domain"
	"github.com/fleetyard/regsync/internal/core/ports"
	"github.com/fleetyard/regsync/internal/observability/metrics"
)

type submitterFake struct {
	result *ports.SubmissionResult
	err    error
}

func (f *submitterFake) Submit(context.Context, string) (*ports.SubmissionResult, error) {
	return f.result, f.err
}

type checkerFake struct {
	status *ports.TransactionStatus
	err    error
}

func (f *checkerFake) CheckStatus(context.Context, string) (*ports.TransactionStatus, error) {
	return f.status, f.err
}

type resultsFake struct {
	report *ports.ReconcileReport
	err    error
}

func (f *resultsFake) ProcessResult(context.Context, string) (*ports.ReconcileReport, error) {
	return f.report, f.err
}

type cancelerFake struct {
	doc *domain.Document
	err error
}

func (f *cancelerFake) Cancel(context.Context, string, string) (*domain.Document, error) {
	return f.doc, f.err
}

type docStoreFake struct {
	doc *domain.Document
	err error
}

func (f *docStoreFake) GetByID(context.Context, string) (*domain.Document, error) {
	return f.doc, f.err
}
func (f *docStoreFake) ClaimForTransmission(context.Context, string) (bool, error) {
	return false, errors.New("not implemented")
}
func (f *docStoreFake) ReleaseClaim(context.Context, string) (bool, error) {
	return false, errors.New("not implemented")
}
func (f *docStoreFake) MarkSynced(context.Context, string, domain.DocumentStatus, string, string) (bool, error) {
	return false, errors.New("not implemented")
}
func (f *docStoreFake) MarkSyncError(context.Context, string, string) (bool, error) {
	return false, errors.New("not implemented")
}
func (f *docStoreFake) MarkCancelledLocally(context.Context, string) (bool, error) {
	return false, errors.New("not implemented")
}
func (f *docStoreFake) MarkCancelledRemote(context.Context, string, string, string) (bool, error) {
	return false, errors.New("not implemented")
}

type routerFixture struct {
	submitter *submitterFake
	checker   *checkerFake
	results   *resultsFake
	canceler  *cancelerFake
	docs      *docStoreFake
}

func newTestHandler(f routerFixture) http.Handler {
	return NewRouter(
		f.submitter, f.checker, f.results, f.canceler, f.docs,
		metrics.NewHTTPServerMetrics("test"),
		0, 0,
	).Handler()
}

func emptyFixture() routerFixture {
	return routerFixture{
		submitter: &submitterFake{},
		checker:   &checkerFake{},
		results:   &resultsFake{},
		canceler:  &cancelerFake{},
		docs:      &docStoreFake{},
	}
}

func TestSubmitAsyncPathReturnsAccepted(t *testing.T) {
	f := emptyFixture()
	f.submitter.result = &ports.SubmissionResult{
		Document:    &domain.Document{ID: "doc-1", Channel: domain.ChannelWaste, SyncStatus: domain.SyncInTransmission},
		Transaction: &domain.Transaction{ID: "tx-1", State: domain.TxSubmitted},
	}
	handler := newTestHandler(f)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/documents/doc-1/submit", nil))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var out ports.SubmissionResult
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if out.Transaction == nil || out.Transaction.ID != "tx-1" {
		t.Fatalf("expected transaction in response, got %+v", out)
	}
}

func TestSubmitSynchronousPathReturnsOK(t *testing.T) {
	f := emptyFixture()
	f.submitter.result = &ports.SubmissionResult{
		Document: &domain.Document{ID: "doc-1", Channel: domain.ChannelInvoice, SyncStatus: domain.SyncSynced},
	}
	handler := newTestHandler(f)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/documents/doc-1/submit", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestGetDocumentNotFoundMapsTo404(t *testing.T) {
	f := emptyFixture()
	f.docs.err = domain.WrapError(domain.ErrDocumentNotFound, "get document", errors.New("missing"))
	handler := newTestHandler(f)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/documents/doc-404", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCheckStatusReturnsTransactionState(t *testing.T) {
	f := emptyFixture()
	f.checker.status = &ports.TransactionStatus{
		TransactionID: "tx-1", State: domain.TxPolling, PollAttempts: 3,
	}
	handler := newTestHandler(f)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/transactions/tx-1/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var out ports.TransactionStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if out.State != domain.TxPolling || out.PollAttempts != 3 {
		t.Fatalf("unexpected status %+v", out)
	}
}

func TestProcessResultPartialFailureReturnsMultiStatus(t *testing.T) {
	f := emptyFixture()
	f.results.report = &ports.ReconcileReport{
		TransactionID: "tx-1",
		Applied:       []string{"doc-1"},
		Failed:        []string{"doc-2"},
	}
	f.results.err = domain.WrapError(domain.ErrInvalidInput, "reconcile outcome", errors.New("boom"))
	handler := newTestHandler(f)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/transactions/tx-1/result", nil))

	if rec.Code != http.StatusMultiStatus {
		t.Fatalf("expected 207, got %d", rec.Code)
	}
}

func TestProcessResultNotReadyMapsTo409(t *testing.T) {
	f := emptyFixture()
	f.results.err = domain.WrapError(domain.ErrResultNotReady, "process result", errors.New("state polling"))
	handler := newTestHandler(f)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/transactions/tx-1/result", nil))

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestCancelRejectsWrongMethod(t *testing.T) {
	handler := newTestHandler(emptyFixture())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/documents/doc-1/cancel", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestTemporaryGatewayFailureMapsTo503(t *testing.T) {
	f := emptyFixture()
	f.submitter.err = domain.WrapError(domain.ErrTemporary, "gateway submit", errors.New("503"))
	handler := newTestHandler(f)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/documents/doc-1/submit", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestHealthzBypassesContractValidation(t *testing.T) {
	handler := newTestHandler(emptyFixture())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestEveryResponseCarriesRequestID(t *testing.T) {
	handler := newTestHandler(emptyFixture())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected generated request id")
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "caller-supplied")
	handler.ServeHTTP(rec, req)
	if rec.Header().Get("X-Request-Id") != "caller-supplied" {
		t.Fatalf("expected caller request id echoed, got %q", rec.Header().Get("X-Request-Id"))
	}
}
