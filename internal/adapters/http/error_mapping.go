package httpadapter

import (
	"net/http"

	"github.com/fleetyard/regsync/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrDocumentNotFound),
		domain.IsKind(err, domain.ErrTransactionNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrResultNotReady),
		domain.IsKind(err, domain.ErrInconsistentRemoteState):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrCertificateNotFound),
		domain.IsKind(err, domain.ErrCertificateExpired),
		domain.IsKind(err, domain.ErrRemoteRejected):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
