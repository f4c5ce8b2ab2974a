package usecase

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fleetyard/regsync/internal/core/domain"
)

//go:embed statusmap.yaml
var defaultStatusMap []byte

// StatusMapper maps the gateway's remote status vocabulary onto the local
// document status enum. Anything outside the table maps to needs_review so
// nothing is dropped silently.
type StatusMapper struct {
	entries  map[string]domain.DocumentStatus
	fallback domain.DocumentStatus
}

type statusMapFile struct {
	Fallback string            `yaml:"fallback"`
	Statuses map[string]string `yaml:"statuses"`
}

func NewStatusMapper() (*StatusMapper, error) {
	return parseStatusMap(defaultStatusMap)
}

func parseStatusMap(raw []byte) (*StatusMapper, error) {
	var file statusMapFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse status map: %w", err)
	}
	if len(file.Statuses) == 0 {
		return nil, fmt.Errorf("status map has no entries")
	}

	entries := make(map[string]domain.DocumentStatus, len(file.Statuses))
	for remote, local := range file.Statuses {
		status, ok := knownStatus(local)
		if !ok {
			return nil, fmt.Errorf("status map entry %q points at unknown local status %q", remote, local)
		}
		entries[normalizeRemoteStatus(remote)] = status
	}

	fallback := domain.DocStatusNeedsReview
	if file.Fallback != "" {
		status, ok := knownStatus(file.Fallback)
		if !ok {
			return nil, fmt.Errorf("status map fallback %q is not a known local status", file.Fallback)
		}
		fallback = status
	}
	return &StatusMapper{entries: entries, fallback: fallback}, nil
}

// Map returns the local status for a remote one; ok is false when the remote
// status is outside the table and the conservative fallback was used.
func (m *StatusMapper) Map(remote string) (domain.DocumentStatus, bool) {
	status, ok := m.entries[normalizeRemoteStatus(remote)]
	if !ok {
		return m.fallback, false
	}
	return status, true
}

func normalizeRemoteStatus(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func knownStatus(raw string) (domain.DocumentStatus, bool) {
	switch domain.DocumentStatus(raw) {
	case domain.DocStatusDraft, domain.DocStatusSubmitted, domain.DocStatusAccepted,
		domain.DocStatusRejected, domain.DocStatusCancelled, domain.DocStatusNeedsReview:
		return domain.DocumentStatus(raw), true
	default:
		return "", false
	}
}
