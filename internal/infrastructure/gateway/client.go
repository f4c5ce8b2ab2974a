package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fleetyard/regsync/internal/core/domain"
	"github.com/fleetyard/regsync/internal/infrastructure/filename"
)

// The waste-tracking gateway authenticates through a dedicated signature
// header; the invoicing gateway follows the bearer convention. The two must
// not be unified.
const signatureHeader = "Agid-JWT-Signature"

// Endpoints carries the per-environment, per-channel base URLs. Explicit
// configuration instead of module constants so tests can point the client at
// an httptest server.
type Endpoints struct {
	WasteDemoBaseURL   string
	WasteProdBaseURL   string
	InvoiceDemoBaseURL string
	InvoiceProdBaseURL string
}

// Client is the low-level adapter for the remote regulatory API. It never
// retries on its own; retry policy belongs to the caller.
type Client struct {
	endpoints  Endpoints
	httpClient *http.Client
	// pollClient never follows redirects: a 303 is an answer, not a hop.
	pollClient *http.Client

	codec           *filename.Codec
	invoiceTestMode bool
	invoiceSeq      atomic.Int64
}

func New(endpoints Endpoints, timeout time.Duration, codec *filename.Codec, invoiceTestMode bool) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoints: Endpoints{
			WasteDemoBaseURL:   strings.TrimRight(endpoints.WasteDemoBaseURL, "/"),
			WasteProdBaseURL:   strings.TrimRight(endpoints.WasteProdBaseURL, "/"),
			InvoiceDemoBaseURL: strings.TrimRight(endpoints.InvoiceDemoBaseURL, "/"),
			InvoiceProdBaseURL: strings.TrimRight(endpoints.InvoiceProdBaseURL, "/"),
		},
		httpClient: &http.Client{Timeout: timeout},
		pollClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		codec:           codec,
		invoiceTestMode: invoiceTestMode,
	}
}

func (c *Client) Submit(ctx context.Context, token string, doc *domain.Document) (*domain.SubmitReceipt, error) {
	switch doc.Channel {
	case domain.ChannelWaste:
		return c.submitWaste(ctx, token, doc)
	case domain.ChannelInvoice:
		return c.submitInvoice(ctx, token, doc)
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "gateway submit",
			fmt.Errorf("unknown channel %q", doc.Channel))
	}
}

func (c *Client) submitWaste(ctx context.Context, token string, doc *domain.Document) (*domain.SubmitReceipt, error) {
	var resp struct {
		TransactionID string `json:"transaction_id"`
	}
	err := c.doJSON(ctx, c.httpClient, http.MethodPost,
		c.wasteBase(doc.Environment)+"/documents",
		map[string]string{signatureHeader: token},
		map[string]any{
			"document_id": doc.ID,
			"payload":     doc.Payload,
		},
		&resp, "submit")
	if err != nil {
		return nil, classify("submit", err)
	}
	return &domain.SubmitReceipt{TransactionID: resp.TransactionID}, nil
}

func (c *Client) submitInvoice(ctx context.Context, token string, doc *domain.Document) (*domain.SubmitReceipt, error) {
	// The counter wraps inside the channel's range; clamping is only a
	// boundary guard and must never assign the same sequence repeatedly.
	seq := filename.WrapSequence(int(c.invoiceSeq.Add(1)), c.invoiceTestMode)
	name := c.codec.Encode(filename.TypeInvoiceOut, seq, c.invoiceTestMode, time.Now())

	var resp struct {
		RemoteID     string `json:"remote_id"`
		RemoteStatus string `json:"remote_status"`
		Queued       bool   `json:"queued"`
	}
	err := c.doJSON(ctx, c.httpClient, http.MethodPost,
		c.invoiceBase(doc.Environment)+"/invoices",
		map[string]string{"Authorization": "Bearer " + token},
		map[string]any{
			"filename":    name,
			"document_id": doc.ID,
			"payload":     doc.Payload,
		},
		&resp, "submit")
	if err != nil {
		return nil, classify("submit", err)
	}
	if resp.Queued {
		// Queued for pickup: the gateway hands the identifier back later
		// through the transaction flow.
		return &domain.SubmitReceipt{TransactionID: resp.RemoteID}, nil
	}
	return &domain.SubmitReceipt{RemoteID: resp.RemoteID, RemoteStatus: resp.RemoteStatus}, nil
}

// PollStatus implements the non-blocking pull contract bit-exactly:
// 200 = still processing, 303 = completed with the result location carried in
// the header, anything else is a protocol violation. Each channel is polled
// at its own gateway with its own auth convention: a queued invoice
// submission must never hit the waste endpoints.
func (c *Client) PollStatus(ctx context.Context, token string, env domain.Environment, channel domain.Channel, transactionID string) (*domain.PollResult, error) {
	base, err := c.channelBase(env, channel, "poll")
	if err != nil {
		return nil, err
	}
	url := base + "/transactions/" + transactionID + "/status"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create poll request: %w", err)
	}
	for k, v := range c.authHeaders(channel, token) {
		req.Header.Set(k, v)
	}

	resp, err := c.pollClient.Do(req)
	if err != nil {
		return nil, classify("poll", fmt.Errorf("gateway poll request: %w", err))
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return &domain.PollResult{Completed: false}, nil
	case http.StatusSeeOther:
		return &domain.PollResult{Completed: true, ResultRef: resp.Header.Get("Location")}, nil
	default:
		return nil, classify("poll", newStatusError("poll", resp))
	}
}

func (c *Client) FetchResult(ctx context.Context, token string, env domain.Environment, channel domain.Channel, transactionID, resultRef string) (*domain.ResultDescriptor, error) {
	url := resultRef
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		base, err := c.channelBase(env, channel, "fetch result")
		if err != nil {
			return nil, err
		}
		url = base + "/" + strings.TrimLeft(resultRef, "/")
	}

	var resp struct {
		TransactionID string `json:"transaction_id"`
		Items         []struct {
			DocumentID   string `json:"document_id"`
			RemoteStatus string `json:"remote_status"`
			RemoteID     string `json:"remote_id"`
		} `json:"items"`
	}
	err := c.doJSON(ctx, c.httpClient, http.MethodGet, url,
		c.authHeaders(channel, token), nil, &resp, "fetch result")
	if err != nil {
		return nil, classify("fetch result", err)
	}

	desc := &domain.ResultDescriptor{TransactionID: resp.TransactionID}
	if desc.TransactionID == "" {
		desc.TransactionID = transactionID
	}
	for _, item := range resp.Items {
		desc.Items = append(desc.Items, domain.ResultItem{
			DocumentID: item.DocumentID,
			Outcome: domain.RemoteOutcome{
				RemoteStatus: item.RemoteStatus,
				RemoteID:     item.RemoteID,
			},
		})
	}
	return desc, nil
}

func (c *Client) Cancel(ctx context.Context, token string, env domain.Environment, channel domain.Channel, remoteID, reason string) error {
	var url string
	switch channel {
	case domain.ChannelWaste:
		url = c.wasteBase(env) + "/documents/" + remoteID + "/cancel"
	case domain.ChannelInvoice:
		url = c.invoiceBase(env) + "/invoices/" + remoteID + "/cancel"
	default:
		return domain.WrapError(domain.ErrInvalidInput, "gateway cancel",
			fmt.Errorf("unknown channel %q", channel))
	}

	err := c.doJSON(ctx, c.httpClient, http.MethodPost, url, c.authHeaders(channel, token),
		map[string]string{"reason": reason}, nil, "cancel")
	if err != nil {
		return classify("cancel", err)
	}
	return nil
}

func (c *Client) channelBase(env domain.Environment, channel domain.Channel, operation string) (string, error) {
	switch channel {
	case domain.ChannelWaste:
		return c.wasteBase(env), nil
	case domain.ChannelInvoice:
		return c.invoiceBase(env), nil
	default:
		return "", domain.WrapError(domain.ErrInvalidInput, "gateway "+operation,
			fmt.Errorf("unknown channel %q", channel))
	}
}

func (c *Client) authHeaders(channel domain.Channel, token string) map[string]string {
	if channel == domain.ChannelInvoice {
		return map[string]string{"Authorization": "Bearer " + token}
	}
	return map[string]string{signatureHeader: token}
}

func (c *Client) wasteBase(env domain.Environment) string {
	if env == domain.EnvProd {
		return c.endpoints.WasteProdBaseURL
	}
	return c.endpoints.WasteDemoBaseURL
}

func (c *Client) invoiceBase(env domain.Environment) string {
	if env == domain.EnvProd {
		return c.endpoints.InvoiceProdBaseURL
	}
	return c.endpoints.InvoiceDemoBaseURL
}
