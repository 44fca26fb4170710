package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Harvey-Wallace/BandSync-sub000/internal/domain"
)

const defaultRelayTimeout = 10 * time.Second

type relayRequest struct {
	To      string `json:"to"`
	ToName  string `json:"toName,omitempty"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// RelayTransport delivers mail through an HTTP relay endpoint (an
// internal mail gateway or a webhook-compatible test sink).
type RelayTransport struct {
	client   *resty.Client
	endpoint string
	sender   string
}

var _ MailTransport = (*RelayTransport)(nil)

func NewRelayTransport(endpoint, sender string) (*RelayTransport, error) {
	client := resty.New()
	client.SetTimeout(defaultRelayTimeout)
	client.SetRetryCount(0)

	return NewRelayTransportWithClient(endpoint, sender, client)
}

func NewRelayTransportWithClient(endpoint, sender string, client *resty.Client) (*RelayTransport, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("relay endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid relay endpoint: %w", err)
	}
	if strings.TrimSpace(sender) == "" {
		return nil, fmt.Errorf("sender address is required")
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultRelayTimeout)
	}
	client.SetRetryCount(0)

	return &RelayTransport{
		client:   client,
		endpoint: trimmedEndpoint,
		sender:   strings.TrimSpace(sender),
	}, nil
}

func (t *RelayTransport) Name() string { return "relay" }

func (t *RelayTransport) Send(ctx context.Context, recipient domain.Recipient, msg Message) error {
	if t == nil || t.client == nil {
		return fmt.Errorf("transport is not initialized")
	}
	if err := recipient.Validate(); err != nil {
		return &TransportError{
			Message:   "invalid recipient",
			Transient: false,
			Cause:     err,
		}
	}

	reqBody := relayRequest{
		To:      recipient.Address,
		ToName:  recipient.Name,
		From:    t.sender,
		Subject: msg.Subject,
		Body:    msg.Body,
	}

	response, err := t.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		Post(t.endpoint)
	if err != nil {
		// Request-level failures are connection resets, timeouts, or DNS
		// blips; all worth retrying on a later window evaluation.
		return &TransportError{
			Message:   "relay request failed",
			Transient: true,
			Cause:     err,
		}
	}
	if response == nil {
		return &TransportError{
			Message:   "relay returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return nil
	}

	return &TransportError{
		StatusCode: statusCode,
		Message:    relayErrorMessage(statusCode, strings.TrimSpace(response.String())),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}

// 429 and 5xx are provider hiccups worth retrying on a later window
// evaluation; other 4xx mean the message or address is bad.
func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func relayErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("relay returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}
