package mailer

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/chung140204/TKPM-BTL-sub000/internal/config"
)

// RelayClient posts messages to an HTTP email relay.
type RelayClient struct {
	httpClient *resty.Client
	from       string
}

// NewRelayClient builds a relay client using the provided configuration values.
func NewRelayClient(cfg config.MailConfig) *RelayClient {
	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(cfg.RelayURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second)
	if cfg.RelayToken != "" {
		restyClient.SetAuthToken(cfg.RelayToken)
	}

	return &RelayClient{httpClient: restyClient, from: cfg.From}
}

type relayRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

type relayError struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// Send posts one message to the relay's /messages endpoint. Relay error
// bodies are decoded into the returned error.
func (c *RelayClient) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}

	apiErr := new(relayError)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(relayRequest{From: c.from, To: msg.To, Subject: msg.Subject, HTML: msg.Body}).
		SetError(apiErr).
		Post("/messages")
	if err != nil {
		return fmt.Errorf("send relay mail: %w", err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		code := resp.StatusCode()
		if apiErr.Error.Code != 0 {
			code = apiErr.Error.Code
		}
		return fmt.Errorf("mail relay error: code=%d, message=%s", code, apiErr.Error.Message)
	}
	return nil
}
