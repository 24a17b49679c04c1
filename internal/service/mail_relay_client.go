package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"contact_form/internal/domain"
	apperrors "contact_form/pkg/errors"
)

// MailRelay: внешний сервис доставки писем (граница сети)
type MailRelay interface {
	Send(ctx context.Context, payload domain.SubmissionPayload) error
}

// MailRelayClient отправляет форму в FormSubmit-совместимый endpoint
type MailRelayClient struct {
	endpoint     string
	hiddenFields map[string]string
	httpClient   *http.Client
}

func NewMailRelayClient(endpoint string, timeout time.Duration, hiddenFields map[string]string) *MailRelayClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &MailRelayClient{
		endpoint:     endpoint,
		hiddenFields: hiddenFields,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// relayResponse: ответ relay; success приходит строкой или булевым
type relayResponse struct {
	Success json.RawMessage `json:"success"`
	Message string          `json:"message"`
}

func (r relayResponse) rejected() bool {
	v := strings.Trim(strings.ToLower(string(r.Success)), `"`)
	return v == "false"
}

func (c *MailRelayClient) Send(ctx context.Context, payload domain.SubmissionPayload) error {
	body, err := json.Marshal(c.buildBody(payload))
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: failed to send request: %v", apperrors.ErrRelayUnavailable, err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: relay returned status %d: %s", apperrors.ErrRelayUnavailable, resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	var response relayResponse
	if err := json.Unmarshal(bodyBytes, &response); err == nil && response.rejected() {
		return fmt.Errorf("%w: relay rejected submission: %s", apperrors.ErrRelayUnavailable, response.Message)
	}

	return nil
}

// buildBody: скрытые поля окружения не могут перезаписать поля формы
func (c *MailRelayClient) buildBody(payload domain.SubmissionPayload) map[string]string {
	body := make(map[string]string, len(c.hiddenFields)+4)
	for k, v := range c.hiddenFields {
		body[k] = v
	}
	body["name"] = payload.Name
	body["email"] = payload.Email
	body["subject"] = payload.Subject
	body["message"] = payload.Message
	return body
}
