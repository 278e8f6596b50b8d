package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// PushProvider is the external push gateway collaborator. The core depends
// only on the success/failure outcome, not on the transport behind it.
type PushProvider interface {
	SendPush(ctx context.Context, destinationToken, title, body string, data map[string]string) error
}

// EmailProvider is the external transactional email gateway collaborator.
type EmailProvider interface {
	SendEmail(ctx context.Context, toAddress, subject, htmlBody, textBody string) error
}

// HTTPPushGateway posts notifications to a push relay endpoint.
type HTTPPushGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPPushGateway(baseURL, apiKey string) *HTTPPushGateway {
	return &HTTPPushGateway{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (g *HTTPPushGateway) SendPush(ctx context.Context, destinationToken, title, body string, data map[string]string) error {
	payload := map[string]interface{}{
		"token": destinationToken,
		"title": title,
		"body":  body,
		"data":  data,
	}
	return g.post(ctx, g.baseURL+"/v1/push", payload)
}

func (g *HTTPPushGateway) post(ctx context.Context, url string, payload interface{}) error {
	return postJSON(ctx, g.client, url, g.apiKey, payload)
}

// HTTPEmailGateway posts transactional mail to an email relay endpoint.
type HTTPEmailGateway struct {
	baseURL  string
	apiKey   string
	fromName string
	client   *http.Client
}

func NewHTTPEmailGateway(baseURL, apiKey, fromName string) *HTTPEmailGateway {
	return &HTTPEmailGateway{
		baseURL:  baseURL,
		apiKey:   apiKey,
		fromName: fromName,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (g *HTTPEmailGateway) SendEmail(ctx context.Context, toAddress, subject, htmlBody, textBody string) error {
	payload := map[string]interface{}{
		"to":        toAddress,
		"from_name": g.fromName,
		"subject":   subject,
		"html_body": htmlBody,
		"text_body": textBody,
	}
	return postJSON(ctx, g.client, g.baseURL+"/v1/send", g.apiKey, payload)
}

func postJSON(ctx context.Context, client *http.Client, url, apiKey string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}
	return nil
}
