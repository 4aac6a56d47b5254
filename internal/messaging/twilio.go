package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTwilioBaseURL = "https://api.twilio.com"

// Twilio sends messages through the Twilio REST API.
type Twilio struct {
	accountSID string
	authToken  string
	baseURL    string
	client     *http.Client
}

func NewTwilio(accountSID, authToken string, timeout time.Duration) *Twilio {
	return NewTwilioWithBaseURL(accountSID, authToken, timeout, defaultTwilioBaseURL)
}

func NewTwilioWithBaseURL(accountSID, authToken string, timeout time.Duration, baseURL string) *Twilio {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Twilio{
		accountSID: accountSID,
		authToken:  authToken,
		baseURL:    strings.TrimRight(baseURL, "/"),
		client:     &http.Client{Timeout: timeout},
	}
}

type twilioMessageResponse struct {
	SID     string `json:"sid"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  any    `json:"status"`
}

func (t *Twilio) Send(ctx context.Context, to, from, body string) (string, error) {
	form := url.Values{}
	form.Set("To", NormalizeWhatsApp(to))
	form.Set("From", NormalizeWhatsApp(from))
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", t.baseURL, t.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("twilio send: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(t.accountSID, t.authToken)

	res, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("twilio send: %w", err)
	}
	defer res.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("twilio send: %w", err)
	}

	var out twilioMessageResponse
	if err := json.Unmarshal(raw, &out); err != nil && res.StatusCode < 300 {
		return "", fmt.Errorf("twilio send: decode response: %w", err)
	}
	if res.StatusCode >= 300 {
		return "", &ProviderError{Status: res.StatusCode, Code: out.Code, Message: out.Message}
	}
	if out.SID == "" {
		return "", fmt.Errorf("twilio send: missing sid in response")
	}
	return out.SID, nil
}
