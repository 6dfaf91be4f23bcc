// Package telegram delivers the report through the Telegram Bot API.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"critreport/internal/domain"
)

const channelName = "telegram"

type Sender struct {
	APIURL string // e.g. https://api.telegram.org
	Token  string
	ChatID string
	Client *http.Client
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (s *Sender) Name() string { return channelName }

// Deliver posts text as a Markdown message. Every failure is returned as a
// *domain.DeliveryError.
func (s *Sender) Deliver(ctx context.Context, text string) error {
	if s.Token == "" || s.ChatID == "" {
		return &domain.DeliveryError{Channel: channelName, Err: fmt.Errorf("telegram_token and telegram_chat_id are required")}
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(s.APIURL, "/"), s.Token)
	form := url.Values{
		"chat_id":    {s.ChatID},
		"text":       {text},
		"parse_mode": {"Markdown"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return &domain.DeliveryError{Channel: channelName, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		// the URL carries the bot token
		return &domain.DeliveryError{Channel: channelName, Err: redact(err, s.Token)}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var parsed apiResponse
	_ = json.Unmarshal(body, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &domain.DeliveryError{Channel: channelName, Err: fmt.Errorf("status %d: %s", resp.StatusCode, describe(parsed, body))}
	}
	if !parsed.OK {
		return &domain.DeliveryError{Channel: channelName, Err: fmt.Errorf("api rejected message: %s", describe(parsed, body))}
	}
	return nil
}

func describe(r apiResponse, body []byte) string {
	if r.Description != "" {
		return r.Description
	}
	return strings.TrimSpace(string(body))
}

func redact(err error, token string) error {
	if token == "" {
		return err
	}
	return fmt.Errorf("%s", strings.ReplaceAll(err.Error(), token, "<token>"))
}
