package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mkarpenko/hookrelay/internal/domain"
)

const (
	telegramAPIBaseURL     = "https://api.telegram.org"
	defaultTelegramTimeout = 10 * time.Second
)

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}

// TelegramProvider relays notifications to a single Telegram chat through the
// Bot API sendMessage method.
type TelegramProvider struct {
	client  *resty.Client
	baseURL string
	token   string
	chatID  string
}

func NewTelegramProvider(botToken string, chatID string) (*TelegramProvider, error) {
	client := resty.New()
	client.SetTimeout(defaultTelegramTimeout)
	client.SetRetryCount(0)

	return NewTelegramProviderWithClient(botToken, chatID, telegramAPIBaseURL, client)
}

func NewTelegramProviderWithClient(botToken string, chatID string, baseURL string, client *resty.Client) (*TelegramProvider, error) {
	if strings.TrimSpace(botToken) == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}
	if strings.TrimSpace(chatID) == "" {
		return nil, fmt.Errorf("telegram chat id is required")
	}
	trimmedBaseURL := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmedBaseURL == "" {
		return nil, fmt.Errorf("telegram api base url is required")
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultTelegramTimeout)
	}
	// Retrying is the delivery service's job; the HTTP client must not stack
	// its own attempts on top.
	client.SetRetryCount(0)

	return &TelegramProvider{
		client:  client,
		baseURL: trimmedBaseURL,
		token:   strings.TrimSpace(botToken),
		chatID:  strings.TrimSpace(chatID),
	}, nil
}

func (p *TelegramProvider) Send(ctx context.Context, notification domain.Notification) (*ProviderResponse, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}

	reqBody := sendMessageRequest{
		ChatID:                p.chatID,
		Text:                  FormatMessage(notification),
		DisableWebPagePreview: true,
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		Post(fmt.Sprintf("%s/bot%s/sendMessage", p.baseURL, p.token))
	if err != nil {
		return nil, &ProviderError{
			Message:   "telegram request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return nil, &ProviderError{
			Message:   "telegram returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	responseBody := strings.TrimSpace(response.String())

	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return nil, &ProviderError{
			StatusCode: statusCode,
			Message:    telegramErrorMessage(statusCode, responseBody),
			Transient:  isTransientHTTPStatus(statusCode),
		}
	}

	var parsed sendMessageResponse
	if unmarshalErr := json.Unmarshal(response.Body(), &parsed); unmarshalErr == nil && !parsed.OK {
		// A 2xx envelope with ok=false means Telegram rejected the call
		// itself; retrying the same payload will not help.
		return nil, &ProviderError{
			StatusCode: statusCode,
			Message:    fmt.Sprintf("telegram rejected message: %s", parsed.Description),
			Transient:  false,
		}
	}

	resp := &ProviderResponse{
		StatusCode: statusCode,
		Body:       responseBody,
	}
	if parsed.Result.MessageID > 0 {
		resp.MessageID = strconv.FormatInt(parsed.Result.MessageID, 10)
	}

	return resp, nil
}

// FormatMessage interpolates notification fields into the relayed text, e.g.
// "- MyApp [deployment]: Successfully deployed version 1.0.0".
func FormatMessage(n domain.Notification) string {
	var b strings.Builder
	b.WriteString("- ")
	b.WriteString(n.Service)
	if n.Event != "" {
		b.WriteString(" [")
		b.WriteString(n.Event)
		b.WriteString("]")
	}
	if n.Error {
		b.WriteString(" (error)")
	}
	b.WriteString(": ")
	b.WriteString(n.Message)
	return b.String()
}

// 429 and 5xx are worth retrying; any other 4xx is a configuration or
// content problem and will fail the same way next time.
func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func telegramErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("telegram returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}
