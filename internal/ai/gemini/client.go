package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"expense_api/internal/config"
	"expense_api/internal/logger"
)

// Client talks to a Gemini model through its OpenAI-compatible
// chat-completions endpoint. The oracle is treated as unreliable and possibly
// slow; every failure is returned to the caller rather than retried here.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient builds an AI client from configuration.
func NewClient(cfg config.AIConfig, opts ...Option) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("ai api key is empty")
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gemini-2.5-flash"
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Message is one turn of a conversation handed to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatCompletionRequest struct {
	Model       string                  `json:"model"`
	Messages    []chatCompletionMessage `json:"messages"`
	Temperature float64                 `json:"temperature"`
	Stream      bool                    `json:"stream"`
}

// chatCompletionMessage carries either plain string content or multimodal
// parts, depending on what the request needs.
type chatCompletionMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ReceiptFields is the loosely-typed extraction payload the model returns
// for a receipt document. Amount arrives as a string regardless of whether
// the model produced a JSON number or a quoted value.
type ReceiptFields struct {
	Title       string
	Category    string
	Amount      string
	Description string
	Merchant    string
}

const extractionPrompt = `Analyze the following receipt and extract the expense details.
Provide the output in a clean JSON format. Do not include the markdown ` + "```json" + ` wrapper.
The JSON object must have a single key "expenses" with this structure:
{"expenses": {"title": "string", "category": "string (e.g. Food, Travel, Office Supplies)", "amount": "float", "description": "string", "merchant": "string"}}`

// ExtractReceipt sends a receipt document to the model and returns the raw
// extracted fields. Images and PDFs travel as inline data URLs; anything else
// is treated as UTF-8 text.
func (c *Client) ExtractReceipt(ctx context.Context, document []byte, mimeType string) (*ReceiptFields, error) {
	if len(document) == 0 {
		return nil, fmt.Errorf("empty document")
	}

	var userContent any
	if strings.HasPrefix(mimeType, "image/") || mimeType == "application/pdf" {
		dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(document))
		userContent = []contentPart{
			{Type: "text", Text: extractionPrompt},
			{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
		}
	} else {
		userContent = extractionPrompt + "\n\nReceipt content:\n" + string(document)
	}

	payload := chatCompletionRequest{
		Model: c.model,
		Messages: []chatCompletionMessage{
			{Role: "user", Content: userContent},
		},
		Temperature: 0,
	}

	content, err := c.complete(ctx, payload)
	if err != nil {
		return nil, err
	}

	fields, err := parseReceiptFromContent(content)
	if err != nil {
		return nil, err
	}
	return fields, nil
}

// ChatReply generates an assistant reply grounded by the given system prompt
// and conversation history.
func (c *Client) ChatReply(ctx context.Context, systemPrompt string, history []Message, userMessage string) (string, error) {
	messages := make([]chatCompletionMessage, 0, len(history)+2)
	messages = append(messages, chatCompletionMessage{Role: "system", Content: systemPrompt})
	for _, m := range history {
		messages = append(messages, chatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, chatCompletionMessage{Role: "user", Content: userMessage})

	payload := chatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.7,
	}

	content, err := c.complete(ctx, payload)
	if err != nil {
		return "", err
	}
	// The model tends to decorate with markdown emphasis; strip it for
	// plain-text clients, as the original assistant did.
	return strings.ReplaceAll(content, "*", ""), nil
}

func (c *Client) complete(ctx context.Context, payload chatCompletionRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal ai request failed: %w", err)
	}

	endpoint := strings.TrimRight(c.baseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create ai request failed: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request ai api failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read ai response failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		logger.L().Warnf("AI response: status=%d body=%s", resp.StatusCode, truncate(string(data), 512))
		return "", fmt.Errorf("ai http error: status=%d", resp.StatusCode)
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(data, &completion); err != nil {
		return "", fmt.Errorf("decode ai response failed: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("ai response has no choices")
	}

	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}

// receiptPayload tolerates the model quoting or not quoting the amount.
type receiptPayload struct {
	Expenses struct {
		Title       string          `json:"title"`
		Category    string          `json:"category"`
		Amount      json.RawMessage `json:"amount"`
		Description string          `json:"description"`
		Merchant    string          `json:"merchant"`
	} `json:"expenses"`
}

// parseReceiptFromContent decodes the model output, stripping markdown code
// fences the model sometimes wraps around JSON despite instructions.
func parseReceiptFromContent(content string) (*ReceiptFields, error) {
	trimmed := stripCodeFence(content)
	if trimmed == "" {
		return nil, fmt.Errorf("ai returned empty extraction payload")
	}

	var payload receiptPayload
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		return nil, fmt.Errorf("decode ai receipt payload failed: %w", err)
	}

	return &ReceiptFields{
		Title:       strings.TrimSpace(payload.Expenses.Title),
		Category:    strings.TrimSpace(payload.Expenses.Category),
		Amount:      rawToString(payload.Expenses.Amount),
		Description: strings.TrimSpace(payload.Expenses.Description),
		Merchant:    strings.TrimSpace(payload.Expenses.Merchant),
	}, nil
}

// rawToString renders a raw JSON value ("42.5" or "\"42.5\"") as a plain string.
func rawToString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(raw))
}

func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```JSON")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSpace(trimmed)
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		trimmed = strings.TrimSpace(trimmed)
	}
	return trimmed
}

func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return s[:limit]
}
