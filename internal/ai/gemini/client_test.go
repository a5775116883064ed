package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"expense_api/internal/config"
)

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare json", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"uppercase fence", "```JSON\n{\"a\":1}\n```", `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  ```json\n{\"a\":1}\n```  ", `{"a":1}`},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripCodeFence(tt.input); got != tt.want {
				t.Errorf("stripCodeFence(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseReceiptFromContent(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		wantAmount string
		wantTitle  string
		wantErr    bool
	}{
		{
			name:       "quoted amount",
			content:    `{"expenses": {"title": "Lunch", "category": "Food", "amount": "42.50", "merchant": "Cafe"}}`,
			wantAmount: "42.50",
			wantTitle:  "Lunch",
		},
		{
			name:       "numeric amount",
			content:    `{"expenses": {"title": "Lunch", "category": "Food", "amount": 42.5}}`,
			wantAmount: "42.5",
			wantTitle:  "Lunch",
		},
		{
			name:       "fenced despite instructions",
			content:    "```json\n{\"expenses\": {\"title\": \"Taxi\", \"amount\": \"18\"}}\n```",
			wantAmount: "18",
			wantTitle:  "Taxi",
		},
		{
			name:    "not json",
			content: "I could not read this receipt.",
			wantErr: true,
		},
		{
			name:    "empty",
			content: "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields, err := parseReceiptFromContent(tt.content)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if fields.Amount != tt.wantAmount || fields.Title != tt.wantTitle {
				t.Errorf("fields = %+v, want amount %q title %q", fields, tt.wantAmount, tt.wantTitle)
			}
		})
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	if _, err := NewClient(config.AIConfig{}); err == nil {
		t.Fatal("expected an error for empty api key")
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(config.AIConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client, server
}

func completionBody(content string) string {
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

func TestExtractReceiptTextDocument(t *testing.T) {
	var gotAuth string
	var gotReq chatCompletionRequest

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionBody(`{"expenses": {"title": "Lunch", "category": "Food", "amount": "12.50"}}`)))
	})

	fields, err := client.ExtractReceipt(context.Background(), []byte("Cafe receipt\nTotal 12.50"), "text/plain")
	if err != nil {
		t.Fatalf("ExtractReceipt: %v", err)
	}
	if fields.Amount != "12.50" || fields.Category != "Food" {
		t.Errorf("fields = %+v", fields)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if len(gotReq.Messages) != 1 {
		t.Fatalf("sent %d messages, want 1", len(gotReq.Messages))
	}
	if gotReq.Temperature != 0 {
		t.Errorf("temperature = %v, want 0 for extraction", gotReq.Temperature)
	}
}

func TestExtractReceiptImageUsesDataURL(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			t.Errorf("decode request: %v", err)
		}
		messages := raw["messages"].([]any)
		content := messages[0].(map[string]any)["content"].([]any)
		if len(content) != 2 {
			t.Errorf("multimodal content has %d parts, want 2", len(content))
		}
		w.Write([]byte(completionBody(`{"expenses": {"title": "Taxi", "amount": 18}}`)))
	})

	fields, err := client.ExtractReceipt(context.Background(), []byte{0x89, 0x50, 0x4e, 0x47}, "image/png")
	if err != nil {
		t.Fatalf("ExtractReceipt: %v", err)
	}
	if fields.Amount != "18" {
		t.Errorf("amount = %q, want 18", fields.Amount)
	}
}

func TestExtractReceiptEmptyDocument(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for an empty document")
	})

	if _, err := client.ExtractReceipt(context.Background(), nil, "text/plain"); err == nil {
		t.Fatal("expected an error")
	}
}

func TestChatReplyStripsMarkdownEmphasis(t *testing.T) {
	var gotReq chatCompletionRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Write([]byte(completionBody("You spent **$42.50** on Food.")))
	})

	reply, err := client.ChatReply(context.Background(), "system prompt", []Message{
		{Role: "user", Content: "earlier question"},
		{Role: "assistant", Content: "earlier answer"},
	}, "how much on food?")
	if err != nil {
		t.Fatalf("ChatReply: %v", err)
	}
	if reply != "You spent $42.50 on Food." {
		t.Errorf("reply = %q", reply)
	}

	// system + 2 history + current user message
	if len(gotReq.Messages) != 4 {
		t.Errorf("sent %d messages, want 4", len(gotReq.Messages))
	}
	if gotReq.Messages[0].Role != "system" {
		t.Errorf("first message role = %q, want system", gotReq.Messages[0].Role)
	}
}

func TestChatReplyHTTPError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})

	if _, err := client.ChatReply(context.Background(), "p", nil, "hi"); err == nil {
		t.Fatal("expected an error")
	}
}
