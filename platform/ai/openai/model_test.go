package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

func collect(t *testing.T, m *ChatModel, req *model.LLMRequest) (*model.LLMResponse, error) {
	t.Helper()
	var (
		got    *model.LLMResponse
		gotErr error
	)
	for resp, err := range m.GenerateContent(context.Background(), req, false) {
		got, gotErr = resp, err
	}
	return got, gotErr
}

func userRequest(text string) *model.LLMRequest {
	return &model.LLMRequest{
		Contents: []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		Config:   &genai.GenerateContentConfig{Temperature: genai.Ptr[float32](0)},
	}
}

func TestGenerateContentSendsChatCompletion(t *testing.T) {
	var captured chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected authorization header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":" Medium - some fit. "}}]}`))
	}))
	defer srv.Close()

	m := NewModel(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1/"})
	resp, err := collect(t, m, userRequest("Prospect: {}"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if captured.Model != "gpt-3.5-turbo" {
		t.Fatalf("expected default model, got %q", captured.Model)
	}
	if captured.Temperature == nil || *captured.Temperature != 0 {
		t.Fatalf("expected temperature 0 to be sent")
	}
	if len(captured.Messages) != 1 || captured.Messages[0].Role != "user" || captured.Messages[0].Content != "Prospect: {}" {
		t.Fatalf("unexpected messages %+v", captured.Messages)
	}
	if resp.Content == nil || resp.Content.Parts[0].Text != " Medium - some fit. " {
		t.Fatalf("unexpected response %+v", resp.Content)
	}
	if resp.Content.Role != genai.RoleModel {
		t.Fatalf("expected model role, got %q", resp.Content.Role)
	}
}

func TestGenerateContentRequestModelOverridesDefault(t *testing.T) {
	var captured chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Low"}}]}`))
	}))
	defer srv.Close()

	m := NewModel(Config{BaseURL: srv.URL, Model: "gpt-4o-mini"})
	if m.Name() != "gpt-4o-mini" {
		t.Fatalf("unexpected name %q", m.Name())
	}
	req := userRequest("hi")
	req.Model = "gpt-4o"
	if _, err := collect(t, m, req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured.Model != "gpt-4o" {
		t.Fatalf("expected request model to win, got %q", captured.Model)
	}
}

func TestGenerateContentErrors(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
		target error
	}{
		"api error":     {http.StatusUnauthorized, `{"error":{"message":"invalid api key","type":"invalid_request_error"}}`, nil},
		"bad status":    {http.StatusBadGateway, `{}`, nil},
		"not json":      {http.StatusOK, `<html>`, nil},
		"empty choices": {http.StatusOK, `{"choices":[]}`, ErrEmptyChoices},
		"null content":  {http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":null}}]}`, ErrNullContent},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := collect(t, NewModel(Config{BaseURL: srv.URL}), userRequest("hi"))
			if err == nil {
				t.Fatalf("expected an error")
			}
			if tc.target != nil && !errors.Is(err, tc.target) {
				t.Fatalf("expected %v, got %v", tc.target, err)
			}
		})
	}
}

func TestConvertMessagesSkipsEmptyAndMapsRoles(t *testing.T) {
	msgs := convertMessages([]*genai.Content{
		nil,
		genai.NewContentFromText("   ", genai.RoleUser),
		genai.NewContentFromText("question", genai.RoleUser),
		genai.NewContentFromText("answer", genai.RoleModel),
	})
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %+v", msgs)
	}
	if msgs[0].Role != "user" || msgs[1].Role != "assistant" {
		t.Fatalf("unexpected roles %+v", msgs)
	}
}
