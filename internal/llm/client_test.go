package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalogmind/catalog-engine/internal/domain"
	"github.com/catalogmind/catalog-engine/internal/observability"
)

func fastRetry() *RetryConfig {
	return &RetryConfig{
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
}

func completionResponse(text string) string {
	resp := Response{
		ID:      "gen-1",
		Choices: []Choice{{Message: ChoiceMessage{Role: "assistant", Content: text}}},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

func TestGenerateReturnsText(t *testing.T) {
	var gotAuth string
	var gotReq Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write([]byte(completionResponse("The drill costs $199.")))
	}))
	defer srv.Close()

	c := NewClient("test-key", "test-model", observability.Nop(),
		WithBaseURL(srv.URL), WithRetryConfig(fastRetry()))

	text, err := c.Generate(context.Background(), "how much is the drill?", nil)
	require.NoError(t, err)
	assert.Equal(t, "The drill costs $199.", text)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "test-model", gotReq.Model)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "how much is the drill?", gotReq.Messages[0].Content[0].Text)
}

func TestGenerateEncodesImages(t *testing.T) {
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "page_001.jpg")
	require.NoError(t, os.WriteFile(imgPath, []byte("jpegbytes"), 0o644))

	var gotReq Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write([]byte(completionResponse("ok")))
	}))
	defer srv.Close()

	c := NewClient("k", "m", observability.Nop(), WithBaseURL(srv.URL), WithRetryConfig(fastRetry()))

	_, err := c.Generate(context.Background(), "describe", []domain.PageImage{
		{PageNumber: 1, ImagePath: imgPath},
	})
	require.NoError(t, err)

	parts := gotReq.Messages[0].Content
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0].Type)
	assert.Equal(t, "image_url", parts[1].Type)
	assert.Contains(t, parts[1].ImageURL.URL, "data:image/jpeg;base64,")
}

func TestGenerateRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(completionResponse("recovered")))
	}))
	defer srv.Close()

	c := NewClient("k", "m", observability.Nop(), WithBaseURL(srv.URL), WithRetryConfig(fastRetry()))

	text, err := c.Generate(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Equal(t, "recovered", text)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGenerateDoesNotRetryClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient("bad-key", "m", observability.Nop(), WithBaseURL(srv.URL), WithRetryConfig(fastRetry()))

	_, err := c.Generate(context.Background(), "q", nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGenerateExhaustsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient("k", "m", observability.Nop(), WithBaseURL(srv.URL), WithRetryConfig(fastRetry()))

	_, err := c.Generate(context.Background(), "q", nil)
	require.Error(t, err)

	var derr *domain.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.ErrorTypeAPI, derr.Type)
}

func TestGenerateEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": "gen-1", "choices": []}`))
	}))
	defer srv.Close()

	c := NewClient("k", "m", observability.Nop(), WithBaseURL(srv.URL), WithRetryConfig(fastRetry()))

	_, err := c.Generate(context.Background(), "q", nil)
	require.Error(t, err)
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", `{"a": 1}`, `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"bare fence", "```\n[1, 2]\n```", "[1, 2]"},
		{"fence with surrounding whitespace", "  ```json\n{}\n```  ", "{}"},
		{"unterminated fence", "```json\n{\"a\": 1}", `{"a": 1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFences(tt.in))
		})
	}
}
