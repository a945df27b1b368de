package generation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIClient_Generate_SendsSeedOnTheWire(t *testing.T) {
	var captured chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("content-type", "application/json")
		_ = json.NewEncoder(w).Encode(chatCompletionResponse{
			Choices: []struct {
				Message chatMessage `json:"message"`
			}{{Message: chatMessage{Content: "ok"}}},
		})
	}))
	defer server.Close()

	client := &OpenAIClient{apiKey: "test-key", model: "gpt-4o", baseURL: server.URL, name: "openai"}
	_, err := client.Generate(context.Background(), Request{Query: "write a function", Temperature: 0.4, Seed: 12345})
	require.NoError(t, err)
	assert.EqualValues(t, 12345, captured.Seed)
}

func TestGeminiClient_Generate_SendsSeedOnTheWire(t *testing.T) {
	var captured geminiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("content-type", "application/json")
		_ = json.NewEncoder(w).Encode(geminiResponse{
			Candidates: []struct {
				Content geminiContent `json:"content"`
			}{{Content: geminiContent{Parts: []geminiPart{{Text: "ok"}}}}},
		})
	}))
	defer server.Close()

	client := &GeminiClient{apiKey: "test-key", model: "gemini-2.0-flash", baseURL: server.URL}

	_, err := client.Generate(context.Background(), Request{Query: "write a function", Temperature: 0.4, Seed: 98765})
	require.NoError(t, err)
	assert.EqualValues(t, 98765, captured.GenerationConfig.Seed)
}
