package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"google.golang.org/genai"
)

// DefaultOllamaURL is used when no base URL is configured.
const DefaultOllamaURL = "http://localhost:11434"

// OllamaModel streams steps from an Ollama server.
type OllamaModel struct {
	client *api.Client
	model  string
}

// authTransport adds Authorization header to HTTP requests.
type authTransport struct {
	base   http.RoundTripper
	apiKey string
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	reqClone := req.Clone(req.Context())
	reqClone.Header.Set("Authorization", "Bearer "+t.apiKey)
	return t.base.RoundTrip(reqClone)
}

// NewOllamaModel creates an Ollama client. apiKey is optional and sent as a
// bearer token for remote servers.
func NewOllamaModel(baseURL, apiKey, model string) (*OllamaModel, error) {
	if model == "" {
		return nil, fmt.Errorf("llm: model name is required")
	}
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("llm: invalid ollama url: %w", err)
	}

	httpClient := &http.Client{Timeout: 10 * time.Minute}
	if apiKey != "" {
		httpClient.Transport = &authTransport{base: http.DefaultTransport, apiKey: apiKey}
	}
	return &OllamaModel{client: api.NewClient(u, httpClient), model: model}, nil
}

// Name returns the model name.
func (o *OllamaModel) Name() string {
	return o.model
}

// GenerateStream starts a streamed chat request. It returns once the server
// has produced its first response or failed.
func (o *OllamaModel) GenerateStream(ctx context.Context, req StepRequest) (<-chan Chunk, error) {
	chatReq := &api.ChatRequest{
		Model:    o.model,
		Messages: toOllamaMessages(req.System, req.Contents),
		Stream:   Ptr(true),
		Tools:    toOllamaTools(req.Tools),
		Options: map[string]any{
			"temperature": req.Temperature,
		},
	}
	if req.MaxOutputTokens > 0 {
		chatReq.Options["num_predict"] = req.MaxOutputTokens
	}

	chunks := make(chan Chunk, 10)
	// started receives exactly one value: nil on the first response, or the
	// error when the request fails before any response arrived.
	started := make(chan error, 1)

	go func() {
		defer close(chunks)
		begun := false
		err := o.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
			if !begun {
				begun = true
				started <- nil
			}
			var chunk Chunk
			chunk.Text = resp.Message.Content
			for _, tc := range resp.Message.ToolCalls {
				chunk.Calls = append(chunk.Calls, fromOllamaToolCall(tc))
			}
			if resp.Done {
				chunk.FinishReason = ollamaFinishReason(resp.DoneReason)
			}
			select {
			case chunks <- chunk:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if !begun {
			started <- err
			return
		}
		if err != nil {
			select {
			case chunks <- Chunk{Err: err}:
			case <-ctx.Done():
			}
		}
	}()

	select {
	case err := <-started:
		if err != nil {
			return nil, err
		}
		return chunks, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func ollamaFinishReason(reason string) genai.FinishReason {
	if reason == "length" {
		return genai.FinishReasonMaxTokens
	}
	return genai.FinishReasonStop
}

// toOllamaMessages converts contents to Ollama chat messages. Function
// responses become "tool" messages.
func toOllamaMessages(system string, contents []*genai.Content) []api.Message {
	messages := make([]api.Message, 0, len(contents)+1)
	if system != "" {
		messages = append(messages, api.Message{Role: "system", Content: system})
	}
	for _, content := range contents {
		msg := api.Message{Role: "user"}
		if content.Role == genai.RoleModel {
			msg.Role = "assistant"
		}

		var textParts []string
		var toolResults []api.Message
		for _, part := range content.Parts {
			switch {
			case part.FunctionResponse != nil:
				toolResults = append(toolResults, api.Message{
					Role:       "tool",
					Content:    functionResponseText(part.FunctionResponse.Response),
					ToolName:   part.FunctionResponse.Name,
					ToolCallID: part.FunctionResponse.ID,
				})
			case part.FunctionCall != nil:
				msg.ToolCalls = append(msg.ToolCalls, toOllamaToolCall(part.FunctionCall))
			case part.InlineData != nil:
				msg.Images = append(msg.Images, api.ImageData(part.InlineData.Data))
			case part.Text != "":
				textParts = append(textParts, part.Text)
			}
		}
		msg.Content = strings.Join(textParts, "\n")

		if msg.Content != "" || len(msg.ToolCalls) > 0 || len(msg.Images) > 0 {
			messages = append(messages, msg)
		}
		messages = append(messages, toolResults...)
	}
	return messages
}

// functionResponseText flattens a tool result map into message text.
func functionResponseText(resp map[string]any) string {
	if errStr, ok := resp["error"].(string); ok && errStr != "" {
		return "Error: " + errStr
	}
	if s, ok := resp["content"].(string); ok && s != "" {
		return s
	}
	if data, ok := resp["data"]; ok {
		if b, err := json.Marshal(data); err == nil {
			return string(b)
		}
	}
	return "Operation completed"
}

// toOllamaTools converts function declarations to Ollama tools.
func toOllamaTools(decls []*genai.FunctionDeclaration) []api.Tool {
	tools := make([]api.Tool, 0, len(decls))
	for _, decl := range decls {
		params := api.ToolFunctionParameters{
			Type:       "object",
			Properties: api.NewToolPropertiesMap(),
		}
		if decl.Parameters != nil {
			if len(decl.Parameters.Required) > 0 {
				params.Required = decl.Parameters.Required
			}
			for name, propSchema := range decl.Parameters.Properties {
				prop := api.ToolProperty{Description: propSchema.Description}
				if propSchema.Type != "" {
					prop.Type = api.PropertyType{strings.ToLower(string(propSchema.Type))}
				}
				if len(propSchema.Enum) > 0 {
					enumVals := make([]any, len(propSchema.Enum))
					for i, v := range propSchema.Enum {
						enumVals[i] = v
					}
					prop.Enum = enumVals
				}
				params.Properties.Set(name, prop)
			}
		}
		tools = append(tools, api.Tool{
			Type: "function",
			Function: api.ToolFunction{
				Name:        decl.Name,
				Description: decl.Description,
				Parameters:  params,
			},
		})
	}
	return tools
}

// fromOllamaToolCall converts an Ollama tool call. Servers that send no id
// leave it empty for the runner to assign.
func fromOllamaToolCall(tc api.ToolCall) *genai.FunctionCall {
	return &genai.FunctionCall{
		ID:   tc.ID,
		Name: tc.Function.Name,
		Args: tc.Function.Arguments.ToMap(),
	}
}

func toOllamaToolCall(fc *genai.FunctionCall) api.ToolCall {
	args := api.NewToolCallFunctionArguments()
	for k, v := range fc.Args {
		args.Set(k, v)
	}
	return api.ToolCall{
		ID: fc.ID,
		Function: api.ToolCallFunction{
			Name:      fc.Name,
			Arguments: args,
		},
	}
}
