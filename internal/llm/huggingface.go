package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultHuggingFaceModel is used when no model is configured
const DefaultHuggingFaceModel = "HuggingFaceH4/zephyr-7b-beta"

const defaultHuggingFaceURL = "https://api-inference.huggingface.co"

// HuggingFaceProvider calls the hosted inference API
type HuggingFaceProvider struct {
	baseURL    string
	httpClient *http.Client
	config     Config
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfParameters struct {
	MaxNewTokens   int     `json:"max_new_tokens,omitempty"`
	Temperature    float64 `json:"temperature,omitempty"`
	ReturnFullText bool    `json:"return_full_text"`
}

// NewHuggingFaceProvider creates a provider; the API key is optional
func NewHuggingFaceProvider(config Config) (*HuggingFaceProvider, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultHuggingFaceURL
	}
	return &HuggingFaceProvider{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: newHTTPClient(config, 60*time.Second),
		config:     config,
	}, nil
}

// Name returns the provider name
func (p *HuggingFaceProvider) Name() string {
	return "huggingface"
}

// Complete posts the prompt to the model endpoint
func (p *HuggingFaceProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := p.config.modelOr(req, DefaultHuggingFaceModel)

	prompt := req.Prompt
	if req.System != "" {
		prompt = req.System + "\n\n" + prompt
	}

	headers := map[string]string{}
	if p.config.APIKey != "" {
		headers["Authorization"] = "Bearer " + p.config.APIKey
	}

	body, err := postJSON(ctx, p.httpClient, p.baseURL+"/models/"+model, headers, hfRequest{
		Inputs: prompt,
		Parameters: hfParameters{
			MaxNewTokens: p.config.maxTokens(req),
			Temperature:  0.3,
		},
	}, hfErrorMessage)
	if err != nil {
		return nil, fmt.Errorf("huggingface API error: %w", err)
	}

	text, err := hfText(body)
	if err != nil {
		return nil, fmt.Errorf("huggingface API error: %w", err)
	}

	return &CompletionResponse{
		Text:       strings.TrimSpace(text),
		Model:      model,
		TokensUsed: (len(prompt) + len(text)) / 4,
	}, nil
}

func hfErrorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil {
		return e.Error
	}
	return ""
}

// hfText extracts the generated text from the response shapes the
// inference API uses for different task types. Unknown shapes are returned
// as raw JSON.
func hfText(body []byte) (string, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return "", errors.New("empty response")
	}

	if trimmed[0] == '[' {
		var list []struct {
			GeneratedText string `json:"generated_text"`
			SummaryText   string `json:"summary_text"`
		}
		if json.Unmarshal(trimmed, &list) == nil && len(list) > 0 {
			if list[0].GeneratedText != "" {
				return list[0].GeneratedText, nil
			}
			if list[0].SummaryText != "" {
				return list[0].SummaryText, nil
			}
		}
		return string(trimmed), nil
	}

	var obj struct {
		Error         string          `json:"error"`
		GeneratedText string          `json:"generated_text"`
		Data          json.RawMessage `json:"data"`
	}
	if json.Unmarshal(trimmed, &obj) == nil {
		switch {
		case obj.Error != "":
			return "", errors.New(obj.Error)
		case obj.GeneratedText != "":
			return obj.GeneratedText, nil
		case len(obj.Data) > 0:
			var s string
			if json.Unmarshal(obj.Data, &s) == nil {
				return s, nil
			}
			return string(obj.Data), nil
		}
	}
	return string(trimmed), nil
}
