package classifier

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

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-1.5-flash"

	maxErrorBody = 2048
)

// GeminiOptions configures a Gemini client.
type GeminiOptions struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the instrumented default client.
	HTTPClient *http.Client
}

// Gemini classifies documents with the Gemini generateContent API.
type Gemini struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

var _ Classifier = (*Gemini)(nil)

// NewGemini constructs a Gemini classifier. The API key is sent in a header, never in the URL.
func NewGemini(opts GeminiOptions) (*Gemini, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key required")
	}
	model := strings.TrimPrefix(strings.TrimSpace(opts.Model), "models/")
	if model == "" {
		model = DefaultModel
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Gemini{apiKey: apiKey, model: model, baseURL: baseURL, httpClient: hc}, nil
}

// Classify sends the payload and a typed prompt to the model and decodes its reply.
func (g *Gemini) Classify(ctx context.Context, payload []byte, mimeType, expectedType string) (Verdict, error) {
	reqBody := generateRequest{
		Contents: []content{{
			Parts: []part{
				{Text: BuildPrompt(expectedType)},
				{InlineData: &inlineData{MIMEType: mimeType, Data: base64.StdEncoding.EncodeToString(payload)}},
			},
		}},
	}

	var resp generateResponse
	if err := g.doJSON(ctx, fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model), reqBody, &resp); err != nil {
		return Verdict{}, err
	}

	text := resp.text()
	if strings.TrimSpace(text) == "" {
		return Verdict{}, &Error{Kind: KindEmptyContent}
	}
	return ParseReply(text)
}

func (g *Gemini) doJSON(ctx context.Context, url string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &Error{Kind: KindTransport, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &Error{Kind: KindTransport, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return &Error{Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &Error{Kind: KindStatus, StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Kind: KindEmptyContent, Err: fmt.Errorf("decode envelope: %w", err)}
	}
	return nil
}

type inlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (r generateResponse) text() string {
	if len(r.Candidates) == 0 || len(r.Candidates[0].Content.Parts) == 0 {
		return ""
	}
	return r.Candidates[0].Content.Parts[0].Text
}
