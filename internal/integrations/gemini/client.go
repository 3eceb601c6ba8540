// Package gemini is the default LLM backend. It answers chat turns and
// transcribes recorded speech through the Gemini API.
package gemini

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"google.golang.org/genai"

	"talkbot/internal/domain"
	"talkbot/internal/integrations/paramstore"
)

const (
	DefaultModel = "gemini-2.0-flash"

	defaultAudioMIME = "audio/wav"
	// Inline request data is capped by the API at 20 MB.
	maxAudioBytes    = 20 << 20
	transcribePrompt = "Transcribe the speech in this recording verbatim. Reply with the transcript only, or nothing if no one speaks."

	roleUser  = "user"
	roleModel = "model"
)

// generator is the slice of *genai.Models the client uses.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// HTTPStatusError is a non-2xx answer from the Gemini API.
type HTTPStatusError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("gemini: status %d %s: %s", e.StatusCode, e.Status, e.Message)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client answers chat turns and transcribes audio. Without WithAPIKey the
// key is read from SSM on first use.
type Client struct {
	getter          paramstore.Getter
	paramPrefix     string
	apiKey          string
	httpClient      *http.Client
	transcribeModel string
	audioMIME       string
	temperature     *float32
	newGenerator    func(ctx context.Context, apiKey string) (generator, error)

	initOnce sync.Once
	gen      generator
	initErr  error
}

type Option func(*Client)

// WithAPIKey uses key directly instead of reading it from SSM.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = strings.TrimSpace(key)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithTemperature(t float32) Option {
	return func(c *Client) {
		c.temperature = &t
	}
}

// WithTranscribeModel selects the model used by Transcribe.
func WithTranscribeModel(model string) Option {
	return func(c *Client) {
		c.transcribeModel = strings.TrimSpace(model)
	}
}

// WithAudioMIMEType sets the MIME type sent with recorded audio.
func WithAudioMIMEType(mime string) Option {
	return func(c *Client) {
		c.audioMIME = strings.TrimSpace(mime)
	}
}

func withGenerator(g generator) Option {
	return func(c *Client) {
		c.newGenerator = func(context.Context, string) (generator, error) { return g, nil }
	}
}

// NewClient creates a client. ps and paramPrefix are required unless an API
// key is supplied with WithAPIKey.
func NewClient(ps paramstore.Getter, paramPrefix string, opts ...Option) (*Client, error) {
	c := &Client{
		getter:          ps,
		paramPrefix:     strings.TrimRight(strings.TrimSpace(paramPrefix), "/"),
		transcribeModel: DefaultModel,
		audioMIME:       defaultAudioMIME,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.apiKey == "" {
		if c.getter == nil {
			return nil, errors.New("gemini: paramstore getter must not be nil")
		}
		if c.paramPrefix == "" {
			return nil, errors.New("gemini: parameter prefix must not be empty")
		}
	}
	if c.newGenerator == nil {
		c.newGenerator = c.genaiGenerator
	}
	return c, nil
}

func (c *Client) genaiGenerator(ctx context.Context, apiKey string) (generator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.httpClient,
	})
	if err != nil {
		return nil, err
	}
	return client.Models, nil
}

// models builds the genai client on first use and reuses it for the
// lifetime of the process.
func (c *Client) models(ctx context.Context) (generator, error) {
	c.initOnce.Do(func() {
		key := c.apiKey
		if key == "" {
			key, c.initErr = paramstore.GetToken(ctx, c.getter, c.paramPrefix+"/gemini-token")
			if c.initErr != nil {
				c.initErr = fmt.Errorf("gemini: %w", c.initErr)
				return
			}
		}
		c.gen, c.initErr = c.newGenerator(ctx, key)
		if c.initErr != nil {
			c.initErr = fmt.Errorf("gemini: create client: %w", c.initErr)
		}
	})
	return c.gen, c.initErr
}

// Chat returns the model's reply to messages. System messages become the
// system instruction; assistant messages are sent with the model role.
func (c *Client) Chat(ctx context.Context, model string, messages []domain.ChatMessage) (string, error) {
	if strings.TrimSpace(model) == "" {
		return "", errors.New("gemini: model must not be empty")
	}
	system, contents := toContents(messages)
	if len(contents) == 0 {
		return "", errors.New("gemini: no user or assistant messages to send")
	}

	cfg := &genai.GenerateContentConfig{Temperature: c.temperature}
	if system != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	return c.generate(ctx, model, contents, cfg)
}

// Transcribe returns the speech in audio as text. Silence, or a recording
// with no bytes at all, yields an empty string and no error.
func (c *Client) Transcribe(ctx context.Context, audio io.Reader) (string, error) {
	if audio == nil {
		return "", errors.New("gemini: audio reader must not be nil")
	}
	data, err := io.ReadAll(io.LimitReader(audio, maxAudioBytes+1))
	if err != nil {
		return "", fmt.Errorf("gemini: read audio: %w", err)
	}
	if len(data) == 0 {
		return "", nil
	}
	if len(data) > maxAudioBytes {
		return "", fmt.Errorf("gemini: audio exceeds %d bytes", maxAudioBytes)
	}

	contents := []*genai.Content{{
		Role: roleUser,
		Parts: []*genai.Part{
			{Text: transcribePrompt},
			{InlineData: &genai.Blob{MIMEType: c.audioMIME, Data: data}},
		},
	}}
	return c.generate(ctx, c.transcribeModel, contents, nil)
}

func (c *Client) generate(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
	gen, err := c.models(ctx)
	if err != nil {
		return "", err
	}
	resp, err := gen.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini: generate content: %w", statusError(err))
	}
	return responseText(resp)
}

func toContents(messages []domain.ChatMessage) (string, []*genai.Content) {
	var (
		system   []string
		contents []*genai.Content
	)
	for _, m := range messages {
		text := strings.TrimSpace(m.Content)
		if text == "" {
			continue
		}
		switch m.Role {
		case domain.RoleSystem:
			system = append(system, text)
		case domain.RoleAssistant:
			contents = append(contents, &genai.Content{Role: roleModel, Parts: []*genai.Part{{Text: text}}})
		default:
			contents = append(contents, &genai.Content{Role: roleUser, Parts: []*genai.Part{{Text: text}}})
		}
	}
	return strings.Join(system, "\n\n"), contents
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", errors.New("gemini: empty response")
	}
	if len(resp.Candidates) == 0 {
		if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
			return "", fmt.Errorf("gemini: prompt blocked: %s", fb.BlockReason)
		}
		return "", errors.New("gemini: no candidates in response")
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return "", nil
	}
	var b bytes.Buffer
	for _, p := range cand.Content.Parts {
		if p == nil || p.Thought {
			continue
		}
		b.WriteString(p.Text)
	}
	return strings.TrimSpace(b.String()), nil
}

// statusError turns the SDK's API error into an HTTPStatusError so callers
// can branch on the status code.
func statusError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &HTTPStatusError{StatusCode: apiErr.Code, Status: apiErr.Status, Message: apiErr.Message}
	}
	return err
}
