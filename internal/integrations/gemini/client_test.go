package gemini

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"talkbot/internal/domain"
)

type fakeGetter struct {
	val   string
	err   error
	calls int
}

func (f *fakeGetter) GetParameter(_ context.Context, name string) (string, error) {
	f.calls++
	if name != "/talkbot/gemini-token" {
		return "", errors.New("unexpected parameter " + name)
	}
	return f.val, f.err
}

type fakeGenerator struct {
	resp     *genai.GenerateContentResponse
	err      error
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	calls    int
}

func (f *fakeGenerator) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	f.model = model
	f.contents = contents
	f.config = config
	return f.resp, f.err
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{Role: roleModel}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

func newTestClient(t *testing.T, gen *fakeGenerator, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithAPIKey("key"), withGenerator(gen)}, opts...)
	c, err := NewClient(nil, "", opts...)
	require.NoError(t, err)
	return c
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(nil, "/talkbot")
	require.ErrorContains(t, err, "getter")

	_, err = NewClient(&fakeGetter{}, " ")
	require.ErrorContains(t, err, "prefix")

	_, err = NewClient(nil, "", WithAPIKey("key"))
	require.NoError(t, err)
}

func TestClient_KeyFromParamStoreOnce(t *testing.T) {
	g := &fakeGetter{val: `{"token":"g-key"}`}
	gen := &fakeGenerator{resp: textResponse("hi")}
	var keys []string
	c, err := NewClient(g, "/talkbot/")
	require.NoError(t, err)
	c.newGenerator = func(_ context.Context, key string) (generator, error) {
		keys = append(keys, key)
		return gen, nil
	}

	for range 3 {
		_, err := c.Chat(context.Background(), DefaultModel, []domain.ChatMessage{{Role: domain.RoleUser, Content: "hello"}})
		require.NoError(t, err)
	}
	require.Equal(t, 1, g.calls)
	require.Equal(t, []string{"g-key"}, keys)
	require.Equal(t, 3, gen.calls)
}

func TestClient_KeyErrorIsSticky(t *testing.T) {
	g := &fakeGetter{err: errors.New("ssm unavailable")}
	c, err := NewClient(g, "/talkbot")
	require.NoError(t, err)

	_, err = c.Chat(context.Background(), DefaultModel, []domain.ChatMessage{{Role: domain.RoleUser, Content: "hello"}})
	require.ErrorContains(t, err, "ssm unavailable")
	_, err = c.Chat(context.Background(), DefaultModel, []domain.ChatMessage{{Role: domain.RoleUser, Content: "hello"}})
	require.Error(t, err)
	require.Equal(t, 1, g.calls)
}

// ---------------------------------------------------------------------------
// Chat
// ---------------------------------------------------------------------------

func TestClient_Chat_MapsRoles(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse("Hello ", "there")}
	c := newTestClient(t, gen, WithTemperature(0.5))

	reply, err := c.Chat(context.Background(), "gemini-test", []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: "Be kind."},
		{Role: domain.RoleUser, Content: "hi"},
		{Role: domain.RoleAssistant, Content: "hello"},
		{Role: domain.RoleUser, Content: "   "},
		{Role: domain.RoleSystem, Content: "Be brief."},
		{Role: domain.RoleUser, Content: "how are you?"},
	})
	require.NoError(t, err)
	require.Equal(t, "Hello there", reply)
	require.Equal(t, "gemini-test", gen.model)

	require.Len(t, gen.contents, 3)
	require.Equal(t, roleUser, gen.contents[0].Role)
	require.Equal(t, roleModel, gen.contents[1].Role)
	require.Equal(t, "how are you?", gen.contents[2].Parts[0].Text)

	require.NotNil(t, gen.config.SystemInstruction)
	require.Equal(t, "Be kind.\n\nBe brief.", gen.config.SystemInstruction.Parts[0].Text)
	require.NotNil(t, gen.config.Temperature)
	require.InDelta(t, 0.5, *gen.config.Temperature, 1e-6)
}

func TestClient_Chat_Validation(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse("x")}
	c := newTestClient(t, gen)

	_, err := c.Chat(context.Background(), " ", []domain.ChatMessage{{Role: domain.RoleUser, Content: "hi"}})
	require.ErrorContains(t, err, "model")

	_, err = c.Chat(context.Background(), DefaultModel, []domain.ChatMessage{{Role: domain.RoleSystem, Content: "only system"}})
	require.ErrorContains(t, err, "no user")
	require.Zero(t, gen.calls)
}

func TestClient_Chat_ResponseShapes(t *testing.T) {
	cases := []struct {
		name    string
		resp    *genai.GenerateContentResponse
		want    string
		wantErr string
	}{
		{name: "nil", resp: nil, wantErr: "empty response"},
		{name: "no candidates", resp: &genai.GenerateContentResponse{}, wantErr: "no candidates"},
		{
			name: "blocked",
			resp: &genai.GenerateContentResponse{PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: "SAFETY"}},
			wantErr: "prompt blocked: SAFETY",
		},
		{name: "no content", resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}, want: ""},
		{
			name: "thoughts skipped",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{
				{Text: "thinking...", Thought: true},
				{Text: " answer "},
			}}}}},
			want: "answer",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, &fakeGenerator{resp: tc.resp})
			got, err := c.Chat(context.Background(), DefaultModel, []domain.ChatMessage{{Role: domain.RoleUser, Content: "hi"}})
			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestClient_Chat_APIErrorCarriesStatus(t *testing.T) {
	gen := &fakeGenerator{err: genai.APIError{Code: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED", Message: "quota"}}
	c := newTestClient(t, gen)

	_, err := c.Chat(context.Background(), DefaultModel, []domain.ChatMessage{{Role: domain.RoleUser, Content: "hi"}})
	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusTooManyRequests, statusErr.HTTPStatusCode())
	require.Contains(t, err.Error(), "RESOURCE_EXHAUSTED")

	gen.err = errors.New("connection reset")
	_, err = c.Chat(context.Background(), DefaultModel, []domain.ChatMessage{{Role: domain.RoleUser, Content: "hi"}})
	require.ErrorContains(t, err, "connection reset")
	require.False(t, errors.As(err, &statusErr))
}

// ---------------------------------------------------------------------------
// Transcribe
// ---------------------------------------------------------------------------

func TestClient_Transcribe(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse(" what time is it \n")}
	c := newTestClient(t, gen, WithTranscribeModel("gemini-audio"), WithAudioMIMEType("audio/ogg"))

	text, err := c.Transcribe(context.Background(), strings.NewReader("RIFF....WAVE"))
	require.NoError(t, err)
	require.Equal(t, "what time is it", text)
	require.Equal(t, "gemini-audio", gen.model)
	require.Nil(t, gen.config)

	require.Len(t, gen.contents, 1)
	parts := gen.contents[0].Parts
	require.Len(t, parts, 2)
	require.Equal(t, transcribePrompt, parts[0].Text)
	require.Equal(t, "audio/ogg", parts[1].InlineData.MIMEType)
	require.Equal(t, []byte("RIFF....WAVE"), parts[1].InlineData.Data)
}

func TestClient_Transcribe_Errors(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse("x")}
	c := newTestClient(t, gen)

	_, err := c.Transcribe(context.Background(), nil)
	require.Error(t, err)

	text, err := c.Transcribe(context.Background(), strings.NewReader(""))
	require.NoError(t, err)
	require.Empty(t, text)

	_, err = c.Transcribe(context.Background(), strings.NewReader(strings.Repeat("a", maxAudioBytes+1)))
	require.ErrorContains(t, err, "exceeds")
	require.Zero(t, gen.calls)
}
