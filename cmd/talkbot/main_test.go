package main

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"talkbot/internal/auth"
	"talkbot/internal/avatar"
	"talkbot/internal/chat"
	redisclient "talkbot/internal/redis"
)

// ---------------------------------------------------------------------------
// avatars and render
// ---------------------------------------------------------------------------

func TestRenderAvatar_WritesPNG(t *testing.T) {
	cat, err := loadCatalog("")
	require.NoError(t, err)

	for _, id := range []string{"robot", "female_friendly"} {
		var buf bytes.Buffer
		err := renderAvatar(cat, renderOptions{id: id, size: 120, speaking: true, at: 150 * time.Millisecond}, &buf)
		require.NoError(t, err, id)

		img, err := png.Decode(&buf)
		require.NoError(t, err, id)
		require.Equal(t, 120, img.Bounds().Dx())
		require.Equal(t, 120, img.Bounds().Dy())
	}
}

func TestRenderAvatar_Errors(t *testing.T) {
	cat, err := loadCatalog("")
	require.NoError(t, err)

	err = renderAvatar(cat, renderOptions{id: "nope", size: 100}, &bytes.Buffer{})
	require.ErrorIs(t, err, avatar.ErrUnknownAvatar)

	err = renderAvatar(cat, renderOptions{id: "robot", size: 0}, &bytes.Buffer{})
	require.ErrorContains(t, err, "invalid size")

	var buf bytes.Buffer
	err = renderAvatar(cat, renderOptions{id: "robot", size: maxRenderSize + 1}, &buf)
	require.ErrorContains(t, err, "invalid size")
	require.Zero(t, buf.Len())
}

func TestLoadCatalog_MergesCustomFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[[stylized]]
id = "pirate"
name = "Pirate"
icon = "🏴"
`), 0o600))

	cat, err := loadCatalog(path)
	require.NoError(t, err)
	p, ok := cat.Lookup("pirate")
	require.True(t, ok)
	require.Equal(t, avatar.KindStylized, p.Kind)

	_, err = loadCatalog(filepath.Join(t.TempDir(), "missing.toml"))
	require.ErrorContains(t, err, "open catalogue")
}

func TestPrintAvatars_MarksCurrent(t *testing.T) {
	cat, err := loadCatalog("")
	require.NoError(t, err)

	var out bytes.Buffer
	printAvatars(&out, cat, "calm")
	text := out.String()
	require.Contains(t, text, "stylized")
	require.Contains(t, text, "human")
	require.Contains(t, text, "male_professional")

	var marked []string
	for _, line := range strings.Split(text, "\n") {
		if strings.Contains(line, "* ") {
			marked = append(marked, line)
		}
	}
	require.Len(t, marked, 1)
	require.Contains(t, marked[0], "calm")
}

// ---------------------------------------------------------------------------
// session
// ---------------------------------------------------------------------------

func newTestRedis(t *testing.T) redisclient.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := redisclient.NewClient(mr.Addr(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func mintToken(t *testing.T) string {
	t.Helper()
	issuer, err := auth.NewIssuer(auth.IssuerConfig{Secret: []byte("dev-secret")})
	require.NoError(t, err)
	tok, err := issuer.Issue(auth.Identity{UID: "uid-1", Email: "ada@example.com", DisplayName: "Ada"})
	require.NoError(t, err)
	return tok.Value
}

func TestEnsureSignedIn(t *testing.T) {
	ctx := context.Background()
	client := newTestRedis(t)

	sess, err := newSession(client, "tester", "", nil)
	require.NoError(t, err)
	_, err = ensureSignedIn(ctx, sess, false)
	require.ErrorIs(t, err, auth.ErrNotSignedIn)

	// First process signs in with the token and caches the session.
	sess, err = newSession(client, "tester", mintToken(t), nil)
	require.NoError(t, err)
	id, err := ensureSignedIn(ctx, sess, true)
	require.NoError(t, err)
	require.Equal(t, "uid-1", id.UID)

	// A later process restores it without a token.
	later, err := newSession(client, "tester", "", nil)
	require.NoError(t, err)
	id, err = ensureSignedIn(ctx, later, false)
	require.NoError(t, err)
	require.Equal(t, "Ada", id.Name())

	var out bytes.Buffer
	printIdentity(&out, later)
	require.Contains(t, out.String(), "ada@example.com")
	require.Contains(t, out.String(), "Token expires")

	require.NoError(t, later.SignOut(ctx))
	out.Reset()
	printIdentity(&out, later)
	require.Contains(t, out.String(), "Not signed in")
}

func TestEnsureSignedIn_RedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client, err := redisclient.NewClient(mr.Addr(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	sess, err := newSession(client, "tester", mintToken(t), nil)
	require.NoError(t, err)
	id, err := ensureSignedIn(context.Background(), sess, true)
	require.NoError(t, err)
	require.Equal(t, "uid-1", id.UID)

	bearer, err := sess.BearerToken(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, bearer)
}

func withConfig(t *testing.T, c config) {
	t.Helper()
	saved := cfg
	cfg = c
	t.Cleanup(func() { cfg = saved })
}

func TestPasswordSignIn(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		require.Equal(t, "/v1/accounts:signInWithPassword", r.URL.Path)
		_, _ = w.Write([]byte(`{"localId":"pw-1","email":"ada@example.com","idToken":"pw-token","expiresIn":"3600"}`))
	}))
	t.Cleanup(srv.Close)
	withConfig(t, config{IdentityAPIKey: "key", IdentityEndpoint: srv.URL + "/v1", Timeout: time.Second})

	ctx := context.Background()
	client := newTestRedis(t)

	short, err := newPasswordProvider(auth.Credentials{Email: "ada@example.com", Password: "12345"}, false)
	require.NoError(t, err)
	sess, err := newSession(client, "tester", "", map[string]auth.Provider{passwordProvider: short})
	require.NoError(t, err)
	_, err = sess.SignIn(ctx, passwordProvider)
	require.ErrorIs(t, err, auth.ErrWeakPassword)
	require.Zero(t, calls)

	good, err := newPasswordProvider(auth.Credentials{Email: "ada@example.com", Password: "123456"}, false)
	require.NoError(t, err)
	sess, err = newSession(client, "tester", "", map[string]auth.Provider{passwordProvider: good})
	require.NoError(t, err)
	id, err := sess.SignIn(ctx, passwordProvider)
	require.NoError(t, err)
	require.Equal(t, "pw-1", id.UID)
	require.Equal(t, 1, calls)

	// The cached session is restored by a later token-less process.
	later, err := newSession(client, "tester", "", nil)
	require.NoError(t, err)
	id, err = ensureSignedIn(ctx, later, false)
	require.NoError(t, err)
	require.Equal(t, "pw-1", id.UID)
}

func TestNewPasswordProvider_RequiresAPIKey(t *testing.T) {
	withConfig(t, config{})
	_, err := newPasswordProvider(auth.Credentials{Email: "a@example.com", Password: "123456"}, true)
	require.ErrorContains(t, err, "TALKBOT_IDENTITY_API_KEY")
}

func TestReadPassword(t *testing.T) {
	withConfig(t, config{})
	cmd := &cobra.Command{}
	cmd.SetIn(strings.NewReader("hunter22\r\nignored\n"))
	cmd.SetErr(&bytes.Buffer{})
	got, err := readPassword(cmd)
	require.NoError(t, err)
	require.Equal(t, "hunter22", got)

	withConfig(t, config{Password: "from-env"})
	got, err = readPassword(cmd)
	require.NoError(t, err)
	require.Equal(t, "from-env", got)
}

// ---------------------------------------------------------------------------
// repl
// ---------------------------------------------------------------------------

type stubController struct {
	log         []chat.Message
	sent        []string
	transcribed int
	spoken      int
	speakErr    error
}

func (s *stubController) append(role chat.Role, text string) {
	s.log = append(s.log, chat.Message{Seq: uint64(len(s.log) + 1), Role: role, Text: text})
}

func (s *stubController) Send(_ context.Context, text string) error {
	s.sent = append(s.sent, text)
	s.append(chat.RoleUser, "You: "+text)
	if text == "fail" {
		s.append(chat.RoleError, "Error: boom")
		return errors.New("boom")
	}
	s.append(chat.RoleBot, `<div class="bot-text"><strong>TalkBot:</strong> echo `+text+`</div>`)
	return nil
}

func (s *stubController) Transcribe(ctx context.Context) error {
	s.transcribed++
	return s.Send(ctx, "spoken words")
}

func (s *stubController) SpeakLastReply(context.Context) error {
	s.spoken++
	return s.speakErr
}

func (s *stubController) Log() []chat.Message { return s.log }

func TestRepl(t *testing.T) {
	cat, err := loadCatalog("")
	require.NoError(t, err)
	face, err := avatarSession(cat, "robot")
	require.NoError(t, err)

	ctrl := &stubController{speakErr: chat.ErrUnsupported}
	var out bytes.Buffer
	r := &repl{ctrl: ctrl, face: face, out: &out}

	in := strings.NewReader("hello\n\nfail\n/listen\n/speak\n/avatar calm\n/avatar nope\n/quit\nignored\n")
	require.NoError(t, r.run(context.Background(), in))

	require.Equal(t, []string{"hello", "fail", "spoken words"}, ctrl.sent)
	require.Equal(t, 1, ctrl.transcribed)
	require.Equal(t, 1, ctrl.spoken)
	require.Equal(t, "calm", face.Current().ID)

	text := out.String()
	require.Contains(t, text, "TalkBot: echo hello")
	require.Contains(t, text, "Error: boom")
	require.Contains(t, text, "You: spoken words")
	require.NotContains(t, text, "You: hello")
	require.Contains(t, text, "Speech failed")
	require.Contains(t, text, "Unknown avatar nope")
}

func TestRepl_EOF(t *testing.T) {
	ctrl := &stubController{}
	r := &repl{ctrl: ctrl, out: &bytes.Buffer{}}
	require.NoError(t, r.run(context.Background(), strings.NewReader("hi")))
	require.Equal(t, []string{"hi"}, ctrl.sent)
}
