package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"talkbot/internal/avatar"
	"talkbot/internal/chat"
	"talkbot/internal/format"
	"talkbot/internal/integrations/gemini"
	"talkbot/internal/render"
)

var (
	userStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	botStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
)

var autoSpeak bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with TalkBot in the terminal",
	Long: `Start an interactive chat. Type a message and press enter. Commands:

  /speak         read the last reply aloud
  /listen        record a message and send the transcript
  /avatar <id>   switch avatar
  /quit          leave`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&autoSpeak, "speak", false, "Read every reply aloud")
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	sess, cleanup, err := openSession(cfg.IDToken, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	signInCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	id, err := ensureSignedIn(signInCtx, sess, cfg.IDToken != "")
	cancel()
	if err != nil {
		return err
	}

	client, err := chat.NewClient(cfg.Endpoint,
		chat.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		chat.WithTokenSource(chat.TokenFunc(sess.BearerToken)),
	)
	if err != nil {
		return err
	}

	cat, err := loadCatalog(catalogPath)
	if err != nil {
		return err
	}
	face, err := avatarSession(cat, cfg.Avatar)
	if err != nil {
		return err
	}

	ctrl, err := chat.NewController(chat.Config{
		Poster:       client,
		SessionID:    id.UID,
		SystemPrompt: cfg.SystemPrompt,
		AutoSpeak:    autoSpeak,
		Recognizer:   recognizer(),
		Synthesizer:  synthesizer(),
		Notifier: chat.NotifyFunc(func(msg string) {
			fmt.Fprintln(out, noticeStyle.Render(msg))
		}),
		Animator: face,
	})
	if err != nil {
		return err
	}

	p := face.Current()
	fmt.Fprintln(out, noticeStyle.Render(fmt.Sprintf("Hi %s! You are talking to %s %s. Type /quit to leave.", id.Name(), p.Icon, p.DisplayName)))
	return (&repl{ctrl: ctrl, face: face, out: out}).run(ctx, cmd.InOrStdin())
}

// synthesizer returns the configured text-to-speech command, or nil when
// it is not installed.
func synthesizer() chat.Synthesizer {
	s, err := chat.NewCommandSynthesizer(cfg.SpeechCommand)
	if err != nil {
		slog.Debug("speech output unavailable", "err", err)
		return nil
	}
	return s
}

// recognizer records with the configured command and transcribes with
// Gemini. Either one missing leaves speech input unsupported.
func recognizer() chat.Recognizer {
	if cfg.RecordCommand == "" || cfg.GeminiAPIKey == "" {
		slog.Debug("speech input unavailable", "record_command", cfg.RecordCommand != "", "gemini_key", cfg.GeminiAPIKey != "")
		return nil
	}
	dev, err := chat.NewCommandDevice(cfg.RecordCommand)
	if err != nil {
		slog.Debug("speech input unavailable", "err", err)
		return nil
	}
	transcriber, err := gemini.NewClient(nil, "", gemini.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		slog.Debug("speech input unavailable", "err", err)
		return nil
	}
	r, err := chat.NewDeviceRecognizer(dev, transcriber)
	if err != nil {
		slog.Debug("speech input unavailable", "err", err)
		return nil
	}
	return r
}

type controller interface {
	Send(ctx context.Context, text string) error
	Transcribe(ctx context.Context) error
	SpeakLastReply(ctx context.Context) error
	Log() []chat.Message
}

type repl struct {
	ctrl     controller
	face     *render.Session
	out      io.Writer
	printed  uint64
	echoUser bool // also print user entries, for messages that were not typed
}

func (r *repl) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(r.out, userStyle.Render("> "))
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if quit := r.handle(ctx, line); quit {
			return nil
		}
		r.flush()
	}
}

// handle runs one input line and reports whether the user asked to quit.
// Request failures are already in the log, so they are not returned.
func (r *repl) handle(ctx context.Context, line string) bool {
	cmd, arg, _ := strings.Cut(line, " ")
	switch cmd {
	case "/quit", "/exit":
		return true
	case "/speak":
		if err := r.ctrl.SpeakLastReply(ctx); err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintln(r.out, errorStyle.Render("Speech failed: "+err.Error()))
		}
	case "/listen":
		fmt.Fprintln(r.out, noticeStyle.Render("Listening..."))
		r.echoUser = true
		_ = r.ctrl.Transcribe(ctx)
	case "/avatar":
		r.switchAvatar(strings.TrimSpace(arg))
	default:
		_ = r.ctrl.Send(ctx, line)
	}
	return false
}

func (r *repl) switchAvatar(id string) {
	if r.face == nil {
		return
	}
	if id == "" {
		for _, p := range r.face.List() {
			fmt.Fprintf(r.out, "  %s %s\n", p.Icon, p.ID)
		}
		return
	}
	if err := r.face.SetCurrent(id); err != nil {
		if errors.Is(err, avatar.ErrUnknownAvatar) {
			fmt.Fprintln(r.out, errorStyle.Render("Unknown avatar "+id))
			return
		}
		fmt.Fprintln(r.out, errorStyle.Render(err.Error()))
		return
	}
	p := r.face.Current()
	fmt.Fprintln(r.out, noticeStyle.Render(fmt.Sprintf("Now talking to %s %s", p.Icon, p.DisplayName)))
}

// flush prints log entries not shown yet. User entries are skipped unless
// echoUser is set, since they were typed at the prompt.
func (r *repl) flush() {
	for _, m := range r.ctrl.Log() {
		if m.Seq <= r.printed {
			continue
		}
		r.printed = m.Seq
		switch m.Role {
		case chat.RoleUser:
			if r.echoUser {
				fmt.Fprintln(r.out, userStyle.Render(m.Text))
			}
		case chat.RoleBot:
			fmt.Fprintln(r.out, botStyle.Render(format.BotLabel+" "+format.PlainText(m.Text)))
		case chat.RoleError:
			fmt.Fprintln(r.out, errorStyle.Render(m.Text))
		}
	}
	r.echoUser = false
}
