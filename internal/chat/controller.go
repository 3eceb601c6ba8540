// Package chat is the client side of a conversation: the HTTP client for
// the chat endpoint, the controller that owns the message log, and the
// speech input/output adapters.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"talkbot/internal/format"
)

// Role identifies who produced a log entry.
type Role string

const (
	RoleUser  Role = "user"
	RoleBot   Role = "bot"
	RoleError Role = "error"
)

// Message is one log entry. Seq increases with every append, so entries
// from overlapping sends can still be ordered.
type Message struct {
	Seq  uint64
	Role Role
	// Text is plain text for user and error entries and formatted markup
	// for bot entries.
	Text string
}

// Poster sends one message to the chat endpoint.
type Poster interface {
	Post(ctx context.Context, in Request) (string, error)
}

// Notifier shows a transient, user-visible notice that is not part of the
// conversation.
type Notifier interface {
	Notify(msg string)
}

// NotifyFunc adapts a function to Notifier.
type NotifyFunc func(msg string)

func (f NotifyFunc) Notify(msg string) { f(msg) }

// Animator is toggled while a reply is being spoken.
type Animator interface {
	SetSpeaking(speaking bool)
}

// Config wires a Controller. Only Poster is required.
type Config struct {
	Poster Poster
	// SessionID is sent with every message; a random one is generated
	// when empty.
	SessionID string
	// SystemPrompt, when set, is prepended to every outgoing message.
	SystemPrompt string
	// AutoSpeak speaks each reply as it arrives.
	AutoSpeak bool

	Recognizer  Recognizer
	Synthesizer Synthesizer
	Notifier    Notifier
	Animator    Animator
	Logger      *slog.Logger
}

// Controller owns the chat log and the last reply.
type Controller struct {
	poster       Poster
	sessionID    string
	systemPrompt string
	autoSpeak    bool
	recognizer   Recognizer
	synthesizer  Synthesizer
	notifier     Notifier
	animator     Animator
	logger       *slog.Logger

	mu        sync.Mutex
	seq       uint64
	log       []Message
	lastReply string
	inFlight  int
	speaking  int // SpeakLastReply calls still running
}

func NewController(cfg Config) (*Controller, error) {
	if cfg.Poster == nil {
		return nil, errors.New("chat: poster must not be nil")
	}
	c := &Controller{
		poster:       cfg.Poster,
		sessionID:    strings.TrimSpace(cfg.SessionID),
		systemPrompt: strings.TrimSpace(cfg.SystemPrompt),
		autoSpeak:    cfg.AutoSpeak,
		recognizer:   cfg.Recognizer,
		synthesizer:  cfg.Synthesizer,
		notifier:     cfg.Notifier,
		animator:     cfg.Animator,
		logger:       cfg.Logger,
	}
	if c.sessionID == "" {
		c.sessionID = uuid.NewString()
	}
	if c.recognizer == nil {
		c.recognizer = Unsupported{}
	}
	if c.synthesizer == nil {
		c.synthesizer = Unsupported{}
	}
	if c.notifier == nil {
		c.notifier = NotifyFunc(func(string) {})
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

func (c *Controller) SessionID() string {
	return c.sessionID
}

// Send posts text and records the exchange. Blank text is ignored. A
// failed request appends a single error entry and returns the error;
// earlier entries and the last reply are left as they were.
func (c *Controller) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	c.mu.Lock()
	c.appendLocked(RoleUser, "You: "+text)
	c.inFlight++
	c.mu.Unlock()

	reply, err := c.poster.Post(ctx, Request{
		Message:   c.outgoing(text),
		SessionID: c.sessionID,
	})

	c.mu.Lock()
	c.inFlight--
	if err != nil {
		c.appendLocked(RoleError, "Error: "+reason(err))
		c.mu.Unlock()
		c.logger.Warn("chat request failed", "session_id", c.sessionID, "err", err)
		return err
	}
	c.appendLocked(RoleBot, format.Reply(reply))
	c.lastReply = reply
	c.mu.Unlock()

	if c.autoSpeak {
		if err := c.SpeakLastReply(ctx); err != nil {
			c.logger.Warn("speak reply failed", "err", err)
		}
	}
	return nil
}

func (c *Controller) outgoing(text string) string {
	if c.systemPrompt == "" {
		return text
	}
	return c.systemPrompt + "\n\nUser: " + text
}

func (c *Controller) appendLocked(role Role, text string) {
	c.seq++
	c.log = append(c.log, Message{Seq: c.seq, Role: role, Text: text})
}

// Transcribe records one utterance and sends the transcript exactly as if
// it had been typed. Missing speech support is a notice, not an error.
func (c *Controller) Transcribe(ctx context.Context) error {
	text, err := c.recognizer.Recognize(ctx)
	switch {
	case errors.Is(err, ErrUnsupported):
		c.notifier.Notify("Speech recognition is not supported here. Please type your message.")
		return nil
	case errors.Is(err, ErrNoSpeech):
		c.notifier.Notify("No speech detected. Please try again.")
		return nil
	case err != nil:
		c.notifier.Notify("Speech recognition failed: " + reason(err))
		return err
	}
	return c.Send(ctx, text)
}

// SpeakLastReply reads the last reply aloud with the avatar animating.
func (c *Controller) SpeakLastReply(ctx context.Context) error {
	last := c.LastReply()
	if last == "" {
		c.notifier.Notify("Nothing to read yet.")
		return nil
	}
	text := format.PlainText(format.Body(last))
	if text == "" {
		return nil
	}

	c.startSpeaking()
	defer c.stopSpeaking()
	err := c.synthesizer.Speak(ctx, text)
	if errors.Is(err, ErrUnsupported) {
		c.notifier.Notify("Text-to-speech is not supported here.")
		return nil
	}
	return err
}

// startSpeaking and stopSpeaking keep the animator speaking until the last
// overlapping SpeakLastReply returns. A superseded playback returns early
// while the newer one is still talking.
func (c *Controller) startSpeaking() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.speaking++
	if c.animator != nil && c.speaking == 1 {
		c.animator.SetSpeaking(true)
	}
}

func (c *Controller) stopSpeaking() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.speaking--
	if c.animator != nil && c.speaking == 0 {
		c.animator.SetSpeaking(false)
	}
}

// Log returns a copy of the entries in append order.
func (c *Controller) Log() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.log))
	copy(out, c.log)
	return out
}

func (c *Controller) LastReply() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastReply
}

// Busy reports whether a send is waiting for its reply.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight > 0
}

// reason renders err for the chat log.
func reason(err error) string {
	var status *HTTPStatusError
	if errors.As(err, &status) {
		if msg := errorMessage(status.Body); msg != "" {
			return msg
		}
		return fmt.Sprintf("HTTP error! status: %d", status.StatusCode)
	}
	var endpoint *EndpointError
	if errors.As(err, &endpoint) {
		return endpoint.Message
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	return err.Error()
}
