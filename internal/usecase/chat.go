package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"talkbot/internal/domain"
)

const (
	defaultMaxContext    = 20
	defaultMaxMessageLen = 2000
	noReply              = "No reply"
)

type ParamGetter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// BatchParamGetter is implemented by getters that can read several
// parameters in one round trip; the service prefers it when available.
type BatchParamGetter interface {
	GetParameters(ctx context.Context, names ...string) (map[string]string, error)
}

type LLMClient interface {
	Chat(ctx context.Context, model string, messages []domain.ChatMessage) (string, error)
}

// Moderator is implemented by LLM clients that can screen input before it
// is answered.
type Moderator interface {
	Moderate(ctx context.Context, input string) (bool, error)
}

type StateStore interface {
	GetConversationTurnCount(ctx context.Context, userID string) (int, error)
	GetHistory(ctx context.Context, userID string, limit int) ([]domain.Message, error)
	SaveCompletedTurn(ctx context.Context, userID, text, reply string, turns int) error
	ClearHistory(ctx context.Context, userID string) (int, error)
}

// ChatConfig tunes a ChatService. Zero values select the defaults.
type ChatConfig struct {
	ParamPrefix     string
	MaxContextItems int
	MaxMessageLen   int
	// RatePerMinute caps requests per user; zero disables the limit.
	RatePerMinute int
	Logger        *slog.Logger
	Now           func() time.Time
}

// ChatService answers one user's messages, keeping the conversation in the
// state store keyed by the user's id.
type ChatService struct {
	params          ParamGetter
	llm             LLMClient
	state           StateStore
	limiter         *userLimiter
	paramPrefix     string
	maxContextItems int
	maxMessageLen   int
	logger          *slog.Logger
	now             func() time.Time

	cacheMu      sync.RWMutex
	cacheLoaded  bool
	systemPrompt string
	model        string
}

type SendInput struct {
	UserID  string
	Message string
}

type SendOutput struct {
	Reply     string
	SessionID string
}

func NewChatService(p ParamGetter, llm LLMClient, s StateStore, cfg ChatConfig) (*ChatService, error) {
	if p == nil {
		return nil, errors.New("usecase: param getter must not be nil")
	}
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	if s == nil {
		return nil, errors.New("usecase: state store must not be nil")
	}
	paramPrefix := strings.TrimRight(strings.TrimSpace(cfg.ParamPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("usecase: parameter prefix must not be empty")
	}
	svc := &ChatService{
		params:          p,
		llm:             llm,
		state:           s,
		limiter:         newUserLimiter(cfg.RatePerMinute),
		paramPrefix:     paramPrefix,
		maxContextItems: cfg.MaxContextItems,
		maxMessageLen:   cfg.MaxMessageLen,
		logger:          cfg.Logger,
		now:             cfg.Now,
	}
	if svc.maxContextItems <= 0 {
		svc.maxContextItems = defaultMaxContext
	}
	if svc.maxMessageLen <= 0 {
		svc.maxMessageLen = defaultMaxMessageLen
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc, nil
}

// Send answers one message. The user's id doubles as the session id.
func (s *ChatService) Send(ctx context.Context, in SendInput) (SendOutput, error) {
	uid := strings.TrimSpace(in.UserID)
	if uid == "" {
		return SendOutput{}, newError(ErrorUnauthorized, "missing_user", nil)
	}
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return SendOutput{}, newError(ErrorInvalidInput, "empty_message", nil)
	}
	if utf8.RuneCountInString(message) > s.maxMessageLen {
		return SendOutput{}, newError(ErrorInvalidInput, "message_too_long", nil)
	}
	if !s.limiter.Allow(uid, s.now()) {
		return SendOutput{}, newError(ErrorRateLimited, "user_rate_limited", nil)
	}
	if err := s.ensureConfig(ctx); err != nil {
		return SendOutput{}, newError(ErrorInternal, "ssm_load_error", err)
	}

	if mod, ok := s.llm.(Moderator); ok {
		flagged, err := mod.Moderate(ctx, message)
		if err != nil {
			return SendOutput{}, upstreamError("moderation", err)
		}
		if flagged {
			return SendOutput{}, newError(ErrorInvalidInput, "moderation_flagged", nil)
		}
	}

	turns, err := s.state.GetConversationTurnCount(ctx, uid)
	if err != nil {
		return SendOutput{}, newError(ErrorInternal, "dynamodb_turn_count_error", err)
	}
	history, err := s.state.GetHistory(ctx, uid, s.maxContextItems)
	if err != nil {
		return SendOutput{}, newError(ErrorInternal, "dynamodb_history_error", err)
	}

	s.cacheMu.RLock()
	model, prompt := s.model, s.systemPrompt
	s.cacheMu.RUnlock()

	reply, err := s.llm.Chat(ctx, model, buildPromptMessages(prompt, message, history))
	if err != nil {
		return SendOutput{}, upstreamError("llm", err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		reply = noReply
	}

	if err := s.state.SaveCompletedTurn(ctx, uid, message, reply, turns+1); err != nil {
		return SendOutput{}, newError(ErrorInternal, "dynamodb_write_error", err)
	}
	s.logger.Info("chat turn completed", "uid", uid, "turn", turns+1, "history", len(history), "reply_len", len(reply))

	return SendOutput{Reply: reply, SessionID: uid}, nil
}

// Clear deletes the user's conversation and reports whether there was
// anything to delete.
func (s *ChatService) Clear(ctx context.Context, uid string) (bool, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return false, newError(ErrorUnauthorized, "missing_user", nil)
	}
	n, err := s.state.ClearHistory(ctx, uid)
	if err != nil {
		return false, newError(ErrorInternal, "dynamodb_clear_error", err)
	}
	if n > 0 {
		s.logger.Info("chat history cleared", "uid", uid, "messages", n)
	}
	return n > 0, nil
}

// HasSession reports whether the user has at least one stored turn.
func (s *ChatService) HasSession(ctx context.Context, uid string) (bool, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return false, newError(ErrorUnauthorized, "missing_user", nil)
	}
	turns, err := s.state.GetConversationTurnCount(ctx, uid)
	if err != nil {
		return false, newError(ErrorInternal, "dynamodb_turn_count_error", err)
	}
	return turns > 0, nil
}

func (s *ChatService) ensureConfig(ctx context.Context) error {
	s.cacheMu.RLock()
	if s.cacheLoaded {
		s.cacheMu.RUnlock()
		return nil
	}
	s.cacheMu.RUnlock()

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.cacheLoaded {
		return nil
	}

	systemPrompt, model, err := s.loadSSMParams(ctx)
	if err != nil {
		return err
	}

	s.systemPrompt = systemPrompt
	s.model = model
	s.cacheLoaded = true
	return nil
}

func (s *ChatService) loadSSMParams(ctx context.Context) (systemPrompt, model string, err error) {
	promptName := s.paramPrefix + "/system_prompt"
	modelName := s.paramPrefix + "/config/model"

	if batch, ok := s.params.(BatchParamGetter); ok {
		vals, err := batch.GetParameters(ctx, promptName, modelName)
		if err != nil {
			return "", "", fmt.Errorf("usecase: load parameters: %w", err)
		}
		systemPrompt, model = vals[promptName], vals[modelName]
	} else {
		systemPrompt, err = s.params.GetParameter(ctx, promptName)
		if err != nil {
			return "", "", fmt.Errorf("usecase: load system prompt: %w", err)
		}
		model, err = s.params.GetParameter(ctx, modelName)
		if err != nil {
			return "", "", fmt.Errorf("usecase: load model: %w", err)
		}
	}

	model = strings.TrimSpace(model)
	if model == "" {
		return "", "", errors.New("usecase: model parameter is empty")
	}
	return systemPrompt, model, nil
}
