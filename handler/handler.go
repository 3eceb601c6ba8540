// Package handler adapts API Gateway proxy events to the chat backend.
package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"talkbot/internal/auth"
	"talkbot/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

const (
	msgNoToken        = "No token provided"
	msgInvalidToken   = "Invalid or expired token"
	msgNoData         = "No data provided"
	msgEmptyMessage   = "Message cannot be empty"
	msgNotFound       = "Endpoint not found"
	msgNotAllowed     = "Method not allowed"
	msgInternal       = "Internal server error"
	msgCleared        = "Chat history cleared successfully"
	msgNothingToClear = "No chat history to clear"
	msgWelcome        = "Welcome to TalkBot! Sign in to start chatting."
)

var features = []string{"Chat with AI", "Animated avatars", "Voice input and output"}

type ChatUseCase interface {
	Send(ctx context.Context, in usecase.SendInput) (usecase.SendOutput, error)
	Clear(ctx context.Context, uid string) (bool, error)
	HasSession(ctx context.Context, uid string) (bool, error)
}

type TokenVerifier interface {
	Verify(raw string) (auth.Claims, error)
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply     string `json:"reply"`
	SessionID string `json:"session_id"`
	User      string `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type profileResponse struct {
	UID              string `json:"uid"`
	Email            string `json:"email"`
	Name             string `json:"name,omitempty"`
	Picture          string `json:"picture,omitempty"`
	EmailVerified    bool   `json:"email_verified"`
	HasActiveSession bool   `json:"has_active_session"`
}

type infoResponse struct {
	Message        string   `json:"message"`
	Authenticated  bool     `json:"authenticated"`
	HasChatHistory *bool    `json:"has_chat_history,omitempty"`
	Features       []string `json:"features,omitempty"`
}

type healthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// request is one routed call. User is nil for anonymous calls.
type request struct {
	event         events.APIGatewayProxyRequest
	correlationID string
	user          *auth.Claims
}

type routeFunc func(ctx context.Context, req request) events.APIGatewayProxyResponse

type access int

const (
	public access = iota
	optionalAuth
	requireAuth
)

type route struct {
	access access
	fn     routeFunc
}

type Handler struct {
	uc       ChatUseCase
	verifier TokenVerifier
	logger   *slog.Logger
	provider string
	now      func() time.Time
	routes   map[string]map[string]route
}

type Option func(*Handler)

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = l
	}
}

// WithProvider names the LLM backend reported by the health check.
func WithProvider(name string) Option {
	return func(h *Handler) {
		h.provider = strings.TrimSpace(name)
	}
}

func NewHandler(uc ChatUseCase, v TokenVerifier, opts ...Option) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: chat use case must not be nil")
	}
	if v == nil {
		return nil, errors.New("handler: token verifier must not be nil")
	}
	h := &Handler{
		uc:       uc,
		verifier: v,
		logger:   slog.Default(),
		provider: "gemini",
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}

	chat := route{access: requireAuth, fn: h.chat}
	h.routes = map[string]map[string]route{
		"/chat":             {http.MethodPost: chat},
		"/api/chat":         {http.MethodPost: chat},
		"/api/chat/clear":   {http.MethodPost: {access: requireAuth, fn: h.clear}},
		"/api/user/profile": {http.MethodGet: {access: requireAuth, fn: h.profile}},
		"/api/info":         {http.MethodGet: {access: optionalAuth, fn: h.info}},
		"/health":           {http.MethodGet: {access: public, fn: h.health}},
	}
	return h, nil
}

// Handle is the Lambda entry point.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	start := h.now()
	req := request{event: event, correlationID: correlationID(event.Headers)}
	path := normalizePath(event.Path)
	method := strings.ToUpper(event.HTTPMethod)

	resp := h.dispatch(ctx, method, path, req)
	if resp.Headers == nil {
		resp.Headers = map[string]string{}
	}
	for k, v := range corsHeaders() {
		resp.Headers[k] = v
	}
	resp.Headers[correlationHeader] = req.correlationID

	h.logger.Info("request handled",
		"correlation_id", req.correlationID,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"latency_ms", h.now().Sub(start).Milliseconds(),
	)
	return resp, nil
}

func (h *Handler) dispatch(ctx context.Context, method, path string, req request) events.APIGatewayProxyResponse {
	methods, ok := h.routes[path]
	if !ok {
		return jsonResponse(http.StatusNotFound, errorResponse{Error: msgNotFound})
	}
	if method == http.MethodOptions {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusNoContent, Headers: map[string]string{}}
	}
	rt, ok := methods[method]
	if !ok {
		resp := jsonResponse(http.StatusMethodNotAllowed, errorResponse{Error: msgNotAllowed})
		resp.Headers["Allow"] = allowed(methods)
		return resp
	}

	switch rt.access {
	case requireAuth:
		raw, ok := bearerToken(req.event.Headers)
		if !ok {
			return jsonResponse(http.StatusUnauthorized, errorResponse{Error: msgNoToken})
		}
		claims, err := h.verifier.Verify(raw)
		if err != nil {
			h.logger.Warn("token rejected", "correlation_id", req.correlationID, "err", err)
			return jsonResponse(http.StatusUnauthorized, errorResponse{Error: msgInvalidToken})
		}
		req.user = &claims
	case optionalAuth:
		if raw, ok := bearerToken(req.event.Headers); ok {
			if claims, err := h.verifier.Verify(raw); err == nil {
				req.user = &claims
			}
		}
	}
	return rt.fn(ctx, req)
}

func (h *Handler) chat(ctx context.Context, req request) events.APIGatewayProxyResponse {
	body, err := requestBody(req.event)
	if err != nil || strings.TrimSpace(body) == "" {
		return jsonResponse(http.StatusBadRequest, errorResponse{Error: msgNoData, Code: string(usecase.ErrorInvalidInput)})
	}
	var in chatRequest
	if err := json.Unmarshal([]byte(body), &in); err != nil {
		return jsonResponse(http.StatusBadRequest, errorResponse{Error: msgNoData, Code: string(usecase.ErrorInvalidInput)})
	}

	out, err := h.uc.Send(ctx, usecase.SendInput{UserID: req.user.UID, Message: in.Message})
	if err != nil {
		return h.useCaseError(req, err)
	}
	return jsonResponse(http.StatusOK, chatResponse{
		Reply:     out.Reply,
		SessionID: out.SessionID,
		User:      req.user.Email,
	})
}

func (h *Handler) clear(ctx context.Context, req request) events.APIGatewayProxyResponse {
	cleared, err := h.uc.Clear(ctx, req.user.UID)
	if err != nil {
		return h.useCaseError(req, err)
	}
	if !cleared {
		return jsonResponse(http.StatusOK, messageResponse{Message: msgNothingToClear})
	}
	return jsonResponse(http.StatusOK, messageResponse{Message: msgCleared})
}

func (h *Handler) profile(ctx context.Context, req request) events.APIGatewayProxyResponse {
	active, err := h.uc.HasSession(ctx, req.user.UID)
	if err != nil {
		return h.useCaseError(req, err)
	}
	u := req.user
	return jsonResponse(http.StatusOK, profileResponse{
		UID:              u.UID,
		Email:            u.Email,
		Name:             u.Name,
		Picture:          u.Picture,
		EmailVerified:    u.EmailVerified,
		HasActiveSession: active,
	})
}

func (h *Handler) info(ctx context.Context, req request) events.APIGatewayProxyResponse {
	if req.user == nil {
		return jsonResponse(http.StatusOK, infoResponse{Message: msgWelcome, Features: features})
	}
	history, err := h.uc.HasSession(ctx, req.user.UID)
	if err != nil {
		return h.useCaseError(req, err)
	}
	return jsonResponse(http.StatusOK, infoResponse{
		Message:        fmt.Sprintf("Hello %s! You are authenticated.", req.user.Email),
		Authenticated:  true,
		HasChatHistory: &history,
	})
}

func (h *Handler) health(context.Context, request) events.APIGatewayProxyResponse {
	return jsonResponse(http.StatusOK, healthResponse{
		Status: "healthy",
		Services: map[string]string{
			"api":  "running",
			"llm":  h.provider,
			"auth": "configured",
		},
	})
}

func (h *Handler) useCaseError(req request, err error) events.APIGatewayProxyResponse {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		h.logger.Error("unexpected error", "correlation_id", req.correlationID, "err", err)
		return jsonResponse(http.StatusInternalServerError, errorResponse{Error: msgInternal, Code: string(usecase.ErrorInternal)})
	}

	status, msg := statusFor(ucErr)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "correlation_id", req.correlationID, "code", ucErr.Code, "reason", ucErr.Reason, "retryable", ucErr.Retryable(), "err", ucErr.Err)
	} else {
		h.logger.Warn("request rejected", "correlation_id", req.correlationID, "code", ucErr.Code, "reason", ucErr.Reason, "retryable", ucErr.Retryable())
	}
	return jsonResponse(status, errorResponse{Error: msg, Code: string(ucErr.Code)})
}

func statusFor(e *usecase.Error) (int, string) {
	switch e.Code {
	case usecase.ErrorInvalidInput:
		switch e.Reason {
		case "empty_message":
			return http.StatusBadRequest, msgEmptyMessage
		case "message_too_long":
			return http.StatusBadRequest, "Message is too long"
		case "moderation_flagged":
			return http.StatusBadRequest, "Message was flagged by moderation"
		}
		return http.StatusBadRequest, "Invalid request"
	case usecase.ErrorUnauthorized:
		return http.StatusUnauthorized, msgInvalidToken
	case usecase.ErrorRateLimited:
		return http.StatusTooManyRequests, "Too many requests, slow down"
	case usecase.ErrorUpstream:
		return http.StatusBadGateway, "AI service is unavailable"
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

func jsonResponse(status int, v any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"` + msgInternal + `"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}

func corsHeaders() map[string]string {
	return map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Headers": "Authorization, Content-Type, " + correlationHeader,
		"Access-Control-Allow-Methods": "GET, POST, OPTIONS",
	}
}

func allowed(methods map[string]route) string {
	out := make([]string, 0, len(methods)+1)
	for m := range methods {
		out = append(out, m)
	}
	out = append(out, http.MethodOptions)
	sort.Strings(out)
	return strings.Join(out, ", ")
}

func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	return p
}

func requestBody(event events.APIGatewayProxyRequest) (string, error) {
	if !event.IsBase64Encoded {
		return event.Body, nil
	}
	raw, err := base64.StdEncoding.DecodeString(event.Body)
	if err != nil {
		return "", fmt.Errorf("handler: decode body: %w", err)
	}
	return string(raw), nil
}

func header(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func bearerToken(headers map[string]string) (string, bool) {
	v := header(headers, "Authorization")
	const prefix = "Bearer "
	if len(v) < len(prefix) || !strings.EqualFold(v[:len(prefix)], prefix) {
		return "", false
	}
	tok := strings.TrimSpace(v[len(prefix):])
	return tok, tok != ""
}

func correlationID(headers map[string]string) string {
	if id := header(headers, correlationHeader); id != "" {
		return id
	}
	return uuid.NewString()
}
