package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"talkbot/handler"
	"talkbot/internal/auth"
	"talkbot/internal/integrations/gemini"
	"talkbot/internal/integrations/openai"
	"talkbot/internal/integrations/paramstore"
	"talkbot/internal/repository"
	"talkbot/internal/usecase"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// ---- Configuration (read only here) ----
	stateTable := mustEnv("STATE_TABLE")
	paramPrefix := strings.TrimRight(mustEnv("PARAM_PREFIX"), "/")
	provider := strings.ToLower(envString("LLM_PROVIDER", "gemini"))
	maxContextItems := envInt("MAX_CONTEXT_ITEMS", 20)
	maxMessageLen := envInt("MAX_MESSAGE_LENGTH", 2000)
	ratePerMinute := envInt("RATE_LIMIT_PER_MINUTE", 10)
	jwtIssuer := os.Getenv("JWT_ISSUER")
	jwtAudience := os.Getenv("JWT_AUDIENCE")

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}
	stateClient, err := repository.New(awsdynamodb.NewFromConfig(cfg), stateTable)
	if err != nil {
		slog.Error("failed to create state client", "err", err)
		os.Exit(1)
	}

	var llm usecase.LLMClient
	switch provider {
	case "gemini":
		llm, err = gemini.NewClient(ssmClient, paramPrefix)
	case "openai":
		llm, err = openai.NewClient(ssmClient, paramPrefix)
	default:
		slog.Error("unknown LLM provider", "provider", provider)
		os.Exit(1)
	}
	if err != nil {
		slog.Error("failed to create LLM client", "provider", provider, "err", err)
		os.Exit(1)
	}

	// ---- Auth ----
	secret, err := paramstore.GetToken(ctx, ssmClient, paramPrefix+"/jwt-secret")
	if err != nil {
		slog.Error("failed to load JWT secret", "err", err)
		os.Exit(1)
	}
	verifier, err := auth.NewVerifier(auth.VerifierConfig{
		Secret:   []byte(secret),
		Issuer:   jwtIssuer,
		Audience: jwtAudience,
	})
	if err != nil {
		slog.Error("failed to create token verifier", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	chatService, err := usecase.NewChatService(ssmClient, llm, stateClient, usecase.ChatConfig{
		ParamPrefix:     paramPrefix,
		MaxContextItems: maxContextItems,
		MaxMessageLen:   maxMessageLen,
		RatePerMinute:   ratePerMinute,
		Logger:          logger,
	})
	if err != nil {
		slog.Error("failed to create chat service", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(chatService, verifier, handler.WithLogger(logger), handler.WithProvider(provider))
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("ignoring invalid integer environment variable", "key", key, "value", v)
		return def
	}
	return n
}
