package bootstrap

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"funnel-canvas-be/internal/config"
	"funnel-canvas-be/internal/controller"
	"funnel-canvas-be/internal/pkg/logger"
	"funnel-canvas-be/internal/repository/unitofwork"
	"funnel-canvas-be/internal/service"
	"funnel-canvas-be/pkg/embedding"
	"funnel-canvas-be/pkg/llm/factory"
	"funnel-canvas-be/pkg/llm/perplexity"
	"funnel-canvas-be/pkg/rag/answer"
	"funnel-canvas-be/pkg/rag/decision"
	"funnel-canvas-be/pkg/rag/executor"
	"funnel-canvas-be/pkg/rag/knowledge"
	"funnel-canvas-be/pkg/websearch"

	pktNats "funnel-canvas-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// chatAnsweredTopic carries one usage message per answered chat turn.
const chatAnsweredTopic = "chat.answered"

type Container struct {
	// Controllers
	ChatController controller.IChatController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	pipelineLogger := newPipelineLogger()

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. AI Providers
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "gemini" {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Keys.Gemini)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	} else {
		embeddingProvider = embedding.NewOpenAIProvider(cfg.Keys.OpenAI, cfg.Ai.EmbeddingModel)
		log.Printf("[INFO] Using Embedding Provider: OPENAI (%s)", cfg.Ai.EmbeddingModel)
	}

	decisionLLM, err := factory.NewChatProvider(cfg.Ai.LLMProvider, cfg.Ai.LLMModel, cfg.Keys.OpenAI)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	agenticLLM := perplexity.NewPerplexityProvider(cfg.Keys.Perplexity, cfg.Ai.AgenticModel)

	// 4. Infrastructure
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// 5. Answering pipeline
	var webSearch websearch.Provider = websearch.NewClient(cfg.Keys.Serper, cfg.Ai.WebSearchLimit)
	webSearch = websearch.NewCachedProvider(webSearch, rdb, pipelineLogger)

	store := knowledge.NewStore(embeddingProvider, pipelineLogger)
	decisionEngine := decision.NewEngine(decisionLLM, pipelineLogger)
	synthesizer := answer.NewSynthesizer(agenticLLM, decisionLLM, answer.DefaultConfig(), pipelineLogger)

	orchestratorConfig := executor.DefaultConfig()
	orchestratorConfig.WebSearchLimit = cfg.Ai.WebSearchLimit
	orchestrator := executor.NewOrchestrator(
		store,
		decisionEngine,
		webSearch,
		synthesizer,
		orchestratorConfig,
		pipelineLogger,
	)

	// 6. Services
	chatService := service.NewChatService(uowFactory, orchestrator, pubSub, chatAnsweredTopic)
	consumerService := service.NewConsumerService(
		pubSub,
		chatAnsweredTopic,
		uowFactory,
		natsPub,
	)

	sysLogger.Info("bootstrap", "Container wired", map[string]interface{}{
		"embedding_provider": cfg.Ai.EmbeddingProvider,
		"llm_provider":       cfg.Ai.LLMProvider,
		"agentic_model":      cfg.Ai.AgenticModel,
	})

	// 7. Controllers
	return &Container{
		ChatController:  controller.NewChatController(chatService),
		ConsumerService: consumerService,
	}
}

// newPipelineLogger writes the pipeline's stage-by-stage trace to its own
// file so answering behavior can be audited without grepping the app log.
func newPipelineLogger() *log.Logger {
	logPath := filepath.Join(".", "logs", "rag_pipeline.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		log.Printf("Failed to create logs directory: %v", err)
	}
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return log.New(os.Stdout, "[RAG] ", log.LstdFlags)
	}
	return log.New(file, "", log.LstdFlags)
}
