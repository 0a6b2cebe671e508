package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"funnel-canvas-be/internal/dto"
	"funnel-canvas-be/internal/entity"
	"funnel-canvas-be/internal/repository/specification"
	"funnel-canvas-be/internal/repository/unitofwork"
	"funnel-canvas-be/pkg/rag"
	"funnel-canvas-be/pkg/rag/executor"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// historyWindow bounds how many prior turns are fed back into the pipeline.
const historyWindow = 10

// IChatService defines the chat service interface
type IChatService interface {
	CreateSession(ctx context.Context, userId uuid.UUID, request *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error)
	GetAllSessions(ctx context.Context, userId uuid.UUID) ([]*dto.GetAllSessionsResponse, error)
	GetChatHistory(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error)
	SendChat(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest) (*dto.SendChatResponse, error)
	DeleteSession(ctx context.Context, userId uuid.UUID, request *dto.DeleteSessionRequest) error
}

// chatService coordinates session persistence around the answering pipeline
type chatService struct {
	uowFactory   unitofwork.RepositoryFactory
	orchestrator *executor.Orchestrator
	publisher    message.Publisher
	usageTopic   string
	llmLogger    *log.Logger
}

// NewChatService creates a new chat service
func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	orchestrator *executor.Orchestrator,
	publisher message.Publisher,
	usageTopic string,
) IChatService {
	return &chatService{
		uowFactory:   uowFactory,
		orchestrator: orchestrator,
		publisher:    publisher,
		usageTopic:   usageTopic,
		llmLogger:    initLLMLogger(),
	}
}

func initLLMLogger() *log.Logger {
	logPath := filepath.Join(".", "logs", "llm_rag.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		log.Printf("Failed to create logs directory: %v", err)
	}
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return log.New(os.Stdout, "[LLM-RAG] ", log.LstdFlags)
	}
	return log.New(file, "", log.LstdFlags)
}

// CreateSession creates a new chat session for a canvas with a greeting
// message.
func (cs *chatService) CreateSession(ctx context.Context, userId uuid.UUID, request *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	now := time.Now()

	title := request.Title
	if title == "" {
		title = "Unnamed session"
	}

	chatSession := entity.ChatSession{
		Id:        uuid.New(),
		CanvasId:  request.CanvasId,
		UserId:    userId,
		Title:     title,
		CreatedAt: now,
	}

	greeting := entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: chatSession.Id,
		Role:          entity.ChatRoleAssistant,
		Content:       "안녕하세요! 캔버스에 대해 무엇이든 물어보세요.",
		CreatedAt:     now,
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.ChatSessionRepository().Create(ctx, &chatSession); err != nil {
		return nil, err
	}
	if err := uow.ChatMessageRepository().Create(ctx, &greeting); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	return &dto.CreateSessionResponse{Id: chatSession.Id}, nil
}

// GetAllSessions retrieves all chat sessions of a user
func (cs *chatService) GetAllSessions(ctx context.Context, userId uuid.UUID) ([]*dto.GetAllSessionsResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	chatSessions, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	response := make([]*dto.GetAllSessionsResponse, 0, len(chatSessions))
	for _, s := range chatSessions {
		response = append(response, &dto.GetAllSessionsResponse{
			Id:        s.Id,
			CanvasId:  s.CanvasId,
			Title:     s.Title,
			CreatedAt: s.CreatedAt,
			UpdatedAt: s.UpdatedAt,
		})
	}

	return response, nil
}

// GetChatHistory retrieves chat history for a session
func (cs *chatService) GetChatHistory(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	sess, err := cs.verifySession(ctx, uow, userId, sessionId)
	if err != nil {
		return nil, err
	}

	chatMessages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sess.Id},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	resp := make([]*dto.GetChatHistoryResponse, 0, len(chatMessages))
	for _, msg := range chatMessages {
		resp = append(resp, &dto.GetChatHistoryResponse{
			Id:        msg.Id,
			Role:      msg.Role,
			Content:   msg.Content,
			CreatedAt: msg.CreatedAt,
			Citations: unmarshalCitations(msg.Citations),
		})
	}

	return resp, nil
}

// SendChat runs the answering pipeline for one user message and persists
// both sides of the exchange.
func (cs *chatService) SendChat(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest) (*dto.SendChatResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	chatSession, err := cs.verifySession(ctx, uow, userId, request.ChatSessionId)
	if err != nil {
		return nil, err
	}

	priorMessages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: chatSession.Id},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}
	history := toConversationTurns(priorMessages)

	// Only the greeting exists before the first user message.
	updateSessionTitle := len(priorMessages) <= 1
	now := time.Now()

	answer, err := cs.orchestrator.Execute(ctx, uow, chatSession.CanvasId, request.Message, history)
	if err != nil {
		return nil, err
	}

	userMessage := entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: chatSession.Id,
		Role:          entity.ChatRoleUser,
		Content:       request.Message,
		CreatedAt:     now,
	}

	citations := &dto.CitationsDTO{
		Knowledge: answer.Result.KnowledgeCitations,
		Web:       answer.Result.WebCitations,
	}
	citationsJSON, err := json.Marshal(citations)
	if err != nil {
		return nil, err
	}

	assistantMessage := entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: chatSession.Id,
		Role:          entity.ChatRoleAssistant,
		Content:       answer.Content,
		Citations:     citationsJSON,
		CreatedAt:     now.Add(1 * time.Millisecond),
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.ChatMessageRepository().Create(ctx, &userMessage); err != nil {
		return nil, err
	}
	if err := uow.ChatMessageRepository().Create(ctx, &assistantMessage); err != nil {
		return nil, err
	}

	if updateSessionTitle {
		chatSession.Title = rag.Truncate(request.Message, 60)
		chatSession.UpdatedAt = &now
		if err := uow.ChatSessionRepository().Update(ctx, chatSession); err != nil {
			return nil, err
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	cs.publishUsage(chatSession, answer)

	return &dto.SendChatResponse{
		ChatSessionId:    chatSession.Id,
		ChatSessionTitle: chatSession.Title,
		Action:           string(answer.Result.ActionDecision.Action),
		Usage: dto.UsageDTO{
			ChunksMatched: answer.Result.RAGUsed.ChunksMatched,
			WebSearchUsed: answer.Result.RAGUsed.WebSearchUsed,
		},
		Sent: &dto.ChatMessageDTO{
			Id:        userMessage.Id,
			Role:      userMessage.Role,
			Content:   userMessage.Content,
			CreatedAt: userMessage.CreatedAt,
		},
		Reply: &dto.ChatMessageDTO{
			Id:        assistantMessage.Id,
			Role:      assistantMessage.Role,
			Content:   assistantMessage.Content,
			CreatedAt: assistantMessage.CreatedAt,
			Citations: citations,
		},
	}, nil
}

// DeleteSession removes a chat session
func (cs *chatService) DeleteSession(ctx context.Context, userId uuid.UUID, request *dto.DeleteSessionRequest) error {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	if _, err := cs.verifySession(ctx, uow, userId, request.ChatSessionId); err != nil {
		return err
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ChatSessionRepository().Delete(ctx, request.ChatSessionId); err != nil {
		return err
	}

	return uow.Commit()
}

func (cs *chatService) verifySession(ctx context.Context, uow unitofwork.UnitOfWork, userId, sessionId uuid.UUID) (*entity.ChatSession, error) {
	sess, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("session not found or access denied")
	}
	return sess, nil
}

// publishUsage emits the chat.answered event. Usage accounting is
// best-effort and never blocks the response.
func (cs *chatService) publishUsage(session *entity.ChatSession, answer *executor.Answer) {
	if cs.publisher == nil {
		return
	}

	payload, err := json.Marshal(dto.PublishRagUsageMessage{
		ChatSessionId: session.Id,
		CanvasId:      session.CanvasId,
		Action:        string(answer.Result.ActionDecision.Action),
		ChunksMatched: answer.Result.RAGUsed.ChunksMatched,
		WebSearchUsed: answer.Result.RAGUsed.WebSearchUsed,
	})
	if err != nil {
		cs.llmLogger.Printf("[WARN] Failed to marshal usage payload: %v", err)
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := cs.publisher.Publish(cs.usageTopic, msg); err != nil {
		cs.llmLogger.Printf("[WARN] Failed to publish usage event: %v", err)
	}
}

func toConversationTurns(messages []*entity.ChatMessage) []rag.ConversationTurn {
	start := 0
	if len(messages) > historyWindow {
		start = len(messages) - historyWindow
	}

	turns := make([]rag.ConversationTurn, 0, len(messages)-start)
	for _, msg := range messages[start:] {
		turns = append(turns, rag.ConversationTurn{
			Role:      msg.Role,
			Content:   msg.Content,
			Timestamp: msg.CreatedAt,
		})
	}
	return turns
}

func unmarshalCitations(raw []byte) *dto.CitationsDTO {
	if len(raw) == 0 {
		return nil
	}
	var c dto.CitationsDTO
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil
	}
	return &c
}
