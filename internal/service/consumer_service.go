package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"funnel-canvas-be/internal/dto"
	"funnel-canvas-be/internal/entity"
	"funnel-canvas-be/internal/repository/unitofwork"
	"funnel-canvas-be/pkg/events"
	pktNats "funnel-canvas-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService records RAG usage off the request path. The chat service
// publishes one message per answered turn and this consumer persists it.
type consumerService struct {
	pubSub     *gochannel.GoChannel
	topicName  string
	uowFactory unitofwork.RepositoryFactory
	natsPub    *pktNats.Publisher
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	natsPub *pktNats.Publisher,
) IConsumerService {
	return &consumerService{
		pubSub:     pubSub,
		topicName:  topicName,
		uowFactory: uowFactory,
		natsPub:    natsPub,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishRagUsageMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal usage message: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	log.Printf("[INFO] Recording RAG usage for session %s (action: %s)", payload.ChatSessionId, payload.Action)

	record := &entity.RagUsageRecord{
		Id:            uuid.New(),
		ChatSessionId: payload.ChatSessionId,
		CanvasId:      payload.CanvasId,
		Action:        payload.Action,
		ChunksMatched: payload.ChunksMatched,
		WebSearchUsed: payload.WebSearchUsed,
		CreatedAt:     time.Now(),
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	if err := uow.Begin(ctx); err != nil {
		log.Printf("[ERROR] Failed to begin transaction: %v", err)
		msg.Nack()
		return
	}
	defer uow.Rollback()

	if err := uow.RagUsageRecordRepository().Create(ctx, record); err != nil {
		log.Printf("[ERROR] Failed to persist usage record: %v", err)
		msg.Nack()
		return
	}

	if err := uow.Commit(); err != nil {
		log.Printf("[ERROR] Failed to commit transaction: %v", err)
		msg.Nack()
		return
	}

	// External fan-out is best-effort, the record is already committed.
	if cs.natsPub != nil {
		event := events.NewChatAnsweredEvent(
			payload.ChatSessionId.String(),
			payload.CanvasId.String(),
			payload.Action,
			payload.ChunksMatched,
			payload.WebSearchUsed,
		)
		if err := cs.natsPub.Publish(ctx, event); err != nil {
			log.Printf("[WARN] Failed to publish CHAT_ANSWERED event: %v", err)
		}
	}

	msg.Ack()
}
