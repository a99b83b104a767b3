package outbox

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vanshjhamb9/swaroop-admin-sub001/internal/domain"
	kafka_infra "github.com/vanshjhamb9/swaroop-admin-sub001/internal/infrastructure/kafka"
	"github.com/vanshjhamb9/swaroop-admin-sub001/internal/repository/outbox_repo"
)

// Processor публикует накопленные outbox-сообщения в Kafka. Сообщение
// создается в одной транзакции с изменением статуса платежа, поэтому событие
// уходит наружу тогда и только тогда, когда изменение зафиксировано.
type Processor struct {
	db           domain.Querier
	txm          domain.TxManager
	outboxRepo   outbox_repo.OutboxRepository
	producer     kafka_infra.Producer
	pollInterval time.Duration
	pollTimeout  time.Duration
	batchSize    int
	logger       *zap.Logger
}

func NewProcessor(
	db domain.Querier,
	txm domain.TxManager,
	outboxRepo outbox_repo.OutboxRepository,
	producer kafka_infra.Producer,
	pollInterval time.Duration,
	pollTimeout time.Duration,
	batchSize int,
	logger *zap.Logger,
) *Processor {
	return &Processor{
		db:           db,
		txm:          txm,
		outboxRepo:   outboxRepo,
		producer:     producer,
		pollInterval: pollInterval,
		pollTimeout:  pollTimeout,
		batchSize:    batchSize,
		logger:       logger,
	}
}

func (p *Processor) Start(ctx context.Context) {
	p.logger.Info("Starting outbox processor...")
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox processor stopped.")
			return
		case <-ticker.C:
			p.processOutboxMessages(ctx)
		}
	}
}

func (p *Processor) processOutboxMessages(ctx context.Context) {
	queryCtx, cancel := context.WithTimeout(ctx, p.pollTimeout)
	defer cancel()

	messages, err := p.outboxRepo.GetPendingMessages(queryCtx, p.db, p.batchSize)
	if err != nil {
		p.logger.Error("Failed to get pending outbox messages", zap.Error(err))
		return
	}
	if len(messages) == 0 {
		return
	}
	p.logger.Debug("Found pending outbox messages", zap.Int("count", len(messages)))

	for _, msg := range messages {
		if err := p.producer.Produce(ctx, msg.Topic, msg.Key, msg.Payload); err != nil {
			p.logger.Error("Failed to publish outbox message",
				zap.String("message_id", msg.ID),
				zap.String("topic", msg.Topic),
				zap.Error(err))
			continue
		}

		err := p.txm.WithinTx(ctx, func(q domain.Querier) error {
			return p.outboxRepo.UpdateMessageStatusTx(ctx, q, msg.ID, domain.OutboxStatusSent)
		})
		if err != nil {
			// Сообщение будет опубликовано повторно; потребители должны
			// переносить дубликаты.
			p.logger.Error("Failed to mark outbox message as sent",
				zap.String("message_id", msg.ID),
				zap.Error(err))
			continue
		}
		p.logger.Info("Outbox message published",
			zap.String("message_id", msg.ID),
			zap.String("message_type", msg.MessageType))
	}
}
