package reconcile

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/vanshjhamb9/swaroop-admin-sub001/internal/app/payments"
	"github.com/vanshjhamb9/swaroop-admin-sub001/internal/domain"
	"github.com/vanshjhamb9/swaroop-admin-sub001/internal/gateway"
)

// Poller — второй канал доставки результатов шлюза. Он опрашивает статусы
// зависших попыток с экспоненциальной выдержкой и по истечении окна
// наблюдения переводит их в EXPIRED. Сверка не принадлежит ни одному
// вызывающему: попытка доводится до конечного статуса независимо от того,
// жив ли инициировавший ее запрос.
type Poller struct {
	service     payments.PaymentService
	gateway     gateway.Client
	interval    time.Duration
	backoffBase time.Duration
	backoffMax  time.Duration
	window      time.Duration
	batchSize   int
	logger      *zap.Logger
}

func NewPoller(
	service payments.PaymentService,
	gatewayClient gateway.Client,
	interval, backoffBase, backoffMax, window time.Duration,
	batchSize int,
	logger *zap.Logger,
) *Poller {
	return &Poller{
		service:     service,
		gateway:     gatewayClient,
		interval:    interval,
		backoffBase: backoffBase,
		backoffMax:  backoffMax,
		window:      window,
		batchSize:   batchSize,
		logger:      logger,
	}
}

func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Запуск поллера сверки платежей...",
		zap.Duration("interval", p.interval),
		zap.Duration("window", p.window))
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Поллер сверки остановлен.")
			return
		case <-ticker.C:
			p.Tick(ctx, time.Now())
		}
	}
}

// Tick обрабатывает одну порцию попыток, чей срок опроса наступил.
func (p *Poller) Tick(ctx context.Context, now time.Time) {
	attempts, err := p.service.DuePending(ctx, now, p.batchSize)
	if err != nil {
		p.logger.Error("Не удалось получить попытки для опроса", zap.Error(err))
		return
	}
	for i := range attempts {
		p.process(ctx, &attempts[i], now)
	}
}

func (p *Poller) process(ctx context.Context, attempt *domain.PaymentAttempt, now time.Time) {
	if now.Sub(attempt.CreatedAt) >= p.window {
		if err := p.service.Expire(ctx, attempt.MerchantTxID); err != nil {
			p.logger.Error("Не удалось пометить попытку как истекшую",
				zap.String("merchant_tx_id", attempt.MerchantTxID),
				zap.Error(err))
		}
		return
	}

	outcome, err := p.gateway.QueryStatus(ctx, attempt.MerchantTxID)
	if err != nil {
		p.logger.Warn("Опрос шлюза не удался, попытка будет опрошена позже",
			zap.String("merchant_tx_id", attempt.MerchantTxID),
			zap.Int("poll_count", attempt.PollCount),
			zap.Error(err))
		p.reschedule(ctx, attempt, now)
		return
	}

	if !outcome.Terminal() {
		p.reschedule(ctx, attempt, now)
		return
	}

	if err := p.service.Reconcile(ctx, attempt.MerchantTxID, *outcome); err != nil {
		if errors.Is(err, domain.ErrUnknownTransaction) {
			p.logger.Error("Сверка неизвестной попытки", zap.String("merchant_tx_id", attempt.MerchantTxID))
			return
		}
		// Попытка осталась PENDING и будет сверена на следующем проходе.
		p.logger.Error("Сверка не удалась, попытка будет повторена",
			zap.String("merchant_tx_id", attempt.MerchantTxID),
			zap.Error(err))
		p.reschedule(ctx, attempt, now)
	}
}

func (p *Poller) reschedule(ctx context.Context, attempt *domain.PaymentAttempt, now time.Time) {
	next := now.Add(p.NextBackoff(attempt.PollCount + 1))
	if err := p.service.SchedulePoll(ctx, attempt.MerchantTxID, attempt.PollCount+1, next); err != nil {
		p.logger.Error("Не удалось запланировать следующий опрос",
			zap.String("merchant_tx_id", attempt.MerchantTxID),
			zap.Error(err))
	}
}

// NextBackoff возвращает выдержку перед n-м опросом: base·2^(n-1),
// ограниченную сверху backoffMax.
func (p *Poller) NextBackoff(pollCount int) time.Duration {
	if pollCount < 1 {
		pollCount = 1
	}
	if pollCount > 30 {
		return p.backoffMax
	}
	d := p.backoffBase << (pollCount - 1)
	if d > p.backoffMax || d <= 0 {
		return p.backoffMax
	}
	return d
}
