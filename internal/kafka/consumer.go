package kafka

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/segmentio/kafka-go"

	"github.com/Gunvolt24/book_orders/internal/domain"
	"github.com/Gunvolt24/book_orders/internal/idempotency"
	"github.com/Gunvolt24/book_orders/internal/ports"
	"github.com/Gunvolt24/book_orders/pkg/ctxmeta"
	"github.com/Gunvolt24/book_orders/pkg/metrics"
	"github.com/Gunvolt24/book_orders/pkg/validate"
)

// Проверка, что Consumer удовлетворяет интерфейсу верхнего уровня (порт приложения).
var _ ports.MessageConsumer = (*Consumer)(nil)

// reader — минимальный контракт над kafka.Reader, чтобы подменять его моками в тестах.
type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Config() kafka.ReaderConfig
	Close() error
}

// messageSubmitter — приём заявки из сырого JSON (usecase.OrderService).
type messageSubmitter interface {
	SubmitFromMessage(ctx context.Context, raw []byte) (*domain.Order, error)
}

// Consumer читает заявки на заказ из Kafka и коммитит оффсеты вручную.
type Consumer struct {
	reader    reader
	service   messageSubmitter
	log       ports.Logger
	cfg       ConsumerConfig
	closeOnce sync.Once
}

// NewConsumer — конструктор поверх kafka.Reader.
func NewConsumer(cfg *ConsumerConfig, service messageSubmitter, log ports.Logger) *Consumer {
	return newConsumer(kafka.NewReader(cfg.ReaderConfig()), cfg, service, log)
}

func newConsumer(r reader, cfg *ConsumerConfig, service messageSubmitter, log ports.Logger) *Consumer {
	return &Consumer{
		reader:  r,
		service: service,
		log:     log,
		cfg:     cfg.withDefaults(),
	}
}

// Run — основной цикл:
// 1) читаем сообщение без авто-коммита;
// 2) заказ сохранён → коммит;
// 3) невалидная заявка → лог и коммит (пропускаем навсегда);
// 4) ошибка сохранения → повторяем то же сообщение с паузой до успеха или отмены ctx,
//    следующий оффсет не читается, пока текущий не обработан.
// Повторно доставленный оффсет не создаёт второй заказ: ключ идемпотентности
// topic/partition/offset кладётся в контекст обработки.
func (c *Consumer) Run(ctx context.Context) error {
	rc := c.reader.Config()
	c.log.Infof(ctx, "kafka consumer started topic=%s group_id=%s brokers=%v", rc.Topic, rc.GroupID, rc.Brokers)

	fetchBackoff := c.newFetchBackOff()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			wait := fetchBackoff.NextBackOff()
			c.log.Warnf(ctx, "fetch failed: %v (will retry in %s)", err, wait)
			if !sleepCtx(ctx, wait) {
				return ctx.Err()
			}
			continue
		}
		fetchBackoff.Reset()
		metrics.KafkaMessagesConsumed.WithLabelValues(msg.Topic).Inc()

		if !c.processWithRetry(ctx, &msg) {
			return ctx.Err()
		}
		c.commit(ctx, &msg)
	}
}

// Close закрывает reader; повторные вызовы безопасны.
func (c *Consumer) Close() (retErr error) {
	c.closeOnce.Do(func() {
		retErr = c.reader.Close()
	})
	return retErr
}

// handleMessage обрабатывает сообщение и сообщает, нужно ли коммитить оффсет.
func (c *Consumer) handleMessage(ctx context.Context, msg *kafka.Message) bool {
	key := idempotency.MessageKey(msg.Topic, msg.Partition, msg.Offset)
	pctx := ctxmeta.WithIdempotencyKey(ctxmeta.WithRequestID(ctx, key), key)
	pctx, cancel := context.WithTimeout(pctx, c.cfg.ProcessTimeout)
	defer cancel()

	order, err := c.service.SubmitFromMessage(pctx, msg.Value)
	switch {
	case err == nil:
		metrics.KafkaMessagesProcessed.WithLabelValues(msg.Topic).Inc()
		c.log.Infof(pctx, "order request processed offset=%d id=%d status=%s", msg.Offset, order.ID, order.Status)
		return true
	case errors.Is(err, validate.ErrInvalidRequest):
		metrics.KafkaMessagesFailed.WithLabelValues(msg.Topic).Inc()
		c.log.Warnf(pctx, "invalid message offset=%d: %v (skipped)", msg.Offset, err)
		return true
	default:
		metrics.KafkaMessagesFailed.WithLabelValues(msg.Topic).Inc()
		c.log.Errorf(pctx, "process failed offset=%d: %v (will retry same offset)", msg.Offset, err)
		return false
	}
}

// processWithRetry повторяет обработку одного сообщения; false — ctx отменён до успеха.
func (c *Consumer) processWithRetry(ctx context.Context, msg *kafka.Message) bool {
	var retry *backoff.ExponentialBackOff
	for {
		if c.handleMessage(ctx, msg) {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		if retry == nil {
			retry = c.newFetchBackOff()
		}
		if !sleepCtx(ctx, retry.NextBackOff()) {
			return false
		}
	}
}

func (c *Consumer) commit(ctx context.Context, msg *kafka.Message) {
	if err := c.reader.CommitMessages(ctx, *msg); err != nil {
		c.log.Warnf(ctx, "commit failed offset=%d: %v", msg.Offset, err)
	}
}

// newFetchBackOff — экспоненциальная пауза с джиттером между RetryInitial и RetryMax
// (для чтения и для повторной обработки сообщения).
func (c *Consumer) newFetchBackOff() *backoff.ExponentialBackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     c.cfg.RetryInitial,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         c.cfg.RetryMax,
	}
	b.Reset()
	return b
}

// sleepCtx ждёт d или отмену контекста; false — контекст отменён.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
