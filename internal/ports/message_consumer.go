package ports

import "context"

// MessageConsumer - фоновый приёмник заявок на заказ (Kafka).
type MessageConsumer interface {
	Run(ctx context.Context) error
	Close() error
}
