package usecase

import (
	"context"
	"fmt"
	"iter"

	"github.com/Gunvolt24/book_orders/internal/domain"
	"github.com/Gunvolt24/book_orders/internal/ports"
	"github.com/Gunvolt24/book_orders/pkg/ctxmeta"
	"github.com/Gunvolt24/book_orders/pkg/metrics"
	"github.com/Gunvolt24/book_orders/pkg/validate"
)

var _ ports.OrderService = (*OrderService)(nil)

// OrderService — приём заказов: проверка книги в каталоге, решение, сохранение.
// Состояния не держит, кроме зависимостей.
type OrderService struct {
	catalog   ports.BookCatalog
	store     ports.OrderStore
	cache     ports.OrderCache
	idem      ports.IdempotencyStore
	validator ports.RequestValidator
	log       ports.Logger
}

// NewOrderService — DI-конструктор.
func NewOrderService(
	catalog ports.BookCatalog,
	store ports.OrderStore,
	cache ports.OrderCache,
	idem ports.IdempotencyStore,
	validator ports.RequestValidator,
	log ports.Logger,
) *OrderService {
	return &OrderService{
		catalog:   catalog,
		store:     store,
		cache:     cache,
		idem:      idem,
		validator: validator,
		log:       log,
	}
}

// Submit — Lookup -> Decide -> Create, строго последовательно.
// Сбои каталога дают REJECTED-заказ, наружу уходит только ошибка сохранения.
// Ключ идемпотентности из контекста бронируется до обращения к каталогу:
// уже использованный ключ возвращает ранее созданный заказ, занятый — ports.ErrRequestInFlight.
func (s *OrderService) Submit(ctx context.Context, isbn string, quantity int) (*domain.Order, error) {
	key, hasKey := ctxmeta.IdempotencyKeyFromContext(ctx)
	if hasKey {
		order, err := s.claim(ctx, key)
		if err != nil || order != nil {
			return order, err
		}
	}

	outcome := s.catalog.Lookup(ctx, isbn)
	draft := domain.Decide(outcome, isbn, quantity)

	saved, err := s.store.Create(ctx, &draft)
	if err != nil {
		s.log.Errorf(ctx, "store.Create failed isbn=%s status=%s err=%v", isbn, draft.Status, err)
		if hasKey {
			if relErr := s.idem.Release(ctx, key); relErr != nil {
				s.log.Warnf(ctx, "idempotency release failed err=%v", relErr)
			}
		}
		return nil, fmt.Errorf("failed to save order: %w", err)
	}
	metrics.OrdersSubmitted.WithLabelValues(string(saved.Status)).Inc()

	if err := s.cache.Set(ctx, saved); err != nil {
		s.log.Warnf(ctx, "cache.Set failed id=%d err=%v", saved.ID, err)
	}
	if hasKey {
		if err := s.idem.Remember(ctx, key, saved.ID); err != nil {
			s.log.Warnf(ctx, "idempotency remember failed id=%d err=%v", saved.ID, err)
		}
	}

	s.log.Infof(ctx, "order saved id=%d isbn=%s quantity=%d status=%s", saved.ID, saved.BookISBN, saved.Quantity, saved.Status)
	return saved, nil
}

// SubmitFromMessage — заявка из Kafka (raw JSON): строгий разбор, валидация, Submit.
// Ошибки разбора и валидации оборачивают validate.ErrInvalidRequest.
func (s *OrderService) SubmitFromMessage(ctx context.Context, raw []byte) (*domain.Order, error) {
	req, err := validate.ValidateRequestFromJSON(ctx, s.validator, raw)
	if err != nil {
		s.log.Warnf(ctx, "invalid order request err=%v", err)
		return nil, err
	}
	return s.Submit(ctx, req.ISBN, req.Quantity)
}

// ListAll — ленивое чтение всех заказов из хранилища.
func (s *OrderService) ListAll(ctx context.Context) iter.Seq2[*domain.Order, error] {
	return s.store.FindAll(ctx)
}

// GetOrder — сначала кэш, при промахе хранилище с записью в кэш.
// Возвращает (nil, nil), если заказа нет.
func (s *OrderService) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	if order, found := s.cache.Get(ctx, id); found {
		return order, nil
	}

	order, err := s.store.FindByID(ctx, id)
	if err != nil {
		s.log.Errorf(ctx, "store.FindByID failed id=%d err=%v", id, err)
		return nil, fmt.Errorf("failed to load order %d: %w", id, err)
	}
	if order == nil {
		return nil, nil
	}

	if setErr := s.cache.Set(ctx, order); setErr != nil {
		s.log.Warnf(ctx, "cache.Set failed id=%d err=%v", id, setErr)
	}
	return order, nil
}

// DeleteByID — удаление заказа (не книги в каталоге). Отсутствие заказа не ошибка.
func (s *OrderService) DeleteByID(ctx context.Context, id int64) error {
	if err := s.store.DeleteByID(ctx, id); err != nil {
		s.log.Errorf(ctx, "store.DeleteByID failed id=%d err=%v", id, err)
		return fmt.Errorf("failed to delete order %d: %w", id, err)
	}
	s.cache.Delete(ctx, id)
	return nil
}

// claim бронирует ключ. (nil, nil) — ключ наш, заявку надо обработать;
// заказ — уже создан по этому ключу.
// Сбой хранилища ключей не блокирует приём заказа.
func (s *OrderService) claim(ctx context.Context, key string) (*domain.Order, error) {
	orderID, reserved, err := s.idem.Reserve(ctx, key)
	if err != nil {
		s.log.Warnf(ctx, "idempotency reserve failed err=%v", err)
		return nil, nil
	}
	if reserved {
		return nil, nil
	}
	if orderID == 0 {
		return nil, fmt.Errorf("key %q: %w", key, ports.ErrRequestInFlight)
	}

	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		// заказ удалён: принимаем заявку заново, Remember перепишет ключ
		return nil, nil
	}
	metrics.IdempotentReplays.Inc()
	s.log.Infof(ctx, "idempotent replay id=%d", order.ID)
	return order, nil
}
