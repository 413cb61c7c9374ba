package postgres

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Gunvolt24/book_orders/internal/domain"
	"github.com/Gunvolt24/book_orders/internal/ports"
)

// Проверка, что OrderRepository удовлетворяет интерфейсу OrderStore.
var _ ports.OrderStore = (*OrderRepository)(nil)

// Цена уходит и приходит текстом, чтобы не зависеть от numeric-кодека pgx.
const selectOrder = `
	SELECT id, book_isbn, book_name, book_price::text, quantity, status,
	       created_date, last_modified_date, version
	FROM orders`

// OrderRepository — реализация хранилища заказов на Postgres (pgxpool).
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository - конструктор OrderRepository.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository { return &OrderRepository{pool: pool} }

// Create — вставляет заказ; id, даты и версию назначает БД.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if order == nil {
		return nil, errors.New("order is nil")
	}

	var price *string
	if order.BookPrice != nil {
		s := order.BookPrice.String()
		price = &s
	}

	saved := *order
	err := r.pool.QueryRow(ctx, `
		INSERT INTO orders (book_isbn, book_name, book_price, quantity, status)
		VALUES ($1, $2, $3::numeric, $4, $5)
		RETURNING id, created_date, last_modified_date, version
	`,
		order.BookISBN, order.BookName, price, order.Quantity, string(order.Status),
	).Scan(&saved.ID, &saved.CreatedDate, &saved.LastModifiedDate, &saved.Version)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	return &saved, nil
}

// FindAll — построчное чтение всех заказов по возрастанию id.
// Курсор закрывается, когда потребитель прекращает итерацию.
func (r *OrderRepository) FindAll(ctx context.Context) iter.Seq2[*domain.Order, error] {
	return func(yield func(*domain.Order, error) bool) {
		rows, err := r.pool.Query(ctx, selectOrder+` ORDER BY id`)
		if err != nil {
			yield(nil, fmt.Errorf("query orders: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			order, err := scanOrder(rows)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(order, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, fmt.Errorf("orders rows: %w", err))
		}
	}
}

// FindByID — (nil, nil), если заказа нет.
func (r *OrderRepository) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	order, err := scanOrder(r.pool.QueryRow(ctx, selectOrder+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

// DeleteByID — удаление по id; отсутствие строки не ошибка.
func (r *OrderRepository) DeleteByID(ctx context.Context, id int64) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete order %d: %w", id, err)
	}
	return nil
}

// DeleteByISBN — удаляет все заказы на книгу.
func (r *OrderRepository) DeleteByISBN(ctx context.Context, isbn string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE book_isbn = $1`, isbn); err != nil {
		return fmt.Errorf("delete orders by isbn: %w", err)
	}
	return nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		order  domain.Order
		price  *string
		status string
	)
	if err := row.Scan(
		&order.ID, &order.BookISBN, &order.BookName, &price, &order.Quantity, &status,
		&order.CreatedDate, &order.LastModifiedDate, &order.Version,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	if price != nil {
		p, err := decimal.NewFromString(*price)
		if err != nil {
			return nil, fmt.Errorf("parse book_price %q: %w", *price, err)
		}
		order.BookPrice = &p
	}
	order.Status = domain.OrderStatus(status)
	return &order, nil
}
