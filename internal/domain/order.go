package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Цена в JSON - число, как в ответах каталога, а не строка.
func init() { decimal.MarshalJSONWithoutQuotes = true }

// OrderStatus - итог проверки заказа.
type OrderStatus string

const (
	OrderStatusAccepted OrderStatus = "ACCEPTED"
	OrderStatusRejected OrderStatus = "REJECTED"
)

// Order - заказ книги.
// ID, Version и даты назначает хранилище при сохранении.
// Для REJECTED BookName и BookPrice всегда nil.
type Order struct {
	ID               int64            `json:"id"`
	BookISBN         string           `json:"book_isbn"`
	BookName         *string          `json:"book_name"`
	BookPrice        *decimal.Decimal `json:"book_price"`
	Quantity         int              `json:"quantity"`
	Status           OrderStatus      `json:"status"`
	CreatedDate      time.Time        `json:"created_date"`
	LastModifiedDate time.Time        `json:"last_modified_date"`
	Version          int              `json:"version"`
}

// OrderRequest - входной запрос на оформление заказа (HTTP и Kafka).
type OrderRequest struct {
	ISBN     string `json:"isbn" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,min=1,max=5"`
}
