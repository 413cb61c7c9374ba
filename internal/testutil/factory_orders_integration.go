//go:build integration

package testutil

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/shopspring/decimal"

	"github.com/Gunvolt24/book_orders/internal/domain"
)

func randHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func UniqSuffix() string { return randHex(6) }

// UniqISBN — 10-символьный ISBN-подобный ключ, уникальный в пределах теста.
func UniqISBN() string { return "97" + randHex(4) }

// MakeBook — книга каталога с ценой 9.90.
func MakeBook(opts ...func(*domain.Book)) domain.Book {
	b := domain.Book{
		ISBN:   UniqISBN(),
		Title:  "Northern Lights",
		Author: "Lyra Silverstar",
		Price:  decimal.RequireFromString("9.90"),
	}
	for _, fn := range opts {
		fn(&b)
	}
	return b
}

// MakeAccepted — принятый заказ, ещё не сохранённый.
func MakeAccepted(qty int, opts ...func(*domain.Book)) domain.Order {
	return domain.AcceptedOrder(MakeBook(opts...), qty)
}

// MakeRejected — отклонённый заказ, ещё не сохранённый.
func MakeRejected(qty int) domain.Order {
	return domain.RejectedOrder(UniqISBN(), qty)
}

func WithISBN(isbn string) func(*domain.Book) {
	return func(b *domain.Book) { b.ISBN = isbn }
}

func WithPrice(price string) func(*domain.Book) {
	return func(b *domain.Book) { b.Price = decimal.RequireFromString(price) }
}
