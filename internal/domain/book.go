package domain

import "github.com/shopspring/decimal"

// Book - проекция книги из каталога (только чтение, локально не изменяется).
type Book struct {
	ISBN      string          `json:"isbn"`
	Title     string          `json:"title"`
	Author    string          `json:"author"`
	Price     decimal.Decimal `json:"price"`
	Publisher string          `json:"publisher,omitempty"`
}
