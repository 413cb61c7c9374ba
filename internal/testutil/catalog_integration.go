//go:build integration

package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/Gunvolt24/book_orders/internal/domain"
)

// FakeCatalog — каталог книг поверх httptest: GET/DELETE /books/{isbn}.
type FakeCatalog struct {
	*httptest.Server

	mu    sync.Mutex
	books map[string]domain.Book
}

// StartFakeCatalog поднимает каталог с заданными книгами. Закрытие — на вызывающем.
func StartFakeCatalog(books ...domain.Book) *FakeCatalog {
	fc := &FakeCatalog{books: make(map[string]domain.Book, len(books))}
	for _, b := range books {
		fc.books[b.ISBN] = b
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/books/", func(w http.ResponseWriter, r *http.Request) {
		isbn := strings.TrimPrefix(r.URL.Path, "/books/")

		fc.mu.Lock()
		book, ok := fc.books[isbn]
		if ok && r.Method == http.MethodDelete {
			delete(fc.books, isbn)
		}
		fc.mu.Unlock()

		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(book)
	})
	fc.Server = httptest.NewServer(mux)
	return fc
}

// Put добавляет или заменяет книгу.
func (fc *FakeCatalog) Put(book domain.Book) {
	fc.mu.Lock()
	fc.books[book.ISBN] = book
	fc.mu.Unlock()
}
