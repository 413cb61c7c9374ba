package rest_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"

	"github.com/Gunvolt24/book_orders/internal/domain"
	"github.com/Gunvolt24/book_orders/internal/ports"
	"github.com/Gunvolt24/book_orders/internal/ports/mocks"
	rest "github.com/Gunvolt24/book_orders/internal/transport/http"
	"github.com/Gunvolt24/book_orders/pkg/ctxmeta"
	"github.com/Gunvolt24/book_orders/pkg/httpx"
	"github.com/Gunvolt24/book_orders/pkg/logger"
	"github.com/Gunvolt24/book_orders/pkg/validate"
)

func newRouter(svc *mocks.MockOrderService) http.Handler {
	h := rest.NewHandler(svc, validate.NewRequestValidator(), logger.NewNop(), 0)
	return rest.NewRouter(h, "")
}

func serve(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func acceptedOrder(id int64) *domain.Order {
	name := "Northern Lights"
	price := decimal.RequireFromString("9.90")
	return &domain.Order{
		ID: id, BookISBN: "1234567891", BookName: &name, BookPrice: &price,
		Quantity: 1, Status: domain.OrderStatusAccepted, Version: 1,
	}
}

func seqOf(orders []*domain.Order, tail error) iter.Seq2[*domain.Order, error] {
	return func(yield func(*domain.Order, error) bool) {
		for _, o := range orders {
			if !yield(o, nil) {
				return
			}
		}
		if tail != nil {
			yield(nil, tail)
		}
	}
}

func TestSubmitOrder_OK(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockOrderService(ctrl)

	svc.EXPECT().Submit(gomock.Any(), "1234567891", 3).Return(acceptedOrder(1), nil)

	w := serve(newRouter(svc), http.MethodPost, "/orders", `{"isbn":"1234567891","quantity":3}`)
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d, body=%s", w.Code, w.Body.String())
	}
	var got domain.Order
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if got.ID != 1 || got.Status != domain.OrderStatusAccepted || got.BookPrice == nil || got.BookPrice.String() != "9.9" {
		t.Fatalf("unexpected order: %+v", got)
	}
}

func TestSubmitOrder_IdempotencyKeyReachesService(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockOrderService(ctrl)

	svc.EXPECT().Submit(gomock.Any(), "1234567891", 1).
		DoAndReturn(func(ctx context.Context, _ string, _ int) (*domain.Order, error) {
			if got, _ := ctxmeta.IdempotencyKeyFromContext(ctx); got != "retry-1" {
				return nil, errors.New("idempotency key lost: " + got)
			}
			return acceptedOrder(5), nil
		})

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"isbn":"1234567891","quantity":1}`))
	req.Header.Set(httpx.HeaderIdempotencyKey, "retry-1")
	w := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d, body=%s", w.Code, w.Body.String())
	}
}

func TestSubmitOrder_BadRequest(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `isbn=1`},
		{"empty body", ``},
		{"missing isbn", `{"quantity":1}`},
		{"missing quantity", `{"isbn":"1234567891"}`},
		{"quantity too big", `{"isbn":"1234567891","quantity":6}`},
		{"unknown field", `{"isbn":"1234567891","quantity":1,"price":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			// Submit не ожидается: вызов уронит тест
			svc := mocks.NewMockOrderService(ctrl)

			w := serve(newRouter(svc), http.MethodPost, "/orders", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("want 400, got %d, body=%s", w.Code, w.Body.String())
			}
			var got map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil || got["error"] == "" {
				t.Fatalf("want error message, got %s", w.Body.String())
			}
		})
	}
}

func TestSubmitOrder_InFlight_409(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockOrderService(ctrl)

	svc.EXPECT().Submit(gomock.Any(), "1234567891", 1).
		Return(nil, fmt.Errorf("key %q: %w", "k-1", ports.ErrRequestInFlight))

	w := serve(newRouter(svc), http.MethodPost, "/orders", `{"isbn":"1234567891","quantity":1}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("want 409, got %d, body=%s", w.Code, w.Body.String())
	}
}

func TestSubmitOrder_StoreError_500(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockOrderService(ctrl)

	svc.EXPECT().Submit(gomock.Any(), "1234567891", 1).Return(nil, errors.New("db down"))

	w := serve(newRouter(svc), http.MethodPost, "/orders", `{"isbn":"1234567891","quantity":1}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("want 500, got %d, body=%s", w.Code, w.Body.String())
	}
}

func TestListOrders_Streams(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockOrderService(ctrl)

	svc.EXPECT().ListAll(gomock.Any()).
		Return(seqOf([]*domain.Order{acceptedOrder(1), acceptedOrder(2)}, nil))

	w := serve(newRouter(svc), http.MethodGet, "/orders", "")
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d, body=%s", w.Code, w.Body.String())
	}
	var got []*domain.Order
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v, body=%s", err, w.Body.String())
	}
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 2 {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestListOrders_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockOrderService(ctrl)

	svc.EXPECT().ListAll(gomock.Any()).Return(seqOf(nil, nil))

	w := serve(newRouter(svc), http.MethodGet, "/orders", "")
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("want 200 [], got %d %q", w.Code, w.Body.String())
	}
}

func TestListOrders_ErrorBeforeFirst_500(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockOrderService(ctrl)

	svc.EXPECT().ListAll(gomock.Any()).Return(seqOf(nil, errors.New("db down")))

	w := serve(newRouter(svc), http.MethodGet, "/orders", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("want 500, got %d, body=%s", w.Code, w.Body.String())
	}
}

func TestGetOrder_Found(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockOrderService(ctrl)

	svc.EXPECT().GetOrder(gomock.Any(), int64(7)).Return(acceptedOrder(7), nil)

	w := serve(newRouter(svc), http.MethodGet, "/orders/7", "")
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d, body=%s", w.Code, w.Body.String())
	}
	var got domain.Order
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if got.ID != 7 {
		t.Fatalf("wrong order id: %v", got)
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockOrderService(ctrl)

	svc.EXPECT().GetOrder(gomock.Any(), int64(404)).Return(nil, nil)

	w := serve(newRouter(svc), http.MethodGet, "/orders/404", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d, body=%s", w.Code, w.Body.String())
	}
}

func TestGetOrder_InternalError(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockOrderService(ctrl)

	svc.EXPECT().GetOrder(gomock.Any(), int64(1)).Return(nil, errors.New("db error"))

	w := serve(newRouter(svc), http.MethodGet, "/orders/1", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("want 500, got %d, body=%s", w.Code, w.Body.String())
	}
}

func TestDeleteOrder_204(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockOrderService(ctrl)

	// второе удаление того же id тоже 204
	svc.EXPECT().DeleteByID(gomock.Any(), int64(3)).Return(nil).Times(2)

	r := newRouter(svc)
	for i := 0; i < 2; i++ {
		w := serve(r, http.MethodDelete, "/orders/3", "")
		if w.Code != http.StatusNoContent {
			t.Fatalf("call %d: want 204, got %d, body=%s", i+1, w.Code, w.Body.String())
		}
	}
}

func TestOrderID_Malformed_400(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockOrderService(ctrl)
	r := newRouter(svc)

	for _, target := range []string{"/orders/abc", "/orders/0", "/orders/-1"} {
		for _, method := range []string{http.MethodGet, http.MethodDelete} {
			w := serve(r, method, target, "")
			if w.Code != http.StatusBadRequest {
				t.Fatalf("%s %s: want 400, got %d", method, target, w.Code)
			}
		}
	}
}

func TestNoRoute_404(t *testing.T) {
	ctrl := gomock.NewController(t)
	w := serve(newRouter(mocks.NewMockOrderService(ctrl)), http.MethodGet, "/no-such-route", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d, body=%s", w.Code, w.Body.String())
	}
}

func TestMethodNotAllowed_405(t *testing.T) {
	ctrl := gomock.NewController(t)
	w := serve(newRouter(mocks.NewMockOrderService(ctrl)), http.MethodPut, "/orders/123", "")
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("want 405, got %d, body=%s", w.Code, w.Body.String())
	}
}

func TestPing_200(t *testing.T) {
	ctrl := gomock.NewController(t)
	w := serve(newRouter(mocks.NewMockOrderService(ctrl)), http.MethodGet, "/ping", "")
	if w.Code != http.StatusOK || w.Body.String() != "pong" {
		t.Fatalf("want 200 pong, got %d %q", w.Code, w.Body.String())
	}
}

func TestMetrics_200(t *testing.T) {
	ctrl := gomock.NewController(t)
	w := serve(newRouter(mocks.NewMockOrderService(ctrl)), http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w.Code)
	}
	// содержимое меняется, достаточно, что не пусто
	if w.Body.Len() == 0 {
		t.Fatal("metrics body is empty")
	}
}

func TestRequestID_EchoedInResponse(t *testing.T) {
	ctrl := gomock.NewController(t)
	w := serve(newRouter(mocks.NewMockOrderService(ctrl)), http.MethodGet, "/ping", "")
	if w.Header().Get(httpx.HeaderRequestID) == "" {
		t.Fatal("X-Request-ID header is missing")
	}
}
