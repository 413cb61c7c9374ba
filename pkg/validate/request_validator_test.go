package validate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Gunvolt24/book_orders/internal/domain"
)

func TestRequestValidator_Validate(t *testing.T) {
	ctx := context.Background()
	v := NewRequestValidator()

	tests := []struct {
		name    string
		req     *domain.OrderRequest
		wantMsg string // пусто - ошибки нет
	}{
		{"ok_min", &domain.OrderRequest{ISBN: "1234567891", Quantity: 1}, ""},
		{"ok_max", &domain.OrderRequest{ISBN: "1234567891", Quantity: 5}, ""},
		{"nil", nil, "must not be nil"},
		{"missing_isbn", &domain.OrderRequest{Quantity: 1}, "The book ISBN must be defined."},
		{"blank_isbn", &domain.OrderRequest{ISBN: "   ", Quantity: 1}, "The book ISBN must be defined."},
		{"missing_quantity", &domain.OrderRequest{ISBN: "1234567891"}, "The book quantity must be defined."},
		{"negative_quantity", &domain.OrderRequest{ISBN: "1234567891", Quantity: -1}, "You must order at least 1 item."},
		{"too_many", &domain.OrderRequest{ISBN: "1234567891", Quantity: 6}, "You cannot order more than 5 items."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(ctx, tt.req)
			if tt.wantMsg == "" {
				if err != nil {
					t.Fatalf("unexpected err: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("want ErrInvalidRequest, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Fatalf("err %q must contain %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestRequestValidator_CollectsAllFieldMessages(t *testing.T) {
	err := NewRequestValidator().Validate(context.Background(), &domain.OrderRequest{Quantity: 9})
	if err == nil {
		t.Fatalf("expected error")
	}
	for _, want := range []string{"The book ISBN must be defined.", "You cannot order more than 5 items."} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("err %q must contain %q", err.Error(), want)
		}
	}
}

func TestValidateRequestFromJSON(t *testing.T) {
	ctx := context.Background()
	v := NewRequestValidator()

	req, err := ValidateRequestFromJSON(ctx, v, []byte(`{"isbn":"1234567891","quantity":2}`))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if req.ISBN != "1234567891" || req.Quantity != 2 {
		t.Fatalf("unexpected request: %+v", req)
	}

	bad := map[string]string{
		"unknown_field": `{"isbn":"1234567891","quantity":2,"price":10}`,
		"trailing_data": `{"isbn":"1234567891","quantity":2} {}`,
		"not_json":      `isbn=1`,
		"wrong_type":    `{"isbn":"1234567891","quantity":"two"}`,
		"rules":         `{"isbn":"","quantity":2}`,
	}
	for name, raw := range bad {
		t.Run(name, func(t *testing.T) {
			if _, err := ValidateRequestFromJSON(ctx, v, []byte(raw)); !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("want ErrInvalidRequest, got %v", err)
			}
		})
	}
}
