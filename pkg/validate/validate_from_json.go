package validate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/Gunvolt24/book_orders/internal/domain"
	"github.com/Gunvolt24/book_orders/internal/ports"
)

// DecodeRequest — строгий разбор заявки: неизвестные поля и хвост после объекта запрещены.
func DecodeRequest(raw []byte) (*domain.OrderRequest, error) {
	var req domain.OrderRequest
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("%w: invalid json: %v", ErrInvalidRequest, err)
	}
	if err := dec.Decode(new(struct{})); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: invalid json: trailing data", ErrInvalidRequest)
	}
	return &req, nil
}

// ValidateRequestFromJSON — разбор и валидация заявки из JSON.
func ValidateRequestFromJSON(ctx context.Context, validator ports.RequestValidator, raw []byte) (*domain.OrderRequest, error) {
	req, err := DecodeRequest(raw)
	if err != nil {
		return nil, err
	}
	if err := validator.Validate(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}
