package validate

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Gunvolt24/book_orders/internal/domain"
	"github.com/Gunvolt24/book_orders/internal/ports"
)

// Проверка, что RequestValidator удовлетворяет интерфейсу ports.RequestValidator.
var _ ports.RequestValidator = (*RequestValidator)(nil)

// ErrInvalidRequest — базовая (sentinel error) ошибка валидации заявки.
var ErrInvalidRequest = errors.New("order request validation failed")

// Сообщения для клиента по полю и тегу правила.
var messages = map[string]string{
	"isbn.required":     "The book ISBN must be defined.",
	"quantity.required": "The book quantity must be defined.",
	"quantity.min":      "You must order at least 1 item.",
	"quantity.max":      "You cannot order more than 5 items.",
}

// RequestValidator проверяет заявку по тегам `validate` на domain.OrderRequest.
type RequestValidator struct {
	v *validator.Validate
}

// NewRequestValidator — конструктор RequestValidator.
// Возвращает ErrInvalidRequest (с обёрнутой причиной) при любой проблеме.
func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// в ошибках используем json-имена полей
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return &RequestValidator{v: v}
}

// Validate — проверяет заявку. Нулевое количество считается неуказанным.
func (rv *RequestValidator) Validate(ctx context.Context, req *domain.OrderRequest) error {
	if req == nil {
		return fmt.Errorf("%w: request must not be nil", ErrInvalidRequest)
	}
	req.ISBN = strings.TrimSpace(req.ISBN)

	err := rv.v.StructCtx(ctx, req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, messageFor(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(msgs, " "))
}

func messageFor(fe validator.FieldError) string {
	if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	return fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag())
}
