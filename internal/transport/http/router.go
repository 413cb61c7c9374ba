package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/Gunvolt24/book_orders/internal/ports"
	"github.com/Gunvolt24/book_orders/pkg/httpx"
	"github.com/Gunvolt24/book_orders/pkg/validate"
)

// maxBodyBytes — предел тела POST /orders.
const maxBodyBytes = 1 << 20

type Handler struct {
	service   ports.OrderService
	validator ports.RequestValidator
	log       ports.Logger
	timeout   time.Duration
}

// NewHandler — timeout ограничивает обработку одного запроса; 0 — без ограничения.
func NewHandler(service ports.OrderService, validator ports.RequestValidator, log ports.Logger, timeout time.Duration) *Handler {
	return &Handler{service: service, validator: validator, log: log, timeout: timeout}
}

// NewRouter собирает gin.Engine. Пустой otelServiceName отключает otelgin.
func NewRouter(h *Handler, otelServiceName string) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true

	if otelServiceName != "" {
		r.Use(otelgin.Middleware(otelServiceName))
	}
	r.Use(httpx.RequestIDMiddleware())
	r.Use(httpx.IdempotencyKeyMiddleware())
	r.Use(httpx.RequestLogger(h.log))
	r.Use(gin.Recovery())

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	})

	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	orders := r.Group("/orders")
	orders.POST("", h.submitOrder)
	orders.GET("", h.listOrders)
	orders.GET("/:id", h.getOrderByID)
	orders.DELETE("/:id", h.deleteOrder)

	return r
}

func (h *Handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), h.timeout)
}

// submitOrder — POST /orders.
func (h *Handler) submitOrder(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read body"})
		return
	}

	req, err := validate.ValidateRequestFromJSON(ctx, h.validator, raw)
	if err != nil {
		if errors.Is(err, validate.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.log.Errorf(ctx, "request validation failed err=%v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	order, err := h.service.Submit(ctx, req.ISBN, req.Quantity)
	if err != nil {
		if errors.Is(err, ports.ErrRequestInFlight) {
			c.JSON(http.StatusConflict, gin.H{"error": "request with this Idempotency-Key is in progress, retry later"})
			return
		}
		h.log.Errorf(ctx, "Submit failed isbn=%s err=%v", req.ISBN, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, order)
}

// listOrders — GET /orders: JSON-массив пишется по мере чтения из хранилища.
func (h *Handler) listOrders(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	started := false
	for order, err := range h.service.ListAll(ctx) {
		if err != nil {
			h.log.Errorf(ctx, "ListAll failed err=%v", err)
			if !started {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
			// статус уже отправлен: обрываем ответ, клиент получит невалидный JSON
			c.Abort()
			return
		}

		chunk, mErr := json.Marshal(order)
		if mErr != nil {
			h.log.Errorf(ctx, "marshal order id=%d err=%v", order.ID, mErr)
			continue
		}
		if !started {
			c.Header("Content-Type", "application/json; charset=utf-8")
			c.Status(http.StatusOK)
			_, _ = c.Writer.WriteString("[")
			started = true
		} else {
			_, _ = c.Writer.WriteString(",")
		}
		_, _ = c.Writer.Write(chunk)
		c.Writer.Flush()
	}

	if !started {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte("[]"))
		return
	}
	_, _ = c.Writer.WriteString("]")
}

// getOrderByID — GET /orders/:id.
func (h *Handler) getOrderByID(c *gin.Context) {
	id, err := httpx.ParseOrderID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	order, err := h.service.GetOrder(ctx, id)
	if err != nil {
		h.log.Errorf(ctx, "GetOrder failed id=%d err=%v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if order == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}
	c.JSON(http.StatusOK, order)
}

// deleteOrder — DELETE /orders/:id, повторное удаление тоже 204.
func (h *Handler) deleteOrder(c *gin.Context) {
	id, err := httpx.ParseOrderID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	if err := h.service.DeleteByID(ctx, id); err != nil {
		h.log.Errorf(ctx, "DeleteByID failed id=%d err=%v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.Status(http.StatusNoContent)
}
