package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/davicafu/ordelab/internal/ordering/application"
	"github.com/davicafu/ordelab/internal/ordering/domain"
)

// OrderHandler encapsula los endpoints HTTP relacionados con pedidos.
type OrderHandler struct {
	service *application.OrderService
}

// NewOrderHandler crea un nuevo OrderHandler
func NewOrderHandler(service *application.OrderService) *OrderHandler {
	return &OrderHandler{service: service}
}

// ---------------- Handlers ----------------

// CreateOrder endpoint POST /orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req struct {
		UserID      string `json:"user_id" binding:"required"`
		UserName    string `json:"user_name" binding:"required"`
		Description string `json:"description" binding:"required"`
		Items       []struct {
			ProductID string `json:"product_id" binding:"required"`
			Units     int    `json:"units" binding:"required,min=1"`
		} `json:"items"`
		CardType   string `json:"card_type" binding:"required"`
		CardNumber string `json:"card_number" binding:"required"`
		CardHolder string `json:"card_holder" binding:"required"`
		CardExpiry string `json:"card_expiry" binding:"required"` // MM/YY
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items := make([]domain.OrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		productID, err := uuid.Parse(it.ProductID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
			return
		}
		items = append(items, domain.OrderItem{ProductID: productID, Units: it.Units})
	}

	order, err := h.service.CreateOrder(c.Request.Context(), application.CreateOrderRequest{
		UserID:      req.UserID,
		UserName:    req.UserName,
		Description: req.Description,
		Items:       items,
		CardType:    req.CardType,
		CardNumber:  req.CardNumber,
		CardHolder:  req.CardHolder,
		CardExpiry:  req.CardExpiry,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, order)
}

// GetOrder endpoint GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	order, err := h.service.GetOrder(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, order)
}

// ShipOrder endpoint PUT /orders/:id/ship
func (h *OrderHandler) ShipOrder(c *gin.Context) {
	h.transition(c, func(id uuid.UUID) (*domain.Order, error) {
		return h.service.Ship(c.Request.Context(), id)
	})
}

// PayOrder endpoint PUT /orders/:id/pay
func (h *OrderHandler) PayOrder(c *gin.Context) {
	h.transition(c, func(id uuid.UUID) (*domain.Order, error) {
		return h.service.SetPaid(c.Request.Context(), id)
	})
}

// CancelOrder endpoint PUT /orders/:id/cancel
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	// El body es opcional: cancelar sin motivo es válido.
	_ = c.ShouldBindJSON(&req)

	h.transition(c, func(id uuid.UUID) (*domain.Order, error) {
		return h.service.Cancel(c.Request.Context(), id, req.Reason)
	})
}

func (h *OrderHandler) transition(c *gin.Context, apply func(id uuid.UUID) (*domain.Order, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	order, err := apply(id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		case errors.Is(err, domain.ErrInvalidTransition):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, order)
}
