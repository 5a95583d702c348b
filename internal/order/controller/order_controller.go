package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"radagast/internal/domain"
	"radagast/internal/dto"
	apperrors "radagast/internal/errors"
	"radagast/internal/order/usecase"
)

type CreateOrderUseCase interface {
	CreateOrder(ctx context.Context, in usecase.CreateOrderInput) (*domain.Order, error)
}

type UpdateOrderStatusUseCase interface {
	UpdateStatus(ctx context.Context, orderRef string, newStatus string, notes *string) (*domain.Order, error)
}

type ExpirePendingUseCase interface {
	ExpirePending(ctx context.Context) (*usecase.ExpireResult, error)
}

type OrderFinder interface {
	FindByRef(ctx context.Context, orderRef string) (*domain.Order, error)
}

type OrderController struct {
	createUC CreateOrderUseCase
	statusUC UpdateOrderStatusUseCase
	expireUC ExpirePendingUseCase
	finder   OrderFinder
	logger   *zap.Logger
}

func NewOrderController(
	createUC CreateOrderUseCase,
	statusUC UpdateOrderStatusUseCase,
	expireUC ExpirePendingUseCase,
	finder OrderFinder,
	logger *zap.Logger,
) *OrderController {
	return &OrderController{
		createUC: createUC,
		statusUC: statusUC,
		expireUC: expireUC,
		finder:   finder,
		logger:   logger,
	}
}

func (c *OrderController) CreateOrder(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	var req dto.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		c.writeValidationError(w, traceID, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	if err := c.validateCreateOrderRequest(req); err != nil {
		ve, _ := apperrors.IsValidationError(err)
		c.writeValidationError(w, traceID, ve.Message, ve.Details...)
		return
	}

	items := make([]usecase.CreateOrderItemInput, len(req.Items))
	for i, item := range req.Items {
		items[i] = usecase.CreateOrderItemInput{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	order, err := c.createUC.CreateOrder(r.Context(), usecase.CreateOrderInput{
		CustomerID:  req.CustomerID,
		ProfileType: req.ProfileType,
		Channel:     req.Channel,
		Notes:       req.Notes,
		Items:       items,
	})
	if err != nil {
		c.handleError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusCreated, orderResponse(traceID, order, nil))
}

func (c *OrderController) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	orderRef := chi.URLParam(r, "orderRef")
	if orderRef == "" {
		c.writeValidationError(w, traceID, "orderRef is required", apperrors.ValidationDetail{
			Field:   "orderRef",
			Message: "orderRef must be provided in the path",
		})
		return
	}

	var req dto.UpdateOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		c.writeValidationError(w, traceID, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	if req.Status == "" {
		c.writeValidationError(w, traceID, "status is required", apperrors.ValidationDetail{
			Field:   "status",
			Message: "status must not be empty",
		})
		return
	}

	order, err := c.statusUC.UpdateStatus(r.Context(), orderRef, req.Status, req.Notes)
	if err != nil {
		// The transition may have gone through while a ledger step failed;
		// a non-nil order means the status write was recorded.
		if order != nil {
			if _, ok := apperrors.IsReservationInconsistencyError(err); ok {
				warning := err.Error()
				logger.Error("transition recorded with ledger inconsistency", zap.String("orderRef", orderRef), zap.Error(err))
				c.writeJSON(w, http.StatusOK, orderResponse(traceID, order, &warning))
				return
			}
			// A failed stock release means reserved units are stranded until
			// an operator reconciles; unlike a flagged inconsistency this is
			// a hard failure, answered as such with the recorded state
			// attached.
			if _, ok := apperrors.IsCompensationError(err); ok {
				logger.Error("transition recorded with failed stock release", zap.String("orderRef", orderRef), zap.Error(err))
				c.writeJSON(w, http.StatusInternalServerError, compensationFailureResponse{
					TraceID:   traceID,
					Status:    http.StatusInternalServerError,
					Code:      "COMPENSATION_FAILED",
					Message:   err.Error(),
					Order:     orderResponse(traceID, order, nil),
					Timestamp: time.Now().UTC(),
				})
				return
			}
		}
		c.handleError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, orderResponse(traceID, order, nil))
}

func (c *OrderController) GetOrder(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	orderRef := chi.URLParam(r, "orderRef")
	order, err := c.finder.FindByRef(r.Context(), orderRef)
	if err != nil {
		c.handleError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, orderResponse(traceID, order, nil))
}

func (c *OrderController) ExpirePending(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	result, err := c.expireUC.ExpirePending(r.Context())
	if err != nil {
		c.handleError(w, traceID, err, logger)
		return
	}

	resp := dto.ExpirePendingResponse{
		TraceID: traceID,
		Expired: result.Expired,
		Failed:  result.Failed,
	}
	if resp.Expired == nil {
		resp.Expired = []string{}
	}
	if resp.Failed == nil {
		resp.Failed = []string{}
	}

	c.writeJSON(w, http.StatusOK, resp)
}

func (c *OrderController) validateCreateOrderRequest(req dto.CreateOrderRequest) error {
	var details []apperrors.ValidationDetail

	if req.CustomerID <= 0 {
		msg := "customerId must be a positive integer"
		if req.CustomerID == 0 {
			msg = "customerId is required"
		}
		details = append(details, apperrors.ValidationDetail{
			Field:   "customerId",
			Message: msg,
		})
	}

	if len(req.Items) == 0 {
		details = append(details, apperrors.ValidationDetail{
			Field:   "items",
			Message: "items must not be empty",
		})
	}

	if len(req.Items) > 100 {
		details = append(details, apperrors.ValidationDetail{
			Field:   "items",
			Message: "items exceeds maximum of 100",
		})
	}

	seen := make(map[int]bool)
	for idx, item := range req.Items {
		field := "items[" + strconv.Itoa(idx) + "]"

		if item.ProductID <= 0 {
			details = append(details, apperrors.ValidationDetail{
				Field:   field + ".productId",
				Message: "each productId must be a positive integer",
			})
		}

		if seen[item.ProductID] {
			details = append(details, apperrors.ValidationDetail{
				Field:   field + ".productId",
				Message: "productId must not be duplicated",
			})
		}
		seen[item.ProductID] = true

		if item.Quantity < 1 || item.Quantity > 10000 {
			details = append(details, apperrors.ValidationDetail{
				Field:   field + ".quantity",
				Message: "quantity must be between 1 and 10000",
			})
		}
	}

	if len(details) > 0 {
		return apperrors.NewValidationError("validation failed", details...)
	}

	return nil
}

func (c *OrderController) handleError(w http.ResponseWriter, traceID string, err error, logger *zap.Logger) {
	if ve, ok := apperrors.IsValidationError(err); ok {
		c.writeValidationError(w, traceID, ve.Message, ve.Details...)
		return
	}

	if _, ok := apperrors.IsNotFoundError(err); ok {
		c.writeError(w, traceID, http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	}

	if ise, ok := apperrors.IsInsufficientStockError(err); ok {
		logger.Warn("insufficient stock", zap.Ints("productIds", ise.ProductIDs))
		c.writeError(w, traceID, http.StatusConflict, "INSUFFICIENT_STOCK", err.Error())
		return
	}

	if _, ok := apperrors.IsConflictError(err); ok {
		c.writeError(w, traceID, http.StatusConflict, "CONFLICT", err.Error())
		return
	}

	if _, ok := apperrors.IsInvalidTransitionError(err); ok {
		c.writeError(w, traceID, http.StatusBadRequest, "INVALID_TRANSITION", err.Error())
		return
	}

	if _, ok := apperrors.IsCompensationError(err); ok {
		logger.Error("compensation failure, ledger needs manual reconciliation", zap.Error(err))
		c.writeError(w, traceID, http.StatusInternalServerError, "COMPENSATION_FAILED", err.Error())
		return
	}

	logger.Error("unexpected error", zap.Error(err))
	c.writeError(w, traceID, http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred")
}

func orderResponse(traceID string, order *domain.Order, stockWarning *string) dto.OrderResponse {
	items := make([]dto.OrderItemResponse, len(order.Items))
	for i, item := range order.Items {
		var margin *string
		if item.MarginAtPurchase != nil {
			m := item.MarginAtPurchase.StringFixed(2)
			margin = &m
		}
		items[i] = dto.OrderItemResponse{
			ProductID:        item.ProductID,
			ProductName:      item.ProductName,
			Quantity:         item.Quantity,
			PriceAtPurchase:  item.PriceAtPurchase.StringFixed(2),
			MarginAtPurchase: margin,
			PriceTier:        item.PriceTier,
		}
	}

	transactionRefs := order.TransactionRefs
	if transactionRefs == nil {
		transactionRefs = []string{}
	}

	return dto.OrderResponse{
		TraceID:         traceID,
		OrderRef:        order.OrderRef,
		CustomerID:      order.CustomerID,
		Channel:         order.Channel,
		Status:          string(order.Status),
		TotalAmount:     order.TotalAmount.StringFixed(2),
		Items:           items,
		TransactionRefs: transactionRefs,
		Notes:           order.Notes,
		StockWarning:    stockWarning,
		DeliveredAt:     order.DeliveredAt,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
}

// compensationFailureResponse reports a status transition that was recorded
// while its stock release failed. The order reflects the persisted state;
// the 500 tells the caller stock needs manual reconciliation.
type compensationFailureResponse struct {
	TraceID   string            `json:"traceId"`
	Status    int               `json:"status"`
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Order     dto.OrderResponse `json:"order"`
	Timestamp time.Time         `json:"timestamp"`
}

type errorResponse struct {
	TraceID   string    `json:"traceId"`
	Status    int       `json:"status"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func (c *OrderController) writeError(w http.ResponseWriter, traceID string, statusCode int, code, message string) {
	c.writeJSON(w, statusCode, errorResponse{
		TraceID:   traceID,
		Status:    statusCode,
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

type validationErrorResponse struct {
	TraceID string                       `json:"traceId"`
	Error   string                       `json:"error"`
	Message string                       `json:"message"`
	Details []apperrors.ValidationDetail `json:"details"`
}

func (c *OrderController) writeValidationError(w http.ResponseWriter, traceID string, message string, details ...apperrors.ValidationDetail) {
	c.writeJSON(w, http.StatusBadRequest, validationErrorResponse{
		TraceID: traceID,
		Error:   "VALIDATION_ERROR",
		Message: message,
		Details: details,
	})
}

func (c *OrderController) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}
