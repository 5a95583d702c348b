package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"radagast/internal/audit"
	"radagast/internal/domain"
	"radagast/internal/dto"
	apperrors "radagast/internal/errors"
)

type ProductRepository interface {
	FindByID(ctx context.Context, id int) (*domain.Product, error)
	UpdatePrices(ctx context.Context, productID int, prices domain.ProductPrices, userID *int, reason string) error
	ListPriceHistory(ctx context.Context, productID int) ([]domain.PriceHistoryEntry, error)
}

type StockLedger interface {
	Restock(ctx context.Context, productID, qty int) (bool, error)
}

type ProductController struct {
	repo    ProductRepository
	ledger  StockLedger
	auditor audit.Recorder
	logger  *zap.Logger
}

func NewProductController(repo ProductRepository, ledger StockLedger, auditor audit.Recorder, logger *zap.Logger) *ProductController {
	return &ProductController{repo: repo, ledger: ledger, auditor: auditor, logger: logger}
}

func (c *ProductController) GetProduct(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	productID, err := strconv.Atoi(chi.URLParam(r, "productId"))
	if err != nil || productID <= 0 {
		c.writeValidationError(w, traceID, "invalid productId", apperrors.ValidationDetail{
			Field:   "productId",
			Message: "productId must be a positive integer",
		})
		return
	}

	product, err := c.repo.FindByID(r.Context(), productID)
	if err != nil {
		c.handleError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, productResponse(product))
}

// Restock adds inbound physical units through the same ledger primitive the
// order flow uses; there is no direct write path to the stock columns.
func (c *ProductController) Restock(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	productID, err := strconv.Atoi(chi.URLParam(r, "productId"))
	if err != nil || productID <= 0 {
		c.writeValidationError(w, traceID, "invalid productId", apperrors.ValidationDetail{
			Field:   "productId",
			Message: "productId must be a positive integer",
		})
		return
	}

	var req dto.RestockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.writeValidationError(w, traceID, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	if req.Quantity < 1 || req.Quantity > 1000000 {
		c.writeValidationError(w, traceID, "invalid quantity", apperrors.ValidationDetail{
			Field:   "quantity",
			Message: "quantity must be between 1 and 1000000",
		})
		return
	}

	applied, err := c.ledger.Restock(r.Context(), productID, req.Quantity)
	if err != nil {
		c.handleError(w, traceID, err, logger)
		return
	}
	if !applied {
		c.handleError(w, traceID, apperrors.NewNotFoundError("product not found"), logger)
		return
	}

	c.auditor.Event(r.Context(), "product.restock", "success", "product", map[string]interface{}{
		"productId": productID, "quantity": req.Quantity,
	})

	product, err := c.repo.FindByID(r.Context(), productID)
	if err != nil {
		c.handleError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, productResponse(product))
}

func (c *ProductController) UpdatePrices(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	productID, err := strconv.Atoi(chi.URLParam(r, "productId"))
	if err != nil || productID <= 0 {
		c.writeValidationError(w, traceID, "invalid productId", apperrors.ValidationDetail{
			Field:   "productId",
			Message: "productId must be a positive integer",
		})
		return
	}

	var req dto.UpdatePricesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.writeValidationError(w, traceID, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	if req.Reason == "" {
		c.writeValidationError(w, traceID, "reason is required when updating prices", apperrors.ValidationDetail{
			Field:   "reason",
			Message: "reason must not be empty",
		})
		return
	}

	prices, err := pricesFromDTO(req.Prices)
	if err != nil {
		c.writeValidationError(w, traceID, "invalid price data", apperrors.ValidationDetail{
			Field:   "prices",
			Message: err.Error(),
		})
		return
	}

	if err := c.repo.UpdatePrices(r.Context(), productID, prices, req.UserID, req.Reason); err != nil {
		c.handleError(w, traceID, err, logger)
		return
	}

	c.auditor.Event(r.Context(), "product.price_update", "success", "product", map[string]interface{}{
		"productId": productID, "reason": req.Reason,
	})

	product, err := c.repo.FindByID(r.Context(), productID)
	if err != nil {
		c.handleError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, productResponse(product))
}

func (c *ProductController) GetPriceHistory(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	productID, err := strconv.Atoi(chi.URLParam(r, "productId"))
	if err != nil || productID <= 0 {
		c.writeValidationError(w, traceID, "invalid productId", apperrors.ValidationDetail{
			Field:   "productId",
			Message: "productId must be a positive integer",
		})
		return
	}

	entries, err := c.repo.ListPriceHistory(r.Context(), productID)
	if err != nil {
		c.handleError(w, traceID, err, logger)
		return
	}

	resp := make([]dto.PriceHistoryEntryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, dto.PriceHistoryEntryResponse{
			UserID:    entry.UserID,
			Reason:    entry.Reason,
			Prices:    pricesToDTO(entry.Prices),
			CreatedAt: entry.CreatedAt,
		})
	}

	c.writeJSON(w, http.StatusOK, resp)
}

func (c *ProductController) handleError(w http.ResponseWriter, traceID string, err error, logger *zap.Logger) {
	if _, ok := apperrors.IsNotFoundError(err); ok {
		c.writeJSON(w, http.StatusNotFound, errorResponse{
			TraceID: traceID, Status: http.StatusNotFound, Code: "NOT_FOUND",
			Message: err.Error(), Timestamp: time.Now().UTC(),
		})
		return
	}

	logger.Error("unexpected error", zap.Error(err))
	c.writeJSON(w, http.StatusInternalServerError, errorResponse{
		TraceID: traceID, Status: http.StatusInternalServerError, Code: "INTERNAL_ERROR",
		Message: "an unexpected error occurred", Timestamp: time.Now().UTC(),
	})
}

func productResponse(p *domain.Product) dto.ProductResponse {
	return dto.ProductResponse{
		ID:             p.ID,
		SKU:            p.SKU,
		Name:           p.Name,
		Description:    p.Description,
		Prices:         pricesToDTO(p.Prices),
		StockQuantity:  p.StockQuantity,
		ReservedStock:  p.ReservedStock,
		AvailableStock: p.AvailableStock(),
		IsActive:       p.IsActive,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func pricesToDTO(p domain.ProductPrices) dto.ProductPricesDTO {
	format := func(d *decimal.Decimal) *string {
		if d == nil {
			return nil
		}
		s := d.StringFixed(2)
		return &s
	}
	return dto.ProductPricesDTO{
		Cost:    format(p.Cost),
		SaleA:   format(p.SaleA),
		SaleB:   format(p.SaleB),
		SaleC:   format(p.SaleC),
		ResaleA: format(p.ResaleA),
		ResaleB: format(p.ResaleB),
	}
}

func pricesFromDTO(p dto.ProductPricesDTO) (domain.ProductPrices, error) {
	parse := func(s *string) (*decimal.Decimal, error) {
		if s == nil {
			return nil, nil
		}
		d, err := decimal.NewFromString(*s)
		if err != nil {
			return nil, err
		}
		if d.IsNegative() {
			return nil, fmt.Errorf("price %s must not be negative", d.StringFixed(2))
		}
		return &d, nil
	}

	var prices domain.ProductPrices
	var err error
	if prices.Cost, err = parse(p.Cost); err != nil {
		return prices, err
	}
	if prices.SaleA, err = parse(p.SaleA); err != nil {
		return prices, err
	}
	if prices.SaleB, err = parse(p.SaleB); err != nil {
		return prices, err
	}
	if prices.SaleC, err = parse(p.SaleC); err != nil {
		return prices, err
	}
	if prices.ResaleA, err = parse(p.ResaleA); err != nil {
		return prices, err
	}
	if prices.ResaleB, err = parse(p.ResaleB); err != nil {
		return prices, err
	}
	return prices, nil
}

type errorResponse struct {
	TraceID   string    `json:"traceId"`
	Status    int       `json:"status"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type validationErrorResponse struct {
	TraceID string                       `json:"traceId"`
	Error   string                       `json:"error"`
	Message string                       `json:"message"`
	Details []apperrors.ValidationDetail `json:"details"`
}

func (c *ProductController) writeValidationError(w http.ResponseWriter, traceID string, message string, details ...apperrors.ValidationDetail) {
	c.writeJSON(w, http.StatusBadRequest, validationErrorResponse{
		TraceID: traceID,
		Error:   "VALIDATION_ERROR",
		Message: message,
		Details: details,
	})
}

func (c *ProductController) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}
