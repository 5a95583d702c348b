package product

import (
	"database/sql"

	"go.uber.org/zap"

	"radagast/internal/audit"
	"radagast/internal/product/controller"
	"radagast/internal/product/repository"
	stockrepo "radagast/internal/stock/repository"
)

func NewModule(db *sql.DB, logger *zap.Logger) *controller.ProductController {
	productRepo := repository.NewMySQLProductRepository(db)
	stockRepo := stockrepo.NewMySQLStockRepository(db)
	auditor := audit.NewRecorder(logger)

	return controller.NewProductController(productRepo, stockRepo, auditor, logger)
}
