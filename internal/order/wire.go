package order

import (
	"database/sql"

	"go.uber.org/zap"

	"radagast/internal/audit"
	"radagast/internal/banking"
	"radagast/internal/config"
	"radagast/internal/counters"
	"radagast/internal/order/controller"
	orderrepo "radagast/internal/order/repository"
	"radagast/internal/order/service"
	"radagast/internal/order/usecase"
	productrepo "radagast/internal/product/repository"
	productservice "radagast/internal/product/service"
	stockrepo "radagast/internal/stock/repository"
	stockservice "radagast/internal/stock/service"
)

func NewModule(db *sql.DB, cfg *config.Config, logger *zap.Logger) *controller.OrderController {
	orderRepo := orderrepo.NewMySQLOrderRepository(db)
	productRepo := productrepo.NewMySQLProductRepository(db)
	stockRepo := stockrepo.NewMySQLStockRepository(db)
	counterRepo := counters.NewMySQLCounterRepository(db)

	auditor := audit.NewRecorder(logger)
	pricing := productservice.NewPricingService()
	disposition := stockservice.NewDispositionService(db, logger)
	bankingSvc := banking.NewService(banking.NewMySQLTransactionRepository(db), counterRepo, logger)

	reservationSvc := service.NewReservationService(stockRepo, logger, cfg.Order.ReservationTimeout)
	lifecycleSvc := service.NewLifecycleService(orderRepo, reservationSvc, bankingSvc, disposition, auditor, logger)

	createUC := usecase.NewCreateOrderUseCase(productRepo, pricing, counterRepo, reservationSvc, orderRepo, auditor, logger)
	statusUC := usecase.NewUpdateOrderStatusUseCase(lifecycleSvc, logger)
	expireUC := usecase.NewExpirePendingUseCase(orderRepo, lifecycleSvc, cfg.Order.PendingTTL, logger)

	return controller.NewOrderController(createUC, statusUC, expireUC, orderRepo, logger)
}
