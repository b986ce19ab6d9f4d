package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Confinamiento-api/internal/application/finance"
	"github.com/jhoicas/Confinamiento-api/internal/application/lot"
	"github.com/jhoicas/Confinamiento-api/internal/application/pen"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	LotUC     *lot.UseCase
	PenUC     *pen.UseCase
	Finance   *finance.Synchronizer
	JWTSecret string
}

// Router registra las rutas de la API. Todas requieren Bearer Token; las lecturas admiten
// cualquier rol, las mutaciones operador o admin, y las correcciones solo admin.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	write := RequireRole(RoleAdmin, RoleOperator)
	admin := RequireRole(RoleAdmin)

	// Lots
	lots := protected.Group("/lots")
	lotHandler := NewLotHandler(deps.LotUC, deps.Finance)
	lots.Post("/", write, lotHandler.Create)
	lots.Get("/", lotHandler.List)
	lots.Get("/:id", lotHandler.GetByID)
	lots.Delete("/:id", admin, lotHandler.Delete)
	lots.Patch("/:id/terms", write, lotHandler.UpdateTerms)
	lots.Post("/:id/confirm", write, lotHandler.Confirm)
	lots.Post("/:id/reception", write, lotHandler.Reception)
	lots.Post("/:id/allocations", write, lotHandler.Allocate)
	lots.Post("/:id/reallocations", write, lotHandler.Reallocate)
	lots.Post("/:id/releases", write, lotHandler.Release)
	lots.Post("/:id/mortalities", write, lotHandler.RecordMortality)
	lots.Post("/:id/weight-losses", write, lotHandler.RecordWeightLoss)
	lots.Post("/:id/sales", write, lotHandler.MarkSold)
	lots.Post("/:id/cancel", write, lotHandler.Cancel)
	lots.Get("/:id/valuation", lotHandler.Valuation)
	lots.Post("/:id/valuation/reconcile", admin, lotHandler.ReconcileValuation)
	lots.Post("/:id/sync", write, lotHandler.Sync)
	lots.Get("/:id/history", lotHandler.History)
	lots.Get("/:id/entries", lotHandler.Entries)

	// Pens
	pens := protected.Group("/pens")
	penHandler := NewPenHandler(deps.PenUC)
	pens.Post("/", write, penHandler.Create)
	pens.Get("/", penHandler.List)
	pens.Get("/:id", penHandler.GetByID)
	pens.Patch("/:id/status", write, penHandler.SetStatus)

	// Finance
	financeHandler := NewFinanceHandler(deps.Finance)
	entries := protected.Group("/entries")
	entries.Patch("/:id", write, financeHandler.EditEntry)
	entries.Post("/:id/pay", write, financeHandler.MarkPaid)
	protected.Post("/finance/reconcile", admin, financeHandler.ReconcilePending)
}
