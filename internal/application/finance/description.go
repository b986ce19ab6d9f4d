package finance

import "github.com/jhoicas/Confinamiento-api/internal/domain/entity"

// Las descripciones se generan siempre desde los datos del lote; nunca se usan para identificar una entrada.

func (s *Synchronizer) describeCost(lot *entity.Lot, category entity.CostCategory) string {
	switch category {
	case entity.CostPurchase:
		return s.printer.Sprintf("Compra de gado - Lote %s (%d cabeças, %.2f kg)",
			lot.Code, lot.InitialQuantity, lot.PurchaseWeight.InexactFloat64())
	case entity.CostFreight:
		return s.printer.Sprintf("Frete - Lote %s", lot.Code)
	case entity.CostCommission:
		return s.printer.Sprintf("Comissão - Lote %s", lot.Code)
	}
	return s.printer.Sprintf("%s - Lote %s", category, lot.Code)
}

func (s *Synchronizer) describeMortality(lot *entity.Lot, event *entity.MortalityEvent) string {
	return s.printer.Sprintf("Perda por mortalidade - Lote %s: %d cabeça(s), causa %s",
		lot.Code, event.Quantity, event.Cause)
}
