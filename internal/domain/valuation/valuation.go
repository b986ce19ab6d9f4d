// Package valuation convierte peso vivo, rendimiento de carcasa y precio por arroba en valor monetario.
// Es el único lugar donde se aplica el rendimiento por defecto.
package valuation

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Confinamiento-api/internal/domain"
	"github.com/jhoicas/Confinamiento-api/internal/domain/entity"
)

var (
	// DefaultCarcassYieldPercent rendimiento usado cuando el lote no registra uno propio.
	DefaultCarcassYieldPercent = decimal.NewFromInt(50)
	// StandardUnitKg peso de una arroba.
	StandardUnitKg = decimal.NewFromInt(15)
	// DivergenceTolerance 0,1 % de diferencia relativa admitida entre valor almacenado y recalculado.
	DivergenceTolerance = decimal.RequireFromString("0.001")

	hundred = decimal.NewFromInt(100)
)

// Result desglose de una valuación.
type Result struct {
	CarcassWeight decimal.Decimal
	StandardUnits decimal.Decimal
	Value         decimal.Decimal
	YieldPercent  decimal.Decimal
}

// ComputeValue carcasa = peso × rendimiento / 100; arrobas = carcasa / 15; valor = arrobas × precio.
// El valor se obtiene con una sola división para que no dependa del orden de redondeo.
func ComputeValue(weight, yieldPercent, pricePerUnit decimal.Decimal) (Result, error) {
	if !weight.IsPositive() {
		return Result{}, &domain.ValidationError{Entity: "valuation", Field: "weight", Value: weight.String(), Reason: "debe ser mayor a cero"}
	}
	if !yieldPercent.IsPositive() || yieldPercent.GreaterThan(hundred) {
		return Result{}, &domain.ValidationError{Entity: "valuation", Field: "carcass_yield_percent", Value: yieldPercent.String(), Limit: "(0,100]", Reason: "fuera de rango"}
	}
	if pricePerUnit.IsNegative() {
		return Result{}, &domain.ValidationError{Entity: "valuation", Field: "price_per_unit", Value: pricePerUnit.String(), Reason: "no puede ser negativo"}
	}
	carcass := weight.Mul(yieldPercent).Div(hundred)
	divisor := hundred.Mul(StandardUnitKg)
	return Result{
		CarcassWeight: carcass,
		StandardUnits: weight.Mul(yieldPercent).Div(divisor),
		Value:         weight.Mul(yieldPercent).Mul(pricePerUnit).Div(divisor).Round(2),
		YieldPercent:  yieldPercent,
	}, nil
}

// EffectiveYield aplica el rendimiento por defecto cuando el lote no tiene uno almacenado.
func EffectiveYield(stored *decimal.Decimal) decimal.Decimal {
	if stored == nil {
		return DefaultCarcassYieldPercent
	}
	return *stored
}

// LotValue recalcula el valor de compra de un lote a partir de sus datos crudos.
func LotValue(lot *entity.Lot) (Result, error) {
	return ComputeValue(lot.PurchaseWeight, EffectiveYield(lot.CarcassYieldPercent), lot.PricePerStandardUnit)
}

// Divergence |almacenado - recalculado| / recalculado. Con recalculado cero, cualquier valor
// almacenado distinto de cero se considera divergencia total.
func Divergence(stored, recomputed decimal.Decimal) decimal.Decimal {
	if recomputed.IsZero() {
		if stored.IsZero() {
			return decimal.Zero
		}
		return decimal.NewFromInt(1)
	}
	return stored.Sub(recomputed).Abs().Div(recomputed.Abs())
}

// Validate devuelve ValuationDivergenceError si la divergencia supera la tolerancia. No corrige nada.
func Validate(lotID string, stored, recomputed decimal.Decimal) error {
	div := Divergence(stored, recomputed)
	if div.GreaterThan(DivergenceTolerance) {
		return &domain.ValuationDivergenceError{
			LotID:      lotID,
			Stored:     stored,
			Recomputed: recomputed,
			Divergence: div,
			Tolerance:  DivergenceTolerance,
		}
	}
	return nil
}

// CostPerHead costo promedio ponderado por cabeza viva.
func CostPerHead(currentTotalCost decimal.Decimal, currentQuantity int) decimal.Decimal {
	if currentQuantity <= 0 {
		return decimal.Zero
	}
	return currentTotalCost.Div(decimal.NewFromInt(int64(currentQuantity)))
}

// ProportionalCost parte del costo vivo que corresponde a `quantity` cabezas, redondeada a centavos.
// Multiplica antes de dividir: (costo × cantidad) / existencias.
func ProportionalCost(currentTotalCost decimal.Decimal, currentQuantity, quantity int) decimal.Decimal {
	if currentQuantity <= 0 || quantity <= 0 {
		return decimal.Zero
	}
	if quantity == currentQuantity {
		return currentTotalCost.Round(2)
	}
	return currentTotalCost.Mul(decimal.NewFromInt(int64(quantity))).
		Div(decimal.NewFromInt(int64(currentQuantity))).Round(2)
}
