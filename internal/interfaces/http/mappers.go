package http

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Confinamiento-api/internal/application/dto"
	"github.com/jhoicas/Confinamiento-api/internal/application/finance"
	"github.com/jhoicas/Confinamiento-api/internal/application/lot"
	"github.com/jhoicas/Confinamiento-api/internal/domain/entity"
)

var hundred = decimal.NewFromInt(100)

func percentOf(part, whole int) decimal.Decimal {
	if whole <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(part)).Mul(hundred).Div(decimal.NewFromInt(int64(whole))).Round(2)
}

func toLotResponse(l *entity.Lot, warnings []error) dto.LotResponse {
	avg := decimal.Zero
	if l.CurrentQuantity > 0 {
		avg = l.CurrentWeight.Div(decimal.NewFromInt(int64(l.CurrentQuantity))).Round(3)
	}
	return dto.LotResponse{
		ID:                   l.ID,
		Code:                 l.Code,
		VendorID:             l.VendorID,
		BrokerID:             l.BrokerID,
		Stage:                string(l.Stage),
		Status:               string(l.Status),
		InitialQuantity:      l.InitialQuantity,
		CurrentQuantity:      l.CurrentQuantity,
		DeathCount:           l.DeathCount,
		SoldQuantity:         l.SoldQuantity,
		PurchaseWeight:       l.PurchaseWeight,
		ReceivedWeight:       l.ReceivedWeight,
		CurrentWeight:        l.CurrentWeight,
		AverageWeight:        avg,
		WeightBreakPercent:   l.WeightBreakPercent,
		CarcassYieldPercent:  l.CarcassYieldPercent,
		PricePerStandardUnit: l.PricePerStandardUnit,
		PurchaseValue:        l.PurchaseValue,
		FreightCost:          l.FreightCost,
		Commission:           l.Commission,
		TotalCost:            l.TotalCost(),
		CurrentTotalCost:     l.CurrentTotalCost(),
		CostPerHead:          l.CostPerHead,
		PurchaseDate:         l.PurchaseDate,
		ReceivedDate:         l.ReceivedDate,
		PrincipalDueDate:     l.PrincipalDueDate,
		FreightDueDate:       l.FreightDueDate,
		CommissionDueDate:    l.CommissionDueDate,
		CancelReason:         l.CancelReason,
		CancelledAt:          l.CancelledAt,
		SyncPending:          l.SyncPending,
		Notes:                l.Notes,
		Version:              l.Version,
		CreatedBy:            l.CreatedBy,
		CreatedAt:            l.CreatedAt,
		UpdatedAt:            l.UpdatedAt,
		Warnings:             toWarnings(warnings),
	}
}

func toResultResponse(r *lot.Result) dto.LotResponse {
	return toLotResponse(r.Lot, r.Warnings)
}

func toEntryResponse(e *entity.FinancialEntry) dto.FinancialEntryResponse {
	return dto.FinancialEntryResponse{
		ID:              e.ID,
		NaturalKey:      e.NaturalKey,
		LotID:           e.LotID,
		LotCode:         e.LotCode,
		Category:        string(e.Category),
		SourceEventID:   e.SourceEventID,
		Type:            e.Type,
		Amount:          e.Amount,
		Date:            e.Date,
		DueDate:         e.DueDate,
		Status:          e.Status,
		ImpactsCashFlow: e.ImpactsCashFlow,
		ManuallyEdited:  e.ManuallyEdited,
		Description:     e.Description,
		PaidAt:          e.PaidAt,
		Version:         e.Version,
	}
}

func toEntryResponses(entries []*entity.FinancialEntry) []dto.FinancialEntryResponse {
	out := make([]dto.FinancialEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	return out
}

func toMortalityResponse(e *entity.MortalityEvent) dto.MortalityResponse {
	return dto.MortalityResponse{
		ID:           e.ID,
		PenID:        e.PenID,
		AllocationID: e.AllocationID,
		Quantity:     e.Quantity,
		Cause:        string(e.Cause),
		Notes:        e.Notes,
		UnitCost:     e.UnitCost,
		LossAmount:   e.LossAmount,
		OccurredAt:   e.OccurredAt,
	}
}

func toSyncReportResponse(r *finance.SyncReport) dto.SyncReportResponse {
	return dto.SyncReportResponse{
		LotID:     r.LotID,
		Skipped:   r.Skipped,
		Created:   r.Created,
		Updated:   r.Updated,
		Cancelled: r.Cancelled,
		Reopened:  r.Reopened,
		Unchanged: r.Unchanged,
		Warnings:  toWarnings(r.Warnings),
	}
}

func toHistoryResponse(h *lot.History) dto.LotHistoryResponse {
	out := dto.LotHistoryResponse{
		Lot:         toLotResponse(h.Lot, nil),
		Allocations: make([]dto.AllocationResponse, 0, len(h.Allocations)),
		Mortality:   make([]dto.MortalityResponse, 0, len(h.Mortality)),
		Weights:     make([]dto.WeightEventResponse, 0, len(h.Weights)),
		Sales:       make([]dto.SaleResponse, 0, len(h.Sales)),
		Entries:     toEntryResponses(h.Entries),
		Stats: dto.LotStatsResponse{
			MortalityRate: h.Stats.MortalityRate,
			TotalLoss:     h.Stats.TotalLoss,
			TotalSoldCost: h.Stats.TotalSoldCost,
			AllocatedNow:  h.Stats.Allocated,
			Unallocated:   h.Stats.Unallocated,
		},
	}
	for _, a := range h.Allocations {
		resp := dto.AllocationResponse{
			ID:                 a.ID,
			PenID:              a.PenID,
			Quantity:           a.Quantity,
			Status:             a.Status,
			EntryDate:          a.EntryDate,
			ExitDate:           a.ExitDate,
			SourceAllocationID: a.SourceAllocationID,
			LotPercent:         decimal.Zero,
			PenPercent:         decimal.Zero,
		}
		if a.IsActive() {
			resp.LotPercent = percentOf(a.Quantity, h.Lot.CurrentQuantity)
		}
		if pen, ok := h.Pens[a.PenID]; ok {
			resp.PenNumber = pen.Number
			if a.IsActive() {
				resp.PenPercent = percentOf(a.Quantity, pen.Occupancy)
			}
		}
		out.Allocations = append(out.Allocations, resp)
	}
	for _, e := range h.Mortality {
		out.Mortality = append(out.Mortality, toMortalityResponse(e))
	}
	for _, w := range h.Weights {
		out.Weights = append(out.Weights, dto.WeightEventResponse{
			ID:           w.ID,
			PenID:        w.PenID,
			DeltaWeight:  w.DeltaWeight,
			WeightBefore: w.WeightBefore,
			WeightAfter:  w.WeightAfter,
			Reason:       w.Reason,
			OccurredAt:   w.OccurredAt,
		})
	}
	for _, s := range h.Sales {
		out.Sales = append(out.Sales, dto.SaleResponse{
			ID:         s.ID,
			Quantity:   s.Quantity,
			UnitCost:   s.UnitCost,
			CostAmount: s.CostAmount,
			SoldAt:     s.SoldAt,
		})
	}
	return out
}
