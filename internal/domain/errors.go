package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias de infraestructura).
var (
	ErrNotFound               = errors.New("recurso no encontrado")
	ErrInvalidInput           = errors.New("entrada inválida")
	ErrDuplicate              = errors.New("recurso duplicado")
	ErrUnauthorized           = errors.New("no autorizado")
	ErrForbidden              = errors.New("acceso denegado")
	ErrConflict               = errors.New("conflicto con el estado actual")
	ErrInvalidTransition      = errors.New("transición de etapa no permitida")
	ErrCapacityExceeded       = errors.New("capacidad del corral excedida")
	ErrValuationDivergence    = errors.New("valor almacenado diverge del recalculado")
	ErrConcurrentModification = errors.New("modificación concurrente")
	ErrSyncPending            = errors.New("sincronización financiera pendiente")
	ErrTransactionTimeout     = errors.New("tiempo de transacción agotado")
	ErrTransient              = errors.New("error transitorio de persistencia")
	ErrLotHasDependents       = errors.New("el lote tiene registros dependientes")
)

// ValidationError describe una entrada mal formada o fuera de rango. Se rechaza antes de mutar.
type ValidationError struct {
	Entity string
	ID     string
	Field  string
	Value  any
	Limit  any
	Reason string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s: campo %q inválido", e.Entity, e.Field)
	if e.ID != "" {
		msg = fmt.Sprintf("%s %s: campo %q inválido", e.Entity, e.ID, e.Field)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (valor=%v", e.Value)
		if e.Limit != nil {
			msg += fmt.Sprintf(", límite=%v", e.Limit)
		}
		msg += ")"
	}
	return msg
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// Invalid construye un ValidationError sin valor ni límite.
func Invalid(entity, id, field, reason string) *ValidationError {
	return &ValidationError{Entity: entity, ID: id, Field: field, Reason: reason}
}

// InvalidTransitionError operación de ciclo de vida intentada desde una etapa que no la permite.
type InvalidTransitionError struct {
	LotID     string
	Operation string
	From      string
	To        string
}

func (e *InvalidTransitionError) Error() string {
	if e.To != "" {
		return fmt.Sprintf("lote %s: %s no permitido de %s a %s", e.LotID, e.Operation, e.From, e.To)
	}
	return fmt.Sprintf("lote %s: %s no permitido en etapa %s", e.LotID, e.Operation, e.From)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// CapacityExceededError la asignación superaría la capacidad del corral.
type CapacityExceededError struct {
	PenID     string
	Requested int
	Available int
	Capacity  int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("corral %s: solicitado %d, disponible %d (capacidad %d)",
		e.PenID, e.Requested, e.Available, e.Capacity)
}

func (e *CapacityExceededError) Unwrap() error { return ErrCapacityExceeded }

// ValuationDivergenceError el valor almacenado y el recalculado difieren más de la tolerancia.
// Se reporta como advertencia; la corrección requiere una reconciliación explícita.
type ValuationDivergenceError struct {
	LotID      string
	Stored     decimal.Decimal
	Recomputed decimal.Decimal
	Divergence decimal.Decimal
	Tolerance  decimal.Decimal
}

func (e *ValuationDivergenceError) Error() string {
	return fmt.Sprintf("lote %s: valor almacenado %s vs recalculado %s (divergencia %s > %s)",
		e.LotID, e.Stored.StringFixed(2), e.Recomputed.StringFixed(2),
		e.Divergence.StringFixed(6), e.Tolerance.String())
}

func (e *ValuationDivergenceError) Unwrap() error { return ErrValuationDivergence }

// ConcurrentModificationError conflicto optimista que persistió tras los reintentos.
type ConcurrentModificationError struct {
	Operation string
	Attempts  int
	Err       error
}

func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("%s: conflicto concurrente tras %d intentos: %v", e.Operation, e.Attempts, e.Err)
}

func (e *ConcurrentModificationError) Is(target error) bool {
	return target == ErrConcurrentModification
}

func (e *ConcurrentModificationError) Unwrap() error { return e.Err }

// SyncPendingError la mutación del lote se aplicó pero la sincronización financiera falló.
// Viaja como advertencia adjunta al resultado, nunca como error de la operación.
type SyncPendingError struct {
	LotID   string
	LotCode string
	Scope   string
	Err     error
}

func (e *SyncPendingError) Error() string {
	return fmt.Sprintf("lote %s (%s): sincronización %s pendiente: %v", e.LotCode, e.LotID, e.Scope, e.Err)
}

func (e *SyncPendingError) Is(target error) bool { return target == ErrSyncPending }

func (e *SyncPendingError) Unwrap() error { return e.Err }

// TransactionTimeoutError la unidad transaccional excedió su tiempo límite; nada fue confirmado.
type TransactionTimeoutError struct {
	Operation string
	Timeout   time.Duration
}

func (e *TransactionTimeoutError) Error() string {
	return fmt.Sprintf("%s: transacción abortada tras %s", e.Operation, e.Timeout)
}

func (e *TransactionTimeoutError) Unwrap() error { return ErrTransactionTimeout }
