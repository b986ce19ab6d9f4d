package lot_test

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Confinamiento-api/internal/application/lot"
	"github.com/jhoicas/Confinamiento-api/internal/domain/entity"
	"github.com/jhoicas/Confinamiento-api/internal/domain/repository"
)

func TestFormatCode(t *testing.T) {
	assert.Equal(t, "LOT-2403007", lot.FormatCode("2403", 7))
	assert.Equal(t, "LOT-2412100", lot.FormatCode("2412", 100))
	assert.Equal(t, "LOT-24031234", lot.FormatCode("2403", 1234))
}

func TestCreate_CodeFallsBackToSuffix(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	// Caso 1: los tres primeros códigos del periodo ya existen (cargados fuera del contador)
	err := e.store.Run(ctx, repository.TxOptions{}, func(ctx context.Context, repos repository.Repositories) error {
		for i := 1; i <= 3; i++ {
			if err := repos.Lots.Create(ctx, &entity.Lot{
				ID:              lot.FormatCode("legacy", i),
				Code:            lot.FormatCode("2403", i),
				InitialQuantity: 1,
				CurrentQuantity: 1,
				CostWrittenOff:  decimal.Zero,
				Stage:           entity.StageNegotiating,
				Status:          entity.LotStatusPending,
				CreatedAt:       fixedNow,
				UpdatedAt:       fixedNow,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	l := e.newLot(t)
	require.True(t, strings.HasPrefix(l.Code, "LOT-2403003-"), l.Code)
	assert.Len(t, l.Code, len("LOT-2403003-")+4)

	// Caso 2: el contador sigue avanzando después del respaldo
	next := e.newLot(t)
	assert.Equal(t, "LOT-2403004", next.Code)
}
