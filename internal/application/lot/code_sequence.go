package lot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/Confinamiento-api/internal/domain"
	"github.com/jhoicas/Confinamiento-api/internal/domain/repository"
)

// CodeGenerator genera códigos LOT-YYMMnnn a partir del contador mensual.
type CodeGenerator struct {
	maxAttempts int
	suffix      func() string
}

// NewCodeGenerator maxAttempts acota los intentos antes de recurrir al sufijo aleatorio.
func NewCodeGenerator(maxAttempts int) *CodeGenerator {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &CodeGenerator{
		maxAttempts: maxAttempts,
		suffix: func() string {
			return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:4])
		},
	}
}

// FormatCode LOT-YYMM seguido del número con al menos tres dígitos.
func FormatCode(period string, n int) string {
	return fmt.Sprintf("LOT-%s%03d", period, n)
}

// Next reserva el siguiente código libre del periodo de at. Debe llamarse dentro de la unidad
// que inserta el lote, para que el incremento y la inserción se confirmen juntos.
func (g *CodeGenerator) Next(ctx context.Context, repos repository.Repositories, at time.Time) (string, error) {
	period := at.Format("0601")
	var last string
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		n, err := repos.Sequences.Next(ctx, period)
		if err != nil {
			return "", err
		}
		last = FormatCode(period, n)
		taken, err := repos.Lots.ExistsByCode(ctx, last)
		if err != nil {
			return "", err
		}
		if !taken {
			return last, nil
		}
	}
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		code := last + "-" + g.suffix()
		taken, err := repos.Lots.ExistsByCode(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("periodo %s sin código libre: %w", period, domain.ErrConflict)
}
