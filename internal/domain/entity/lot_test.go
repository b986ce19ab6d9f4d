package entity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/Confinamiento-api/internal/domain/entity"
)

func TestLotStage_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from, to entity.LotStage
		want     bool
	}{
		{entity.StageNegotiating, entity.StageConfirmed, true},
		{entity.StageConfirmed, entity.StageReceived, true},
		{entity.StageReceived, entity.StageConfined, true},
		{entity.StageConfined, entity.StageSold, true},
		{entity.StageReceived, entity.StageCancelled, true},
		{entity.StageNegotiating, entity.StageReceived, false},
		{entity.StageReceived, entity.StageSold, false},
		{entity.StageConfined, entity.StageReceived, false},
		{entity.StageSold, entity.StageCancelled, false},
		{entity.StageCancelled, entity.StageConfirmed, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			assert.Equal(t, tc.want, tc.from.CanTransitionTo(tc.to))
		})
	}
}

func TestLot_SetStageKeepsStatus(t *testing.T) {
	l := &entity.Lot{}

	// Caso 1: etapas con animales en la hacienda
	l.SetStage(entity.StageConfined)
	assert.Equal(t, entity.LotStatusActive, l.Status)

	// Caso 2: cierre
	l.SetStage(entity.StageSold)
	assert.Equal(t, entity.LotStatusSold, l.Status)
	assert.True(t, l.Stage.IsTerminal())
}
