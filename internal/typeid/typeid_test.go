package typeid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCarriesPrefix(t *testing.T) {
	id := NewChartID()
	assert.True(t, strings.HasPrefix(id, PrefixChart+"_"))
	assert.NoError(t, Validate(id, PrefixChart))
	assert.NotEqual(t, id, NewChartID())
}

func TestValidate(t *testing.T) {
	assert.Error(t, Validate(NewSnapshotID(), PrefixChart))
	assert.Error(t, Validate("chart_playground", PrefixChart))
	assert.Error(t, Validate("", PrefixChart))
	assert.NoError(t, Validate(New(PrefixTable), PrefixTable))
}

func TestItemConstructorsCarryPrefix(t *testing.T) {
	tests := []struct {
		prefix string
		newID  func() string
	}{
		{PrefixTable, NewTableID},
		{PrefixRowSection, NewRowSectionID},
		{PrefixStage, NewStageID},
		{PrefixDanceFloor, NewDanceFloorID},
		{PrefixOp, NewOpID},
		{PrefixSnapshot, NewSnapshotID},
	}
	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			id := tt.newID()
			assert.True(t, strings.HasPrefix(id, tt.prefix+"_"), id)
			assert.NoError(t, Validate(id, tt.prefix))
		})
	}
}
