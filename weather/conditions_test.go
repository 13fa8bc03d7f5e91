package weather

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConditionFor(t *testing.T) {
	tests := []struct {
		code int
		want Condition
		ok   bool
	}{
		{0, ConditionClearNight, true},
		{2, ConditionPartlyCloudy, true},
		{48, ConditionFog, true},
		{82, ConditionPouring, true},
		{86, ConditionSnowyRainy, true},
		{99, ConditionLightningRainy, true},
		{4, "", false},
		{-1, "", false},
	}

	for _, tt := range tests {
		got, ok := ConditionFor(tt.code)
		assert.Equal(t, tt.ok, ok, "code %d", tt.code)
		assert.Equal(t, tt.want, got, "code %d", tt.code)
	}
}

func TestConditionOf(t *testing.T) {
	assert.Equal(t, Condition(""), ConditionOf(nil))
	assert.Equal(t, ConditionRainy, ConditionOf(ptr(61)))
	assert.Equal(t, Condition(""), ConditionOf(ptr(42)))
}

func TestConditionTable_ReturnsCopy(t *testing.T) {
	table := ConditionTable()
	assert.Len(t, table, len(wmoConditions))

	table[0] = ConditionSunny
	got, _ := ConditionFor(0)
	assert.Equal(t, ConditionClearNight, got)
}
