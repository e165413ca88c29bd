package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_KnownTypes(t *testing.T) {
	for _, typ := range Types() {
		t.Run(string(typ), func(t *testing.T) {
			in, err := New(typ, testParams())
			require.NoError(t, err)
			assert.Equal(t, typ, in.Type())
			assert.Equal(t, StatusCreated, in.Status)
		})
	}
}

func TestNew_UnknownType(t *testing.T) {
	in, err := New("未知类型", testParams())
	assert.ErrorIs(t, err, ErrUnsupportedType)
	assert.Contains(t, err.Error(), "未知类型")
	assert.Nil(t, in)
}

func TestParseType(t *testing.T) {
	typ, err := ParseType("training")
	require.NoError(t, err)
	assert.Equal(t, TypeTraining, typ)

	_, err = ParseType("Standard")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestTypes_Order(t *testing.T) {
	assert.Equal(t, []Type{TypeStandard, TypeEmergency, TypeTraining}, Types())
}

// =============================================================================
// Variant Payload Tests
// =============================================================================

func stringAt(t *testing.T, attrs Attributes, key, field string) string {
	t.Helper()
	m, ok := attrs[key].AsMap()
	require.True(t, ok, "attribute %s is not a map", key)
	s, ok := m[field].AsString()
	require.True(t, ok, "field %s.%s is not a string", key, field)
	return s
}

func TestVariants_ExecutionPayloads(t *testing.T) {
	tests := []struct {
		typ       Type
		formation string
		speed     string
	}{
		{TypeStandard, "standard formation", "normal"},
		{TypeEmergency, "emergency formation", "maximum"},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			in, err := New(tt.typ, testParams())
			require.NoError(t, err)
			require.NoError(t, in.Execute(context.Background()).Err)

			assert.Equal(t, tt.formation, stringAt(t, in.Attributes, AttrExecution, "formation"))
			assert.Equal(t, tt.speed, stringAt(t, in.Attributes, AttrExecution, "movement_speed"))
		})
	}
}

func TestStandard_Supplies(t *testing.T) {
	in, _ := New(TypeStandard, testParams())
	require.NoError(t, in.Execute(context.Background()).Err)

	m, _ := in.Attributes[AttrResources].AsMap()
	supplies, ok := m["supplies_allocated"].AsList()
	require.True(t, ok)
	assert.Equal(t, []string{"food", "water", "ammunition"}, supplies)

	units, _ := m["units_notified"].AsList()
	assert.Equal(t, []string{"alpha", "bravo"}, units)
}

func TestTraining_Evaluation(t *testing.T) {
	in, _ := New(TypeTraining, testParams())
	require.NoError(t, in.Execute(context.Background()).Err)

	assert.Equal(t, "progressive", stringAt(t, in.Attributes, AttrExecution, "difficulty_level"))
	assert.Equal(t, "full guidance", stringAt(t, in.Attributes, AttrExecution, "supervision"))

	m, _ := in.Attributes[AttrVerification].AsMap()
	areas, ok := m["areas_for_improvement"].AsList()
	require.True(t, ok)
	assert.NotEmpty(t, areas)
}

func TestEmergency_Defaults(t *testing.T) {
	in, err := New(TypeEmergency, testParams())
	require.NoError(t, err)

	level, _ := in.Attributes[AttrEmergency].AsString()
	resp, _ := in.Attributes[AttrResponseTime].AsString()
	assert.Equal(t, "high", level)
	assert.Equal(t, "within 2 hours", resp)
}

func TestEmergency_AttributePrecedence(t *testing.T) {
	p := testParams()
	p.Attributes = Attributes{
		AttrEmergency:    String("critical"),
		AttrResponseTime: String("within 30 minutes"),
	}
	p.EmergencyLevel = "medium"

	in, err := New(TypeEmergency, p)
	require.NoError(t, err)

	level, _ := in.Attributes[AttrEmergency].AsString()
	resp, _ := in.Attributes[AttrResponseTime].AsString()
	assert.Equal(t, "medium", level, "explicit parameter wins")
	assert.Equal(t, "within 30 minutes", resp, "existing attribute kept")
}
