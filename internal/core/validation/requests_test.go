package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// =============================================================================
// ValidateCreateTemplateFields Tests
// =============================================================================

func TestValidateCreateTemplateFields_AllValid(t *testing.T) {
	field, msg := ValidateCreateTemplateFields("Operation Dawn", "standard")
	assert.Empty(t, field)
	assert.Empty(t, msg)
}

func TestValidateCreateTemplateFields_MissingName(t *testing.T) {
	field, msg := ValidateCreateTemplateFields(" ", "standard")
	assert.Equal(t, "name", field)
	assert.Equal(t, "name is required", msg)
}

func TestValidateCreateTemplateFields_MissingType(t *testing.T) {
	field, _ := ValidateCreateTemplateFields("Operation Dawn", "")
	assert.Equal(t, "type", field)
}

// =============================================================================
// Deployment Validation Tests
// =============================================================================

func TestValidateCreateDeploymentFields(t *testing.T) {
	tests := []struct {
		name      string
		missionID string
		steps     []string
		wantField string
	}{
		{"valid", "m-1", []string{"recon", "advance"}, ""},
		{"no steps", "m-1", nil, ""},
		{"missing mission", "", []string{"recon"}, "mission_id"},
		{"empty step name", "m-1", []string{"recon", ""}, "steps[1].name"},
		{"duplicate step", "m-1", []string{"recon", "recon"}, "steps[1].name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			field, _ := ValidateCreateDeploymentFields(tt.missionID, tt.steps)
			assert.Equal(t, tt.wantField, field)
		})
	}
}

func TestValidateStepUpdateFields_ChecksInOrder(t *testing.T) {
	field, _ := ValidateStepUpdateFields("", "", "")
	assert.Equal(t, "step_name", field)

	field, _ = ValidateStepUpdateFields("recon", "", "")
	assert.Equal(t, "status", field)

	field, _ = ValidateStepUpdateFields("recon", "completed", "")
	assert.Equal(t, "operator", field)

	field, _ = ValidateStepUpdateFields("recon", "completed", "sgt")
	assert.Empty(t, field)
}

func TestValidateFeedbackFields(t *testing.T) {
	field, msg := ValidateFeedbackFields("")
	assert.Equal(t, "content", field)
	assert.Equal(t, "content is required", msg)

	field, _ = ValidateFeedbackFields("looks good")
	assert.Empty(t, field)
}
