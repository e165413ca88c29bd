package validation

import (
	"fmt"
	"strings"
)

// =============================================================================
// Template Validation Functions
// =============================================================================

// ValidateCreateTemplateFields checks the required fields for template
// creation. The type tag itself is validated by the workflow factory.
func ValidateCreateTemplateFields(name, typ string) (field, message string) {
	if strings.TrimSpace(name) == "" {
		return "name", "name is required"
	}
	if strings.TrimSpace(typ) == "" {
		return "type", "type is required"
	}
	return "", ""
}

// =============================================================================
// Deployment Validation Functions
// =============================================================================

// ValidateCreateDeploymentFields checks the mission id and that step names
// are present and unique.
func ValidateCreateDeploymentFields(missionID string, stepNames []string) (field, message string) {
	if strings.TrimSpace(missionID) == "" {
		return "mission_id", "mission_id is required"
	}
	return ValidateStepNames(stepNames)
}

// ValidateStepNames checks that every name is non-empty and unique.
func ValidateStepNames(names []string) (field, message string) {
	seen := make(map[string]bool, len(names))
	for i, name := range names {
		if strings.TrimSpace(name) == "" {
			return fmt.Sprintf("steps[%d].name", i), "step name is required"
		}
		if seen[name] {
			return fmt.Sprintf("steps[%d].name", i), fmt.Sprintf("duplicate step name %q", name)
		}
		seen[name] = true
	}
	return "", ""
}

// ValidateStepUpdateFields checks a single step update.
func ValidateStepUpdateFields(stepName, status, operator string) (field, message string) {
	if strings.TrimSpace(stepName) == "" {
		return "step_name", "step_name is required"
	}
	if strings.TrimSpace(status) == "" {
		return "status", "status is required"
	}
	if strings.TrimSpace(operator) == "" {
		return "operator", "operator is required"
	}
	return "", ""
}

// ValidateFeedbackFields checks a feedback submission.
func ValidateFeedbackFields(content string) (field, message string) {
	if strings.TrimSpace(content) == "" {
		return "content", "content is required"
	}
	return "", ""
}
