// Package validation provides pure validation functions for API handlers.
//
// All functions are pure (no I/O, no side effects). Each returns the name of
// the first offending field and a message, or empty strings when the input is
// acceptable.
//
// # Functions
//
//   - ValidateCreateTemplateFields: Required fields for template creation
//   - ValidateCreateDeploymentFields: Mission and step names for deployment creation
//   - ValidateStepUpdateFields: Step name, status and operator of a step update
//   - ValidateFeedbackFields: Feedback content
//
// # Usage
//
//	if field, msg := validation.ValidateCreateDeploymentFields(missionID, names); field != "" {
//	    // Return 400 Bad Request with msg
//	}
package validation
