// Package workflow provides the five-phase deployment skeleton and its variants.
//
// The skeleton (Instance.Execute) owns phase ordering, progress tracking and
// failure capture. Variants (Standard, Emergency, Training) only supply the
// body of each phase through the Hooks interface. Nothing here performs I/O.
//
// # Usage
//
//	in, err := workflow.New(workflow.TypeEmergency, workflow.Params{Name: "relief"})
//	if err != nil {
//		return err
//	}
//	res := in.Execute(ctx)
//	if res.Err != nil {
//		// in.Status == workflow.StatusFailed, partial progress kept
//	}
package workflow
