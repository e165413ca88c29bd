package workflow

// Attribute keys written by the phase hooks.
const (
	AttrPreparation   = "preparation_details"
	AttrResources     = "resource_allocation"
	AttrExecution     = "deployment_execution"
	AttrVerification  = "verification_results"
	AttrFinalization  = "finalization"
	AttrEmergency     = "emergency_level"
	AttrResponseTime  = "response_time_required"
	defaultEmergency  = "high"
	defaultResponseIn = "within 2 hours"
)

// =============================================================================
// Standard
// =============================================================================

// Standard is the full-procedure deployment.
type Standard struct{}

func (Standard) Type() Type { return TypeStandard }

func (Standard) Prepare(in *Instance) error {
	in.Log("running standard preparation")
	in.Attributes[AttrPreparation] = Map(Attributes{
		"briefing_completed":    Bool(true),
		"maps_distributed":      Bool(true),
		"communication_checked": Bool(true),
	})
	return nil
}

func (Standard) AllocateResources(in *Instance) error {
	in.Log("allocating resources per standard procedure")
	in.Attributes[AttrResources] = Map(Attributes{
		"units_notified":      List(in.Units...),
		"equipments_prepared": List(in.Equipments...),
		"supplies_allocated":  List("food", "water", "ammunition"),
	})
	return nil
}

func (Standard) PerformDeployment(in *Instance) error {
	in.Log("executing standard deployment")
	in.Attributes[AttrExecution] = Map(Attributes{
		"formation":      String("standard formation"),
		"movement_speed": String("normal"),
		"route":          String("main road"),
	})
	return nil
}

func (Standard) VerifyDeployment(in *Instance) error {
	in.Log("verifying deployment per standard procedure")
	in.Attributes[AttrVerification] = Map(Attributes{
		"position_accuracy": String("high"),
		"readiness":         String("fully ready"),
		"communication":     String("clear"),
	})
	return nil
}

func (Standard) Finalize(in *Instance) error {
	in.Log("completing standard deployment")
	in.Attributes[AttrFinalization] = Map(Attributes{
		"report_filed":        Bool(true),
		"command_transferred": Bool(true),
		"status_update_sent":  Bool(true),
	})
	return nil
}

// =============================================================================
// Emergency
// =============================================================================

// Emergency trades thoroughness for speed of mobilisation.
type Emergency struct{}

// applyEmergencyAttributes sets the urgency attributes. An explicit parameter
// wins over a value already present, which wins over the default.
func applyEmergencyAttributes(in *Instance, p Params) {
	setDefault := func(key, explicit, fallback string) {
		if explicit != "" {
			in.Attributes[key] = String(explicit)
			return
		}
		if _, ok := in.Attributes[key]; !ok {
			in.Attributes[key] = String(fallback)
		}
	}
	setDefault(AttrEmergency, p.EmergencyLevel, defaultEmergency)
	setDefault(AttrResponseTime, p.ResponseTime, defaultResponseIn)
}

func (Emergency) Type() Type { return TypeEmergency }

func (Emergency) Prepare(in *Instance) error {
	in.Log("running emergency preparation")
	in.Attributes[AttrPreparation] = Map(Attributes{
		"rapid_briefing":                Bool(true),
		"essential_info_distributed":    Bool(true),
		"emergency_protocols_activated": Bool(true),
	})
	return nil
}

func (Emergency) AllocateResources(in *Instance) error {
	in.Log("allocating essential resources")
	in.Attributes[AttrResources] = Map(Attributes{
		"priority_units_mobilized":     List(in.Units...),
		"critical_equipment_prepared":  List(in.Equipments...),
		"emergency_supplies_allocated": Bool(true),
	})
	return nil
}

func (Emergency) PerformDeployment(in *Instance) error {
	in.Log("executing emergency deployment")
	in.Attributes[AttrExecution] = Map(Attributes{
		"formation":      String("emergency formation"),
		"movement_speed": String("maximum"),
		"route":          String("shortest path"),
	})
	return nil
}

func (Emergency) VerifyDeployment(in *Instance) error {
	in.Log("rapidly verifying deployment status")
	in.Attributes[AttrVerification] = Map(Attributes{
		"position_reached":         Bool(true),
		"basic_readiness":          String("confirmed"),
		"emergency_response_ready": Bool(true),
	})
	return nil
}

func (Emergency) Finalize(in *Instance) error {
	in.Log("completing emergency deployment")
	in.Attributes[AttrFinalization] = Map(Attributes{
		"situation_stabilized":         Bool(true),
		"emergency_status_updated":     Bool(true),
		"follow_up_actions_identified": Bool(true),
	})
	return nil
}

// =============================================================================
// Training
// =============================================================================

// Training runs the procedure as an exercise with evaluation.
type Training struct{}

func (Training) Type() Type { return TypeTraining }

func (Training) Prepare(in *Instance) error {
	in.Log("preparing training deployment")
	in.Attributes[AttrPreparation] = Map(Attributes{
		"training_objectives_set":     Bool(true),
		"instructors_assigned":        Bool(true),
		"training_materials_prepared": Bool(true),
	})
	return nil
}

func (Training) AllocateResources(in *Instance) error {
	in.Log("allocating training resources")
	in.Attributes[AttrResources] = Map(Attributes{
		"training_units":           List(in.Units...),
		"training_equipment":       List(in.Equipments...),
		"training_grounds_secured": Bool(true),
	})
	return nil
}

func (Training) PerformDeployment(in *Instance) error {
	in.Log("executing training deployment")
	in.Attributes[AttrExecution] = Map(Attributes{
		"training_scenarios": List("basic formation", "combined operations", "tactical withdrawal"),
		"difficulty_level":   String("progressive"),
		"supervision":        String("full guidance"),
	})
	return nil
}

func (Training) VerifyDeployment(in *Instance) error {
	in.Log("evaluating training outcome")
	in.Attributes[AttrVerification] = Map(Attributes{
		"skills_improved":       Bool(true),
		"objectives_met":        String("mostly"),
		"areas_for_improvement": List("communication coordination", "night operations"),
	})
	return nil
}

func (Training) Finalize(in *Instance) error {
	in.Log("summarising training lessons")
	in.Attributes[AttrFinalization] = Map(Attributes{
		"performance_evaluated":      Bool(true),
		"feedback_provided":          Bool(true),
		"follow_up_training_planned": Bool(true),
	})
	return nil
}
