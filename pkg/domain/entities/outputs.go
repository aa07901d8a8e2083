package entities

// PlanOutputs groups everything a run writes for a plan
type PlanOutputs struct {
	Requirements         []Requirement
	PlannedOrders        []PlannedOrder
	CapacityRequirements []CapacityRequirement
	Exceptions           []Exception
}
