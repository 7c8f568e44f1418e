package lifecycle

import "fleetrent-backend/internal/domain"

// Transition is one legal edge of the equipment state machine.
type Transition struct {
	From   domain.EquipmentState
	To     domain.EquipmentState
	Action domain.Action
	Kind   domain.MovementKind
}

var transitions = []Transition{
	// Rental cycle
	{From: domain.EquipmentStateAvailable, To: domain.EquipmentStateRented, Action: domain.ActionBindContract, Kind: domain.MovementKindContractBind},
	{From: domain.EquipmentStateRented, To: domain.EquipmentStateRented, Action: domain.ActionRenewContract, Kind: domain.MovementKindRenewal},
	{From: domain.EquipmentStateRented, To: domain.EquipmentStateInInspection, Action: domain.ActionRecordEntry, Kind: domain.MovementKindEntry},

	// Inspection and shop
	{From: domain.EquipmentStateInInspection, To: domain.EquipmentStateAvailable, Action: domain.ActionReleaseInspection, Kind: domain.MovementKindStatusChange},
	{From: domain.EquipmentStateInInspection, To: domain.EquipmentStateInShop, Action: domain.ActionSendToShop, Kind: domain.MovementKindMaintenance},
	{From: domain.EquipmentStateInShop, To: domain.EquipmentStateAvailable, Action: domain.ActionCompleteMaintenance, Kind: domain.MovementKindMaintenance},

	// Yard transfers
	{From: domain.EquipmentStateAvailable, To: domain.EquipmentStateInTransit, Action: domain.ActionStartTransfer, Kind: domain.MovementKindTransfer},
	{From: domain.EquipmentStateInTransit, To: domain.EquipmentStateAvailable, Action: domain.ActionCompleteTransfer, Kind: domain.MovementKindTransfer},

	{From: domain.EquipmentStateAvailable, To: domain.EquipmentStateRetired, Action: domain.ActionRetire, Kind: domain.MovementKindStatusChange},
}

// TransitionFor returns the edge leaving from on action.
func TransitionFor(from domain.EquipmentState, action domain.Action) (Transition, bool) {
	for _, tr := range transitions {
		if tr.From == from && tr.Action == action {
			return tr, true
		}
	}
	return Transition{}, false
}

// Target is the state an action always leads to, regardless of where it starts.
func Target(action domain.Action) (domain.EquipmentState, bool) {
	for _, tr := range transitions {
		if tr.Action == action {
			return tr.To, true
		}
	}
	return "", false
}

// Allowed lists the actions that have an edge out of from, in table order.
func Allowed(from domain.EquipmentState) []domain.Action {
	var out []domain.Action
	for _, tr := range transitions {
		if tr.From == from {
			out = append(out, tr.Action)
		}
	}
	return out
}

// Transitions returns a copy of the full table.
func Transitions() []Transition {
	out := make([]Transition, len(transitions))
	copy(out, transitions)
	return out
}
