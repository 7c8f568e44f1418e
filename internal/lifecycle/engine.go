// Package lifecycle holds the equipment state machine. Everything here is pure:
// callers load the current state and guard facts, and persist the outcome.
package lifecycle

import (
	"iter"
	"strings"

	"fleetrent-backend/internal/domain"
)

// Guard carries the facts an action may depend on besides the current state.
type Guard struct {
	EquipmentID      int64
	ActiveContractID int64 // 0 when no contract is active
	Location         string
	Destination      string
}

func (g Guard) HasActiveContract() bool {
	return g.ActiveContractID != 0
}

type Outcome struct {
	From domain.EquipmentState
	To   domain.EquipmentState
	Kind domain.MovementKind
}

// SelfLoop reports whether the outcome leaves the state unchanged.
func (o Outcome) SelfLoop() bool {
	return o.From == o.To
}

// Apply evaluates action against current. It never mutates anything.
func Apply(current domain.EquipmentState, action domain.Action, g Guard) (Outcome, error) {
	if !current.Valid() {
		return Outcome{}, &domain.ValidationError{Field: "state", Message: "unknown current state " + string(current)}
	}
	// A bound unit reports the binding, whatever state it is in.
	if action == domain.ActionBindContract && g.HasActiveContract() && !current.Terminal() {
		return Outcome{}, &domain.AlreadyBoundError{EquipmentID: g.EquipmentID, ActiveContractID: g.ActiveContractID}
	}
	tr, ok := TransitionFor(current, action)
	if !ok {
		to, _ := Target(action)
		reason := ""
		if current.Terminal() {
			reason = "equipment is retired"
		} else if to == "" {
			reason = "unknown action"
		}
		return Outcome{}, &domain.InvalidTransitionError{From: current, To: to, Action: action, Reason: reason}
	}

	if err := check(tr, g); err != nil {
		return Outcome{}, err
	}
	return Outcome{From: tr.From, To: tr.To, Kind: tr.Kind}, nil
}

func check(tr Transition, g Guard) error {
	switch tr.Action {
	case domain.ActionBindContract:
		if g.HasActiveContract() {
			return &domain.AlreadyBoundError{EquipmentID: g.EquipmentID, ActiveContractID: g.ActiveContractID}
		}
	case domain.ActionRecordEntry, domain.ActionRenewContract:
		if !g.HasActiveContract() {
			return &domain.InvalidTransitionError{From: tr.From, To: tr.To, Action: tr.Action, Reason: "no active contract"}
		}
	case domain.ActionStartTransfer:
		dest := strings.TrimSpace(g.Destination)
		if dest == "" {
			return &domain.ValidationError{Field: "destination", Message: "destination is required"}
		}
		if strings.EqualFold(dest, strings.TrimSpace(g.Location)) {
			return &domain.ValidationError{Field: "destination", Message: "destination equals current location"}
		}
	}
	return nil
}

// Replay folds a ledger starting at initial. Each entry must start where the
// previous one ended and follow a table edge. Guards are not re-evaluated.
func Replay(initial domain.EquipmentState, movements iter.Seq2[domain.Movement, error]) (domain.EquipmentState, error) {
	state := initial
	for m, err := range movements {
		if err != nil {
			return state, err
		}
		if m.PriorState != state {
			return state, &domain.LedgerDivergenceError{EquipmentID: m.EquipmentID, MovementID: m.ID, Expected: state, Found: m.PriorState}
		}
		tr, ok := TransitionFor(m.PriorState, m.Action)
		if !ok || tr.To != m.NewState {
			return state, &domain.LedgerDivergenceError{EquipmentID: m.EquipmentID, MovementID: m.ID, Expected: tr.To, Found: m.NewState}
		}
		state = m.NewState
	}
	return state, nil
}
