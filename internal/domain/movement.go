package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type MovementKind string

const (
	MovementKindEntry        MovementKind = "entry"
	MovementKindExit         MovementKind = "exit"
	MovementKindTransfer     MovementKind = "transfer"
	MovementKindMaintenance  MovementKind = "maintenance"
	MovementKindStatusChange MovementKind = "status_change"
	MovementKindContractBind MovementKind = "contract_bind"
	MovementKindRenewal      MovementKind = "renewal"
)

// Action is a command requested against one unit of equipment.
type Action string

const (
	ActionBindContract        Action = "bind_contract"
	ActionRecordEntry         Action = "record_entry"
	ActionReleaseInspection   Action = "release_inspection"
	ActionSendToShop          Action = "send_to_shop"
	ActionCompleteMaintenance Action = "complete_maintenance"
	ActionStartTransfer       Action = "start_transfer"
	ActionCompleteTransfer    Action = "complete_transfer"
	ActionRetire              Action = "retire"
	ActionRenewContract       Action = "renew_contract"
)

var Actions = []Action{
	ActionBindContract,
	ActionRecordEntry,
	ActionReleaseInspection,
	ActionSendToShop,
	ActionCompleteMaintenance,
	ActionStartTransfer,
	ActionCompleteTransfer,
	ActionRetire,
	ActionRenewContract,
}

func ParseAction(s string) (Action, error) {
	for _, a := range Actions {
		if string(a) == s {
			return a, nil
		}
	}
	return "", &ValidationError{Field: "action", Message: fmt.Sprintf("unknown action %q", s)}
}

// Movement is one immutable ledger entry. Entries are ordered per equipment by
// (OccurredAt, ID).
type Movement struct {
	ID          int64             `json:"id"`
	EquipmentID int64             `json:"equipment_id"`
	Kind        MovementKind      `json:"kind"`
	Action      Action            `json:"action"`
	PriorState  EquipmentState    `json:"prior_state"`
	NewState    EquipmentState    `json:"new_state"`
	ContractID  *int64            `json:"contract_id,omitempty"`
	Actor       string            `json:"actor"`
	RequestID   string            `json:"request_id"`
	HoursMeter  float64           `json:"hours_meter"`
	Context     map[string]string `json:"context,omitempty"`
	OccurredAt  time.Time         `json:"occurred_at"`
}

// LedgerCursor is the keyset position of a movement in its equipment's ledger.
type LedgerCursor struct {
	OccurredAt time.Time
	ID         int64
}

// String encodes the cursor as "<unix nanos>.<movement id>" for page tokens.
func (c LedgerCursor) String() string {
	return fmt.Sprintf("%d.%d", c.OccurredAt.UnixNano(), c.ID)
}

// ParseLedgerCursor decodes a page token. An empty token means the start.
func ParseLedgerCursor(s string) (*LedgerCursor, error) {
	if s == "" {
		return nil, nil
	}
	invalid := &ValidationError{Field: "cursor", Message: "malformed cursor"}
	nanos, id, ok := strings.Cut(s, ".")
	if !ok {
		return nil, invalid
	}
	n, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return nil, invalid
	}
	mid, err := strconv.ParseInt(id, 10, 64)
	if err != nil || mid <= 0 {
		return nil, invalid
	}
	return &LedgerCursor{OccurredAt: time.Unix(0, n).UTC(), ID: mid}, nil
}

func (m *Movement) Cursor() LedgerCursor {
	return LedgerCursor{OccurredAt: m.OccurredAt, ID: m.ID}
}

// Context keys written by the transition pipeline.
const (
	ContextFromLocation      = "from_location"
	ContextToLocation        = "to_location"
	ContextReason            = "reason"
	ContextNotes             = "notes"
	ContextFolio             = "folio"
	ContextMaintenanceType   = "maintenance_type"
	ContextTerminationStatus = "termination_status"
	ContextRenewalID         = "renewal_id"
)
