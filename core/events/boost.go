package events

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"prizeboost/core/types"
)

const (
	// TypeBoostExecuted is emitted once per qualifying claim after the ledger
	// update and reserve payout succeed.
	TypeBoostExecuted = "boost.executed"
	// TypeBoostMultiplierUpdated is emitted when the owner replaces the boost
	// multiplier.
	TypeBoostMultiplierUpdated = "boost.multiplier.updated"
	// TypeBoostLimitUpdated is emitted when the owner replaces the per-winner
	// lifetime cap.
	TypeBoostLimitUpdated = "boost.limit.updated"
	// TypeBoostSourceUpdated is emitted when the owner toggles a source's
	// eligibility flag.
	TypeBoostSourceUpdated = "boost.source.updated"
	// TypeBoostPaused is emitted when the owner halts boost evaluation.
	TypeBoostPaused = "boost.paused"
	// TypeBoostResumed is emitted when the owner resumes boost evaluation.
	TypeBoostResumed = "boost.resumed"
	// TypeBoostOwnershipPending is emitted when the owner nominates a
	// successor.
	TypeBoostOwnershipPending = "boost.ownership.pending"
	// TypeBoostOwnershipTransferred is emitted when the nominee accepts the
	// handoff.
	TypeBoostOwnershipTransferred = "boost.ownership.transferred"
	// TypeBoostReserveWithdrawn is emitted when the owner moves reserve funds
	// out of the module account.
	TypeBoostReserveWithdrawn = "boost.reserve.withdrawn"
)

func hexAddr(addr [20]byte) string {
	return "0x" + common.Bytes2Hex(addr[:])
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// BoostExecuted captures a paid-out boost.
type BoostExecuted struct {
	Winner    [20]byte
	Recipient [20]byte
	Source    [20]byte
	Token     string
	Prize     *big.Int
	Amount    *big.Int
	Tier      uint8
	Draw      uint32
	Index     uint32
}

// EventType implements the Event interface.
func (BoostExecuted) EventType() string { return TypeBoostExecuted }

// Event converts the payout details to the generic event payload.
func (e BoostExecuted) Event() *types.Event {
	return &types.Event{
		Type: TypeBoostExecuted,
		Attributes: map[string]string{
			"winner":    hexAddr(e.Winner),
			"recipient": hexAddr(e.Recipient),
			"source":    hexAddr(e.Source),
			"token":     e.Token,
			"prize":     amountString(e.Prize),
			"amount":    amountString(e.Amount),
			"tier":      strconv.FormatUint(uint64(e.Tier), 10),
			"draw":      strconv.FormatUint(uint64(e.Draw), 10),
			"index":     strconv.FormatUint(uint64(e.Index), 10),
		},
	}
}

// BoostMultiplierUpdated records a multiplier change with both values.
type BoostMultiplierUpdated struct {
	Caller   [20]byte
	Previous uint64
	Current  uint64
}

// EventType implements the Event interface.
func (BoostMultiplierUpdated) EventType() string { return TypeBoostMultiplierUpdated }

// Event converts the change to the generic event payload.
func (e BoostMultiplierUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeBoostMultiplierUpdated,
		Attributes: map[string]string{
			"caller":   hexAddr(e.Caller),
			"previous": strconv.FormatUint(e.Previous, 10),
			"current":  strconv.FormatUint(e.Current, 10),
		},
	}
}

// BoostLimitUpdated records a per-winner cap change with both values.
type BoostLimitUpdated struct {
	Caller   [20]byte
	Previous *big.Int
	Current  *big.Int
}

// EventType implements the Event interface.
func (BoostLimitUpdated) EventType() string { return TypeBoostLimitUpdated }

// Event converts the change to the generic event payload.
func (e BoostLimitUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeBoostLimitUpdated,
		Attributes: map[string]string{
			"caller":   hexAddr(e.Caller),
			"previous": amountString(e.Previous),
			"current":  amountString(e.Current),
		},
	}
}

// BoostSourceUpdated records an eligibility toggle for a claim source.
type BoostSourceUpdated struct {
	Caller   [20]byte
	Source   [20]byte
	Eligible bool
}

// EventType implements the Event interface.
func (BoostSourceUpdated) EventType() string { return TypeBoostSourceUpdated }

// Event converts the toggle to the generic event payload.
func (e BoostSourceUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeBoostSourceUpdated,
		Attributes: map[string]string{
			"caller":   hexAddr(e.Caller),
			"source":   hexAddr(e.Source),
			"eligible": strconv.FormatBool(e.Eligible),
		},
	}
}

// BoostPaused records a pause of the whole module.
type BoostPaused struct {
	Caller [20]byte
}

// EventType implements the Event interface.
func (BoostPaused) EventType() string { return TypeBoostPaused }

// Event converts the pause to the generic event payload.
func (e BoostPaused) Event() *types.Event {
	return &types.Event{
		Type:       TypeBoostPaused,
		Attributes: map[string]string{"caller": hexAddr(e.Caller)},
	}
}

// BoostResumed records a resume of the whole module.
type BoostResumed struct {
	Caller [20]byte
}

// EventType implements the Event interface.
func (BoostResumed) EventType() string { return TypeBoostResumed }

// Event converts the resume to the generic event payload.
func (e BoostResumed) Event() *types.Event {
	return &types.Event{
		Type:       TypeBoostResumed,
		Attributes: map[string]string{"caller": hexAddr(e.Caller)},
	}
}

// BoostOwnershipPending records the first half of the two-step owner handoff.
type BoostOwnershipPending struct {
	Owner   [20]byte
	Pending [20]byte
}

// EventType implements the Event interface.
func (BoostOwnershipPending) EventType() string { return TypeBoostOwnershipPending }

// Event converts the nomination to the generic event payload.
func (e BoostOwnershipPending) Event() *types.Event {
	return &types.Event{
		Type: TypeBoostOwnershipPending,
		Attributes: map[string]string{
			"owner":   hexAddr(e.Owner),
			"pending": hexAddr(e.Pending),
		},
	}
}

// BoostOwnershipTransferred records the completed owner handoff.
type BoostOwnershipTransferred struct {
	Previous [20]byte
	Current  [20]byte
}

// EventType implements the Event interface.
func (BoostOwnershipTransferred) EventType() string { return TypeBoostOwnershipTransferred }

// Event converts the handoff to the generic event payload.
func (e BoostOwnershipTransferred) Event() *types.Event {
	return &types.Event{
		Type: TypeBoostOwnershipTransferred,
		Attributes: map[string]string{
			"previous": hexAddr(e.Previous),
			"current":  hexAddr(e.Current),
		},
	}
}

// BoostReserveWithdrawn records a treasury withdrawal by the owner.
type BoostReserveWithdrawn struct {
	Receipt     string
	Caller      [20]byte
	Token       string
	Destination [20]byte
	Amount      *big.Int
}

// EventType implements the Event interface.
func (BoostReserveWithdrawn) EventType() string { return TypeBoostReserveWithdrawn }

// Event converts the withdrawal to the generic event payload.
func (e BoostReserveWithdrawn) Event() *types.Event {
	return &types.Event{
		Type: TypeBoostReserveWithdrawn,
		Attributes: map[string]string{
			"receipt":     e.Receipt,
			"caller":      hexAddr(e.Caller),
			"token":       e.Token,
			"destination": hexAddr(e.Destination),
			"amount":      amountString(e.Amount),
		},
	}
}
