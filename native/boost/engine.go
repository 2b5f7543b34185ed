package boost

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/holiman/uint256"

	coreevents "prizeboost/core/events"
	"prizeboost/core/types"
)

const eventBoostSkipped = "boost.skipped"

// State describes the persistence the boost engine needs from the surrounding
// state implementation.
type State interface {
	BoostConfig() (*Config, error)
	SetBoostConfig(cfg *Config) error

	Owner() ([20]byte, error)
	SetOwner(addr [20]byte) error
	PendingOwner() ([20]byte, bool, error)
	SetPendingOwner(addr [20]byte) error
	ClearPendingOwner() error

	SourceEligible(source [20]byte) (bool, error)
	SetSourceEligible(source [20]byte, eligible bool) error

	BoostReceived(winner [20]byte) (*big.Int, error)
	SetBoostReceived(winner [20]byte, amount *big.Int) error

	ClaimProcessed(key ClaimKey) (bool, error)
	SetClaimProcessed(key ClaimKey, processed bool) error

	Balance(addr [20]byte, token string) (*big.Int, error)
	Transfer(from, to [20]byte, token string, amount *big.Int) error

	AppendEvent(evt *types.Event)
}

// Engine is the boost decision and accounting engine. It is invoked by the
// distribution caller once per winning claim and never blocks the underlying
// prize claim: every ineligibility path is a successful no-op.
type Engine struct {
	st     State
	oracle VerificationOracle
}

// NewEngine creates an engine over the provided state and oracle.
func NewEngine(st State, oracle VerificationOracle) *Engine {
	return &Engine{st: st, oracle: oracle}
}

func (ctx *ClaimContext) skipAttributes() map[string]string {
	return map[string]string{
		"winner": hex.EncodeToString(ctx.Winner[:]),
		"source": hex.EncodeToString(ctx.Source[:]),
		"prize":  ctx.prizeValue().String(),
		"tier":   strconv.FormatUint(uint64(ctx.Tier), 10),
		"draw":   strconv.FormatUint(uint64(ctx.Draw), 10),
		"index":  strconv.FormatUint(uint64(ctx.Index), 10),
	}
}

func emitSkip(st State, ctx *ClaimContext, reason string, extra map[string]string) {
	if st == nil || ctx == nil {
		return
	}
	attrs := ctx.skipAttributes()
	attrs["reason"] = reason
	for k, v := range extra {
		attrs[k] = v
	}
	st.AppendEvent(&types.Event{Type: eventBoostSkipped, Attributes: attrs})
}

// PreClaim is required by the distribution hook contract but intentionally
// does nothing: the module never redirects payouts or attaches hook data.
func (e *Engine) PreClaim(winner [20]byte, tier uint8, index uint32, requestedPayout *big.Int, recipient [20]byte) ([20]byte, []byte, error) {
	var redirect [20]byte
	return redirect, nil, nil
}

// PostClaim evaluates a reported prize claim and, when every gate passes, pays
// a multiplied bonus from the module reserve. It returns an error only for
// hard failures (arithmetic overflow, reserve transfer failure); all
// ineligibility paths return nil without touching state.
func (e *Engine) PostClaim(ctx *ClaimContext) error {
	if e == nil || e.st == nil || ctx == nil {
		return nil
	}
	cfg, err := e.st.BoostConfig()
	if err != nil {
		emitSkip(e.st, ctx, "config_error", map[string]string{"error": err.Error()})
		return nil
	}
	if cfg == nil {
		emitSkip(e.st, ctx, "not_seeded", nil)
		return nil
	}
	cfg = cfg.Clone().Normalize()
	if cfg.Paused {
		emitSkip(e.st, ctx, "paused", nil)
		return nil
	}

	eligible, err := e.st.SourceEligible(ctx.Source)
	if err != nil {
		emitSkip(e.st, ctx, "state_error", map[string]string{"error": err.Error()})
		return nil
	}
	if !eligible {
		emitSkip(e.st, ctx, "source_not_eligible", nil)
		return nil
	}

	key := ctx.Key()
	processed, err := e.st.ClaimProcessed(key)
	if err != nil {
		emitSkip(e.st, ctx, "state_error", map[string]string{"error": err.Error()})
		return nil
	}
	if processed {
		emitSkip(e.st, ctx, "claim_processed", nil)
		return nil
	}

	received, err := e.st.BoostReceived(ctx.Winner)
	if err != nil {
		emitSkip(e.st, ctx, "ledger_error", map[string]string{"error": err.Error()})
		return nil
	}
	// At-limit winners are rejected outright, never partially processed.
	if received.Cmp(cfg.MaxBoostPerWinner) >= 0 {
		emitSkip(e.st, ctx, "winner_at_limit", map[string]string{"limit": cfg.MaxBoostPerWinner.String()})
		return nil
	}

	if !e.verified(ctx) {
		emitSkip(e.st, ctx, "winner_not_verified", nil)
		return nil
	}

	amount, err := boostAmount(ctx.prizeValue(), cfg.Multiplier)
	if err != nil {
		// Silent truncation of a payout-affecting computation is unsafe, so
		// overflow aborts the whole call instead of skipping.
		return err
	}
	remaining := new(big.Int).Sub(cfg.MaxBoostPerWinner, received)
	if amount.Cmp(remaining) > 0 {
		amount = remaining
	}
	if amount.Sign() <= 0 {
		emitSkip(e.st, ctx, "boost_zero", nil)
		return nil
	}

	reserve, err := e.st.Balance(ModuleAccount, cfg.ReserveToken)
	if err != nil {
		emitSkip(e.st, ctx, "reserve_error", map[string]string{"error": err.Error()})
		return nil
	}
	if reserve.Cmp(amount) < 0 {
		emitSkip(e.st, ctx, "reserve_insufficient", map[string]string{"available": reserve.String()})
		return nil
	}

	// Ledger effects land before the transfer call so a reentrant claim sees
	// the already-incremented totals and is capped or rejected by the gate.
	if err := e.st.SetClaimProcessed(key, true); err != nil {
		emitSkip(e.st, ctx, "state_error", map[string]string{"error": err.Error()})
		return nil
	}
	newTotal := new(big.Int).Add(received, amount)
	if err := e.st.SetBoostReceived(ctx.Winner, newTotal); err != nil {
		if undoErr := e.st.SetClaimProcessed(key, false); undoErr != nil {
			return errors.Join(fmt.Errorf("boost: ledger update failed: %w", err), undoErr)
		}
		emitSkip(e.st, ctx, "ledger_error", map[string]string{"error": err.Error()})
		return nil
	}

	recipient := ctx.payee()
	if err := e.st.Transfer(ModuleAccount, recipient, cfg.ReserveToken, amount); err != nil {
		// Transfer failures are fatal: unwind the ledger so the whole call has
		// no partial effect.
		var undo []error
		if undoErr := e.st.SetBoostReceived(ctx.Winner, received); undoErr != nil {
			undo = append(undo, undoErr)
		}
		if undoErr := e.st.SetClaimProcessed(key, false); undoErr != nil {
			undo = append(undo, undoErr)
		}
		wrapped := fmt.Errorf("%w: %w", ErrTransferFailed, err)
		if len(undo) > 0 {
			return errors.Join(append([]error{wrapped}, undo...)...)
		}
		return wrapped
	}

	e.st.AppendEvent(coreevents.BoostExecuted{
		Winner:    ctx.Winner,
		Recipient: recipient,
		Source:    ctx.Source,
		Token:     cfg.ReserveToken,
		Prize:     ctx.prizeValue(),
		Amount:    new(big.Int).Set(amount),
		Tier:      ctx.Tier,
		Draw:      ctx.Draw,
		Index:     ctx.Index,
	}.Event())
	return nil
}

// verified reports whether the oracle's verification window extends strictly
// beyond the claim's logical time. Oracle failures count as unverified.
func (e *Engine) verified(ctx *ClaimContext) bool {
	if e.oracle == nil {
		return false
	}
	until, err := e.oracle.VerifiedUntil(ctx.Winner)
	if err != nil {
		return false
	}
	return until > ctx.Timestamp
}

// boostAmount computes prize*multiplier with a 256-bit overflow check.
func boostAmount(prize *big.Int, multiplier uint64) (*big.Int, error) {
	if prize.Sign() <= 0 || multiplier == 0 {
		return big.NewInt(0), nil
	}
	base, overflow := uint256.FromBig(prize)
	if overflow {
		return nil, fmt.Errorf("%w: prize %s", ErrAmountOverflow, prize.String())
	}
	product, overflow := new(uint256.Int).MulOverflow(base, uint256.NewInt(multiplier))
	if overflow {
		return nil, fmt.Errorf("%w: prize %s multiplier %d", ErrAmountOverflow, prize.String(), multiplier)
	}
	return product.ToBig(), nil
}
