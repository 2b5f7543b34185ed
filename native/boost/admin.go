package boost

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"

	coreevents "prizeboost/core/events"
)

// requireOwner resolves the stored owner and rejects any other caller.
func (e *Engine) requireOwner(caller [20]byte) error {
	owner, err := e.st.Owner()
	if err != nil {
		return err
	}
	if caller != owner {
		return ErrUnauthorized
	}
	return nil
}

func (e *Engine) mutateConfig(mutate func(cfg *Config)) (previous, current *Config, err error) {
	cfg, err := e.st.BoostConfig()
	if err != nil {
		return nil, nil, err
	}
	if cfg == nil {
		cfg = &Config{}
	}
	cfg = cfg.Clone().Normalize()
	previous = cfg.Clone()
	mutate(cfg)
	cfg.Normalize()
	if err := e.st.SetBoostConfig(cfg); err != nil {
		return nil, nil, err
	}
	return previous, cfg, nil
}

// SetMultiplier replaces the boost multiplier. Zero disables all future
// boosts; large values are only bounded by the overflow check at payout time.
func (e *Engine) SetMultiplier(caller [20]byte, value uint64) error {
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	previous, _, err := e.mutateConfig(func(cfg *Config) { cfg.Multiplier = value })
	if err != nil {
		return err
	}
	e.st.AppendEvent(coreevents.BoostMultiplierUpdated{
		Caller:   caller,
		Previous: previous.Multiplier,
		Current:  value,
	}.Event())
	return nil
}

// SetMaxBoostPerWinner replaces the lifetime cap. Setting it below a winner's
// already-received total never claws anything back; it only blocks further
// accrual for that winner.
func (e *Engine) SetMaxBoostPerWinner(caller [20]byte, limit *big.Int) error {
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	if limit != nil && limit.Sign() < 0 {
		return fmt.Errorf("%w: per-winner limit must not be negative", ErrInvalidConfig)
	}
	value := big.NewInt(0)
	if limit != nil {
		value = new(big.Int).Set(limit)
	}
	previous, _, err := e.mutateConfig(func(cfg *Config) { cfg.MaxBoostPerWinner = value })
	if err != nil {
		return err
	}
	e.st.AppendEvent(coreevents.BoostLimitUpdated{
		Caller:   caller,
		Previous: previous.MaxBoostPerWinner,
		Current:  value,
	}.Event())
	return nil
}

// SetSourceEligibility toggles whether a source may trigger boosts.
func (e *Engine) SetSourceEligibility(caller, source [20]byte, eligible bool) error {
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	if err := e.st.SetSourceEligible(source, eligible); err != nil {
		return err
	}
	e.st.AppendEvent(coreevents.BoostSourceUpdated{
		Caller:   caller,
		Source:   source,
		Eligible: eligible,
	}.Event())
	return nil
}

// Pause halts boost evaluation; in-flight prize claims keep succeeding as
// silent no-ops.
func (e *Engine) Pause(caller [20]byte) error {
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	if _, _, err := e.mutateConfig(func(cfg *Config) { cfg.Paused = true }); err != nil {
		return err
	}
	e.st.AppendEvent(coreevents.BoostPaused{Caller: caller}.Event())
	return nil
}

// Resume re-enables boost evaluation.
func (e *Engine) Resume(caller [20]byte) error {
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	if _, _, err := e.mutateConfig(func(cfg *Config) { cfg.Paused = false }); err != nil {
		return err
	}
	e.st.AppendEvent(coreevents.BoostResumed{Caller: caller}.Event())
	return nil
}

// Withdraw moves reserve funds out of the module account for treasury
// management. Any token and any amount the module actually holds may be moved;
// the owner is fully trusted with module-held funds.
func (e *Engine) Withdraw(caller [20]byte, token string, destination [20]byte, amount *big.Int) (string, error) {
	if err := e.requireOwner(caller); err != nil {
		return "", err
	}
	normalized := strings.ToUpper(strings.TrimSpace(token))
	if normalized == "" {
		return "", fmt.Errorf("%w: token symbol required", ErrInvalidConfig)
	}
	if amount == nil || amount.Sign() <= 0 {
		return "", ErrInvalidAmount
	}
	if err := e.st.Transfer(ModuleAccount, destination, normalized, amount); err != nil {
		return "", fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	receipt := uuid.New().String()
	e.st.AppendEvent(coreevents.BoostReserveWithdrawn{
		Receipt:     receipt,
		Caller:      caller,
		Token:       normalized,
		Destination: destination,
		Amount:      new(big.Int).Set(amount),
	}.Event())
	return receipt, nil
}

// Config returns a copy of the stored configuration.
func (e *Engine) Config() (*Config, error) {
	cfg, err := e.st.BoostConfig()
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return (&Config{}).Normalize(), nil
	}
	return cfg.Clone().Normalize(), nil
}

// WinnerTotal returns the cumulative boost a winner has received.
func (e *Engine) WinnerTotal(winner [20]byte) (*big.Int, error) {
	return e.st.BoostReceived(winner)
}

// SourceEligible reports the stored eligibility flag for a source.
func (e *Engine) SourceEligible(source [20]byte) (bool, error) {
	return e.st.SourceEligible(source)
}

// ReserveBalance reports the module's balance for the given token.
func (e *Engine) ReserveBalance(token string) (*big.Int, error) {
	return e.st.Balance(ModuleAccount, strings.ToUpper(strings.TrimSpace(token)))
}
