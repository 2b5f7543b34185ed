package state

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/rlp"

	coreevents "prizeboost/core/events"
	"prizeboost/core/types"
	"prizeboost/native/boost"
	"prizeboost/storage"
)

// Manager persists the boost module's state as keccak-keyed, RLP-encoded
// values in the backing key-value store. It implements boost.State.
type Manager struct {
	db      storage.Database
	emitter coreevents.Emitter
}

// NewManager creates a state manager over the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db, emitter: coreevents.NoopEmitter{}}
}

// SetEmitter configures the event emitter used to broadcast appended events.
// Passing nil resets the emitter to a no-op implementation.
func (m *Manager) SetEmitter(emitter coreevents.Emitter) {
	if emitter == nil {
		m.emitter = coreevents.NoopEmitter{}
		return
	}
	m.emitter = emitter
}

// storedConfig is the RLP wire form of boost.Config. RLP has no native uint64
// bool-pointer handling quirks to worry about here; big.Int fields must be
// non-nil, which Normalize guarantees.
type storedConfig struct {
	Multiplier        uint64
	MaxBoostPerWinner *big.Int
	ReserveToken      string
	Oracle            [20]byte
	Paused            bool
}

func (m *Manager) get(key []byte) ([]byte, bool, error) {
	data, err := m.db.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if len(data) == 0 {
		return nil, false, nil
	}
	return data, true, nil
}

// BoostConfig loads the stored configuration, or nil when unseeded.
func (m *Manager) BoostConfig() (*boost.Config, error) {
	data, ok, err := m.get(boostConfigKey)
	if err != nil || !ok {
		return nil, err
	}
	stored := new(storedConfig)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, err
	}
	return (&boost.Config{
		Multiplier:        stored.Multiplier,
		MaxBoostPerWinner: stored.MaxBoostPerWinner,
		ReserveToken:      stored.ReserveToken,
		Oracle:            stored.Oracle,
		Paused:            stored.Paused,
	}).Normalize(), nil
}

// SetBoostConfig persists the configuration.
func (m *Manager) SetBoostConfig(cfg *boost.Config) error {
	if cfg == nil {
		return fmt.Errorf("state: nil config")
	}
	normalized := cfg.Clone().Normalize()
	encoded, err := rlp.EncodeToBytes(&storedConfig{
		Multiplier:        normalized.Multiplier,
		MaxBoostPerWinner: normalized.MaxBoostPerWinner,
		ReserveToken:      normalized.ReserveToken,
		Oracle:            normalized.Oracle,
		Paused:            normalized.Paused,
	})
	if err != nil {
		return err
	}
	return m.db.Put(boostConfigKey, encoded)
}

func (m *Manager) readAddress(key []byte) ([20]byte, bool, error) {
	var addr [20]byte
	data, ok, err := m.get(key)
	if err != nil || !ok {
		return addr, false, err
	}
	var raw []byte
	if err := rlp.DecodeBytes(data, &raw); err != nil {
		return addr, false, err
	}
	copy(addr[:], raw)
	return addr, true, nil
}

func (m *Manager) writeAddress(key []byte, addr [20]byte) error {
	encoded, err := rlp.EncodeToBytes(addr[:])
	if err != nil {
		return err
	}
	return m.db.Put(key, encoded)
}

// Owner returns the module owner, or the zero address when unseeded.
func (m *Manager) Owner() ([20]byte, error) {
	addr, _, err := m.readAddress(boostOwnerKey)
	return addr, err
}

// SetOwner stores the module owner.
func (m *Manager) SetOwner(addr [20]byte) error {
	return m.writeAddress(boostOwnerKey, addr)
}

// PendingOwner returns the outstanding ownership nomination, if any.
func (m *Manager) PendingOwner() ([20]byte, bool, error) {
	return m.readAddress(boostPendingOwnerKey)
}

// SetPendingOwner stores an ownership nomination.
func (m *Manager) SetPendingOwner(addr [20]byte) error {
	return m.writeAddress(boostPendingOwnerKey, addr)
}

// ClearPendingOwner removes an outstanding nomination.
func (m *Manager) ClearPendingOwner() error {
	return m.db.Delete(boostPendingOwnerKey)
}

// SourceEligible reports the stored eligibility flag; absent entries default
// to ineligible.
func (m *Manager) SourceEligible(source [20]byte) (bool, error) {
	data, ok, err := m.get(sourceKey(source))
	if err != nil || !ok {
		return false, err
	}
	var eligible bool
	if err := rlp.DecodeBytes(data, &eligible); err != nil {
		return false, err
	}
	return eligible, nil
}

// SetSourceEligible stores the eligibility flag for a source.
func (m *Manager) SetSourceEligible(source [20]byte, eligible bool) error {
	encoded, err := rlp.EncodeToBytes(eligible)
	if err != nil {
		return err
	}
	return m.db.Put(sourceKey(source), encoded)
}

// BoostReceived returns the cumulative boost paid to a winner, lazily zero.
func (m *Manager) BoostReceived(winner [20]byte) (*big.Int, error) {
	data, ok, err := m.get(ledgerKey(winner))
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	amount := new(big.Int)
	if err := rlp.DecodeBytes(data, amount); err != nil {
		return nil, err
	}
	return amount, nil
}

// SetBoostReceived stores the cumulative boost for a winner.
func (m *Manager) SetBoostReceived(winner [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("state: ledger amount must be non-negative")
	}
	encoded, err := rlp.EncodeToBytes(amount)
	if err != nil {
		return err
	}
	return m.db.Put(ledgerKey(winner), encoded)
}

// ClaimProcessed reports whether a claim coordinate was already boosted.
func (m *Manager) ClaimProcessed(key boost.ClaimKey) (bool, error) {
	return m.db.Has(claimKey(key))
}

// SetClaimProcessed marks or unmarks a claim coordinate.
func (m *Manager) SetClaimProcessed(key boost.ClaimKey, processed bool) error {
	if !processed {
		return m.db.Delete(claimKey(key))
	}
	return m.db.Put(claimKey(key), []byte{1})
}

// Balance retrieves a token balance for the provided account.
func (m *Manager) Balance(addr [20]byte, symbol string) (*big.Int, error) {
	normalized := strings.ToUpper(strings.TrimSpace(symbol))
	data, ok, err := m.get(balanceKey(addr, normalized))
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	amount := new(big.Int)
	if err := rlp.DecodeBytes(data, amount); err != nil {
		return nil, err
	}
	return amount, nil
}

func (m *Manager) setBalance(addr [20]byte, symbol string, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("state: negative balance not allowed")
	}
	encoded, err := rlp.EncodeToBytes(amount)
	if err != nil {
		return err
	}
	return m.db.Put(balanceKey(addr, symbol), encoded)
}

// Transfer moves a token balance between accounts, failing on insufficient
// funds. Callers treat failures as fatal aborts.
func (m *Manager) Transfer(from, to [20]byte, symbol string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("state: transfer amount must be positive")
	}
	if from == to {
		return fmt.Errorf("state: transfer to self")
	}
	normalized := strings.ToUpper(strings.TrimSpace(symbol))
	if normalized == "" {
		return fmt.Errorf("state: token symbol required")
	}
	fromBalance, err := m.Balance(from, normalized)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return fmt.Errorf("state: insufficient %s balance", normalized)
	}
	toBalance, err := m.Balance(to, normalized)
	if err != nil {
		return err
	}
	if err := m.setBalance(from, normalized, new(big.Int).Sub(fromBalance, amount)); err != nil {
		return err
	}
	return m.setBalance(to, normalized, new(big.Int).Add(toBalance, amount))
}

// CreditBalance funds an account out of thin air. Only genesis seeding uses
// this; every runtime movement goes through Transfer.
func (m *Manager) CreditBalance(addr [20]byte, symbol string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("state: credit amount must be positive")
	}
	normalized := strings.ToUpper(strings.TrimSpace(symbol))
	if normalized == "" {
		return fmt.Errorf("state: token symbol required")
	}
	current, err := m.Balance(addr, normalized)
	if err != nil {
		return err
	}
	return m.setBalance(addr, normalized, new(big.Int).Add(current, amount))
}

// rawEvent adapts an already-rendered payload to the events.Event interface.
type rawEvent struct {
	payload *types.Event
}

func (r rawEvent) EventType() string {
	if r.payload == nil {
		return ""
	}
	return r.payload.Type
}

func (r rawEvent) Event() *types.Event { return r.payload.Copy() }

// AppendEvent forwards a generic event payload to the configured emitter.
func (m *Manager) AppendEvent(evt *types.Event) {
	if evt == nil {
		return
	}
	m.emitter.Emit(rawEvent{payload: evt.Copy()})
}
