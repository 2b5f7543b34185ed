package boost

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"prizeboost/core/types"
)

type mockState struct {
	cfg          *Config
	owner        [20]byte
	pending      [20]byte
	hasPending   bool
	sources      map[[20]byte]bool
	received     map[[20]byte]*big.Int
	processed    map[ClaimKey]bool
	balances     map[string]*big.Int
	events       []types.Event
	failTransfer bool
}

func newMockState(cfg *Config) *mockState {
	m := &mockState{
		sources:   make(map[[20]byte]bool),
		received:  make(map[[20]byte]*big.Int),
		processed: make(map[ClaimKey]bool),
		balances:  make(map[string]*big.Int),
	}
	if cfg != nil {
		m.cfg = cfg.Clone().Normalize()
	}
	return m
}

func balanceKey(addr [20]byte, token string) string {
	return string(addr[:]) + "/" + token
}

func (m *mockState) BoostConfig() (*Config, error) {
	if m.cfg == nil {
		return nil, nil
	}
	return m.cfg.Clone(), nil
}

func (m *mockState) SetBoostConfig(cfg *Config) error {
	m.cfg = cfg.Clone()
	return nil
}

func (m *mockState) Owner() ([20]byte, error) { return m.owner, nil }

func (m *mockState) SetOwner(addr [20]byte) error {
	m.owner = addr
	return nil
}

func (m *mockState) PendingOwner() ([20]byte, bool, error) {
	return m.pending, m.hasPending, nil
}

func (m *mockState) SetPendingOwner(addr [20]byte) error {
	m.pending = addr
	m.hasPending = true
	return nil
}

func (m *mockState) ClearPendingOwner() error {
	m.pending = [20]byte{}
	m.hasPending = false
	return nil
}

func (m *mockState) SourceEligible(source [20]byte) (bool, error) {
	return m.sources[source], nil
}

func (m *mockState) SetSourceEligible(source [20]byte, eligible bool) error {
	m.sources[source] = eligible
	return nil
}

func (m *mockState) BoostReceived(winner [20]byte) (*big.Int, error) {
	if amt, ok := m.received[winner]; ok {
		return new(big.Int).Set(amt), nil
	}
	return big.NewInt(0), nil
}

func (m *mockState) SetBoostReceived(winner [20]byte, amount *big.Int) error {
	m.received[winner] = new(big.Int).Set(amount)
	return nil
}

func (m *mockState) ClaimProcessed(key ClaimKey) (bool, error) {
	return m.processed[key], nil
}

func (m *mockState) SetClaimProcessed(key ClaimKey, processed bool) error {
	if processed {
		m.processed[key] = true
	} else {
		delete(m.processed, key)
	}
	return nil
}

func (m *mockState) Balance(addr [20]byte, token string) (*big.Int, error) {
	if amt, ok := m.balances[balanceKey(addr, token)]; ok {
		return new(big.Int).Set(amt), nil
	}
	return big.NewInt(0), nil
}

func (m *mockState) Transfer(from, to [20]byte, token string, amount *big.Int) error {
	if m.failTransfer {
		return fmt.Errorf("transfer rejected")
	}
	fromBal, _ := m.Balance(from, token)
	if fromBal.Cmp(amount) < 0 {
		return fmt.Errorf("insufficient funds")
	}
	toBal, _ := m.Balance(to, token)
	m.balances[balanceKey(from, token)] = new(big.Int).Sub(fromBal, amount)
	m.balances[balanceKey(to, token)] = new(big.Int).Add(toBal, amount)
	return nil
}

func (m *mockState) CreditBalance(addr [20]byte, token string, amount *big.Int) error {
	current, _ := m.Balance(addr, token)
	m.balances[balanceKey(addr, token)] = new(big.Int).Add(current, amount)
	return nil
}

func (m *mockState) AppendEvent(evt *types.Event) {
	if evt == nil {
		return
	}
	m.events = append(m.events, *evt.Copy())
}

type stubOracle struct {
	until uint64
	err   error
}

func (o stubOracle) VerifiedUntil(addr [20]byte) (uint64, error) {
	return o.until, o.err
}

func addr(b byte) [20]byte {
	var a [20]byte
	a[19] = b
	return a
}

func testConfig(multiplier uint64, cap int64) *Config {
	return (&Config{
		Multiplier:        multiplier,
		MaxBoostPerWinner: big.NewInt(cap),
		ReserveToken:      "ZNHB",
	}).Normalize()
}

func claimCtx(source, winner [20]byte, prize int64) *ClaimContext {
	return &ClaimContext{
		Source:    source,
		Winner:    winner,
		Tier:      1,
		Draw:      7,
		Index:     0,
		Prize:     big.NewInt(prize),
		Timestamp: 1_700_000_000,
	}
}

func setupEngine(cfg *Config, reserve int64, oracle VerificationOracle) (*Engine, *mockState) {
	st := newMockState(cfg)
	st.balances[balanceKey(ModuleAccount, "ZNHB")] = big.NewInt(reserve)
	return NewEngine(st, oracle), st
}

func lastEvent(t *testing.T, st *mockState) types.Event {
	t.Helper()
	if len(st.events) == 0 {
		t.Fatalf("expected at least one event")
	}
	return st.events[len(st.events)-1]
}

func expectSkip(t *testing.T, st *mockState, reason string) {
	t.Helper()
	evt := lastEvent(t, st)
	if evt.Type != eventBoostSkipped {
		t.Fatalf("expected skip event, got %s", evt.Type)
	}
	if got := evt.Attributes["reason"]; got != reason {
		t.Fatalf("expected skip reason %q, got %q", reason, got)
	}
}

func TestPostClaimHappyPath(t *testing.T) {
	source := addr(1)
	winner := addr(2)
	engine, st := setupEngine(testConfig(2, 10_000), 1_000, stubOracle{until: 1_800_000_000})
	st.sources[source] = true

	ctx := claimCtx(source, winner, 100)
	if err := engine.PostClaim(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	winnerBal, _ := st.Balance(winner, "ZNHB")
	if winnerBal.String() != "200" {
		t.Fatalf("expected winner balance 200, got %s", winnerBal)
	}
	reserve, _ := st.Balance(ModuleAccount, "ZNHB")
	if reserve.String() != "800" {
		t.Fatalf("expected reserve 800, got %s", reserve)
	}
	total, _ := st.BoostReceived(winner)
	if total.String() != "200" {
		t.Fatalf("expected winner total 200, got %s", total)
	}
	if !st.processed[ctx.Key()] {
		t.Fatalf("expected claim key to be marked processed")
	}
	evt := lastEvent(t, st)
	if evt.Type != "boost.executed" {
		t.Fatalf("expected boost.executed event, got %s", evt.Type)
	}
	if evt.Attributes["amount"] != "200" {
		t.Fatalf("expected amount attribute 200, got %s", evt.Attributes["amount"])
	}
	if evt.Attributes["prize"] != "100" {
		t.Fatalf("expected prize attribute 100, got %s", evt.Attributes["prize"])
	}
}

func TestPostClaimRecipientOverride(t *testing.T) {
	source := addr(1)
	winner := addr(2)
	recipient := addr(3)
	engine, st := setupEngine(testConfig(3, 10_000), 1_000, stubOracle{until: 1_800_000_000})
	st.sources[source] = true

	ctx := claimCtx(source, winner, 50)
	ctx.Recipient = recipient
	if err := engine.PostClaim(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	recipientBal, _ := st.Balance(recipient, "ZNHB")
	if recipientBal.String() != "150" {
		t.Fatalf("expected recipient balance 150, got %s", recipientBal)
	}
	winnerBal, _ := st.Balance(winner, "ZNHB")
	if winnerBal.Sign() != 0 {
		t.Fatalf("expected winner balance 0, got %s", winnerBal)
	}
	// The lifetime cap tracks the winner regardless of where funds land.
	total, _ := st.BoostReceived(winner)
	if total.String() != "150" {
		t.Fatalf("expected winner total 150, got %s", total)
	}
}

func TestPostClaimNotSeeded(t *testing.T) {
	engine, st := setupEngine(nil, 1_000, stubOracle{until: 1_800_000_000})
	if err := engine.PostClaim(claimCtx(addr(1), addr(2), 100)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectSkip(t, st, "not_seeded")
}

func TestPostClaimPaused(t *testing.T) {
	cfg := testConfig(2, 10_000)
	cfg.Paused = true
	engine, st := setupEngine(cfg, 1_000, stubOracle{until: 1_800_000_000})
	st.sources[addr(1)] = true

	if err := engine.PostClaim(claimCtx(addr(1), addr(2), 100)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectSkip(t, st, "paused")
	if total, _ := st.BoostReceived(addr(2)); total.Sign() != 0 {
		t.Fatalf("expected no accrual while paused, got %s", total)
	}
}

func TestPostClaimSourceNotEligible(t *testing.T) {
	engine, st := setupEngine(testConfig(2, 10_000), 1_000, stubOracle{until: 1_800_000_000})

	if err := engine.PostClaim(claimCtx(addr(1), addr(2), 100)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectSkip(t, st, "source_not_eligible")
	if total, _ := st.BoostReceived(addr(2)); total.Sign() != 0 {
		t.Fatalf("expected no accrual for ineligible source, got %s", total)
	}
}

func TestPostClaimWinnerNotVerified(t *testing.T) {
	source := addr(1)
	winner := addr(2)
	cases := []struct {
		name   string
		oracle VerificationOracle
	}{
		{"expired window", stubOracle{until: 1}},
		{"window at timestamp", stubOracle{until: 1_700_000_000}},
		{"oracle error", stubOracle{err: errors.New("gateway down")}},
		{"no oracle", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine, st := setupEngine(testConfig(2, 10_000), 1_000, tc.oracle)
			st.sources[source] = true
			if err := engine.PostClaim(claimCtx(source, winner, 100)); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			expectSkip(t, st, "winner_not_verified")
		})
	}
}

func TestPostClaimReplayIsNoop(t *testing.T) {
	source := addr(1)
	winner := addr(2)
	engine, st := setupEngine(testConfig(2, 10_000), 1_000, stubOracle{until: 1_800_000_000})
	st.sources[source] = true

	if err := engine.PostClaim(claimCtx(source, winner, 100)); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if err := engine.PostClaim(claimCtx(source, winner, 100)); err != nil {
		t.Fatalf("replayed claim: %v", err)
	}

	expectSkip(t, st, "claim_processed")
	total, _ := st.BoostReceived(winner)
	if total.String() != "200" {
		t.Fatalf("expected total unchanged at 200, got %s", total)
	}
}

func TestPostClaimDistinctIndexesAccrue(t *testing.T) {
	source := addr(1)
	winner := addr(2)
	engine, st := setupEngine(testConfig(2, 10_000), 1_000, stubOracle{until: 1_800_000_000})
	st.sources[source] = true

	first := claimCtx(source, winner, 100)
	second := claimCtx(source, winner, 100)
	second.Index = 1
	if err := engine.PostClaim(first); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if err := engine.PostClaim(second); err != nil {
		t.Fatalf("second claim: %v", err)
	}
	total, _ := st.BoostReceived(winner)
	if total.String() != "400" {
		t.Fatalf("expected total 400 across two claims, got %s", total)
	}
}

func TestPostClaimClampsToRemaining(t *testing.T) {
	source := addr(1)
	winner := addr(2)
	engine, st := setupEngine(testConfig(5, 1_000), 10_000, stubOracle{until: 1_800_000_000})
	st.sources[source] = true
	st.received[winner] = big.NewInt(800)

	// 5x on 100 would be 500 but only 200 of headroom remains.
	if err := engine.PostClaim(claimCtx(source, winner, 100)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	total, _ := st.BoostReceived(winner)
	if total.String() != "1000" {
		t.Fatalf("expected total exactly at cap 1000, got %s", total)
	}
	winnerBal, _ := st.Balance(winner, "ZNHB")
	if winnerBal.String() != "200" {
		t.Fatalf("expected clamped payout 200, got %s", winnerBal)
	}
}

func TestPostClaimWinnerAtLimit(t *testing.T) {
	source := addr(1)
	winner := addr(2)
	engine, st := setupEngine(testConfig(2, 1_000), 10_000, stubOracle{until: 1_800_000_000})
	st.sources[source] = true
	st.received[winner] = big.NewInt(1_000)

	if err := engine.PostClaim(claimCtx(source, winner, 100)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectSkip(t, st, "winner_at_limit")
	total, _ := st.BoostReceived(winner)
	if total.String() != "1000" {
		t.Fatalf("expected total unchanged at 1000, got %s", total)
	}
}

func TestPostClaimCapLoweredBelowReceived(t *testing.T) {
	source := addr(1)
	winner := addr(2)
	owner := addr(9)
	engine, st := setupEngine(testConfig(2, 10_000), 10_000, stubOracle{until: 1_800_000_000})
	st.owner = owner
	st.sources[source] = true

	if err := engine.PostClaim(claimCtx(source, winner, 150)); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	total, _ := st.BoostReceived(winner)
	if total.String() != "300" {
		t.Fatalf("expected total 300 after first claim, got %s", total)
	}

	// Lowering the cap below the accrued total never claws back; it only
	// blocks further accrual.
	if err := engine.SetMaxBoostPerWinner(owner, big.NewInt(200)); err != nil {
		t.Fatalf("lower cap: %v", err)
	}
	next := claimCtx(source, winner, 150)
	next.Index = 1
	if err := engine.PostClaim(next); err != nil {
		t.Fatalf("second claim: %v", err)
	}
	expectSkip(t, st, "winner_at_limit")
	total, _ = st.BoostReceived(winner)
	if total.String() != "300" {
		t.Fatalf("expected total unchanged at 300, got %s", total)
	}
}

func TestPostClaimZeroMultiplier(t *testing.T) {
	source := addr(1)
	engine, st := setupEngine(testConfig(0, 10_000), 1_000, stubOracle{until: 1_800_000_000})
	st.sources[source] = true

	if err := engine.PostClaim(claimCtx(source, addr(2), 100)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectSkip(t, st, "boost_zero")
}

func TestPostClaimZeroCap(t *testing.T) {
	source := addr(1)
	engine, st := setupEngine(testConfig(2, 0), 1_000, stubOracle{until: 1_800_000_000})
	st.sources[source] = true

	if err := engine.PostClaim(claimCtx(source, addr(2), 100)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectSkip(t, st, "winner_at_limit")
}

func TestPostClaimReserveInsufficient(t *testing.T) {
	source := addr(1)
	winner := addr(2)
	engine, st := setupEngine(testConfig(10, 100_000), 50, stubOracle{until: 1_800_000_000})
	st.sources[source] = true

	if err := engine.PostClaim(claimCtx(source, winner, 100)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectSkip(t, st, "reserve_insufficient")
	total, _ := st.BoostReceived(winner)
	if total.Sign() != 0 {
		t.Fatalf("expected no accrual on empty reserve, got %s", total)
	}
	if st.processed[claimCtx(source, winner, 100).Key()] {
		t.Fatalf("expected claim key to stay unprocessed")
	}
}

func TestPostClaimOverflowFailsHard(t *testing.T) {
	source := addr(1)
	winner := addr(2)
	cfg := &Config{
		Multiplier:        ^uint64(0),
		MaxBoostPerWinner: new(big.Int).Lsh(big.NewInt(1), 250),
		ReserveToken:      "ZNHB",
	}
	engine, st := setupEngine(cfg.Normalize(), 1_000, stubOracle{until: 1_800_000_000})
	st.sources[source] = true

	ctx := claimCtx(source, winner, 0)
	ctx.Prize = new(big.Int).Lsh(big.NewInt(1), 200)
	err := engine.PostClaim(ctx)
	if !errors.Is(err, ErrAmountOverflow) {
		t.Fatalf("expected overflow error, got %v", err)
	}
	total, _ := st.BoostReceived(winner)
	if total.Sign() != 0 {
		t.Fatalf("expected no accrual on overflow, got %s", total)
	}
	if st.processed[ctx.Key()] {
		t.Fatalf("expected claim key to stay unprocessed on overflow")
	}
}

func TestPostClaimTransferFailureRollsBack(t *testing.T) {
	source := addr(1)
	winner := addr(2)
	engine, st := setupEngine(testConfig(2, 10_000), 1_000, stubOracle{until: 1_800_000_000})
	st.sources[source] = true
	st.failTransfer = true

	ctx := claimCtx(source, winner, 100)
	err := engine.PostClaim(ctx)
	if !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("expected transfer failure, got %v", err)
	}
	total, _ := st.BoostReceived(winner)
	if total.Sign() != 0 {
		t.Fatalf("expected ledger rolled back, got %s", total)
	}
	if st.processed[ctx.Key()] {
		t.Fatalf("expected claim mark rolled back")
	}

	// The same coordinate must succeed once the transfer path recovers.
	st.failTransfer = false
	if err := engine.PostClaim(ctx); err != nil {
		t.Fatalf("retry after recovery: %v", err)
	}
	total, _ = st.BoostReceived(winner)
	if total.String() != "200" {
		t.Fatalf("expected retry to pay 200, got %s", total)
	}
}

func TestPreClaimIsNoop(t *testing.T) {
	engine, st := setupEngine(testConfig(2, 10_000), 1_000, stubOracle{until: 1_800_000_000})
	redirect, aux, err := engine.PreClaim(addr(2), 1, 0, big.NewInt(100), addr(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if redirect != ([20]byte{}) {
		t.Fatalf("expected zero redirect, got %x", redirect)
	}
	if len(aux) != 0 {
		t.Fatalf("expected empty aux data, got %x", aux)
	}
	if len(st.events) != 0 {
		t.Fatalf("expected no events, got %d", len(st.events))
	}
}

func TestBoostAmount(t *testing.T) {
	cases := []struct {
		name       string
		prize      int64
		multiplier uint64
		want       string
	}{
		{"simple", 100, 2, "200"},
		{"identity", 77, 1, "77"},
		{"zero prize", 0, 5, "0"},
		{"zero multiplier", 100, 0, "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := boostAmount(big.NewInt(tc.prize), tc.multiplier)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestClaimKeyCoordinates(t *testing.T) {
	base := claimCtx(addr(1), addr(2), 100)
	variants := []*ClaimContext{
		claimCtx(addr(3), addr(2), 100),
		claimCtx(addr(1), addr(4), 100),
	}
	tierVariant := claimCtx(addr(1), addr(2), 100)
	tierVariant.Tier = 2
	drawVariant := claimCtx(addr(1), addr(2), 100)
	drawVariant.Draw = 8
	indexVariant := claimCtx(addr(1), addr(2), 100)
	indexVariant.Index = 1
	variants = append(variants, tierVariant, drawVariant, indexVariant)

	for i, variant := range variants {
		if variant.Key() == base.Key() {
			t.Fatalf("variant %d unexpectedly collides with base key", i)
		}
	}
	// Prize and timestamp are not part of the coordinate.
	prizeVariant := claimCtx(addr(1), addr(2), 999)
	prizeVariant.Timestamp = 42
	if prizeVariant.Key() != base.Key() {
		t.Fatalf("expected prize and timestamp to be excluded from the key")
	}
}
