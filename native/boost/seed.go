package boost

import (
	"fmt"
	"math/big"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"prizeboost/crypto"
)

// Seed is the genesis policy applied to an empty state: the initial owner,
// boost parameters and source allowlist. It is read from a YAML file next to
// the daemon configuration and ignored once the module has an owner.
type Seed struct {
	Owner             [20]byte
	Oracle            [20]byte
	Multiplier        uint64
	MaxBoostPerWinner *big.Int
	ReserveToken      string
	InitialReserve    *big.Int
	Sources           [][20]byte
}

// seedFile mirrors the YAML representation of the seed policy.
type seedFile struct {
	Owner             string   `yaml:"owner"`
	Oracle            string   `yaml:"oracle"`
	Multiplier        uint64   `yaml:"multiplier"`
	MaxBoostPerWinner string   `yaml:"max_boost_per_winner"`
	ReserveToken      string   `yaml:"reserve_token"`
	InitialReserve    string   `yaml:"initial_reserve"`
	Sources           []string `yaml:"sources"`
}

// LoadSeed reads and validates the seed policy from the provided YAML file.
func LoadSeed(path string) (*Seed, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed: %w", err)
	}
	defer file.Close()
	dec := yaml.NewDecoder(file)
	var raw seedFile
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	return parseSeed(&raw)
}

func parseSeed(raw *seedFile) (*Seed, error) {
	seed := &Seed{Multiplier: raw.Multiplier}

	owner, err := decodeSeedAddress(raw.Owner)
	if err != nil {
		return nil, fmt.Errorf("seed owner: %w", err)
	}
	seed.Owner = owner

	if strings.TrimSpace(raw.Oracle) != "" {
		oracle, err := decodeSeedAddress(raw.Oracle)
		if err != nil {
			return nil, fmt.Errorf("seed oracle: %w", err)
		}
		seed.Oracle = oracle
	}

	seed.ReserveToken = strings.ToUpper(strings.TrimSpace(raw.ReserveToken))
	if seed.ReserveToken == "" {
		return nil, fmt.Errorf("seed reserve_token required")
	}

	limit, err := parseDecimal(raw.MaxBoostPerWinner)
	if err != nil {
		return nil, fmt.Errorf("seed max_boost_per_winner: %w", err)
	}
	seed.MaxBoostPerWinner = limit

	reserve, err := parseDecimal(raw.InitialReserve)
	if err != nil {
		return nil, fmt.Errorf("seed initial_reserve: %w", err)
	}
	seed.InitialReserve = reserve

	seen := make(map[[20]byte]struct{}, len(raw.Sources))
	for _, entry := range raw.Sources {
		source, err := decodeSeedAddress(entry)
		if err != nil {
			return nil, fmt.Errorf("seed source %q: %w", entry, err)
		}
		if _, exists := seen[source]; exists {
			return nil, fmt.Errorf("duplicate seed source %s", entry)
		}
		seen[source] = struct{}{}
		seed.Sources = append(seed.Sources, source)
	}
	return seed, nil
}

func decodeSeedAddress(raw string) ([20]byte, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return [20]byte{}, fmt.Errorf("address required")
	}
	addr, err := crypto.DecodeAddress(trimmed)
	if err != nil {
		return [20]byte{}, err
	}
	return addr.Array(), nil
}

func parseDecimal(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer amount %q", raw)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("amount must be non-negative")
	}
	return value, nil
}

// Apply seeds an empty state. A state that already has an owner is left
// untouched so restarts never clobber admin changes.
func (s *Seed) Apply(st State) error {
	if s == nil || st == nil {
		return nil
	}
	owner, err := st.Owner()
	if err != nil {
		return err
	}
	var zero [20]byte
	if owner != zero {
		return nil
	}
	cfg := (&Config{
		Multiplier:        s.Multiplier,
		MaxBoostPerWinner: s.MaxBoostPerWinner,
		ReserveToken:      s.ReserveToken,
		Oracle:            s.Oracle,
	}).Normalize()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := st.SetBoostConfig(cfg); err != nil {
		return err
	}
	if err := st.SetOwner(s.Owner); err != nil {
		return err
	}
	for _, source := range s.Sources {
		if err := st.SetSourceEligible(source, true); err != nil {
			return err
		}
	}
	if s.InitialReserve != nil && s.InitialReserve.Sign() > 0 {
		current, err := st.Balance(ModuleAccount, cfg.ReserveToken)
		if err != nil {
			return err
		}
		if current.Sign() == 0 {
			if err := creditReserve(st, cfg.ReserveToken, s.InitialReserve); err != nil {
				return err
			}
		}
	}
	return nil
}

// creditReserve funds the module account at genesis. The state implementation
// exposes this through a dedicated interface because normal operation only
// ever moves existing balances.
func creditReserve(st State, token string, amount *big.Int) error {
	type minter interface {
		CreditBalance(addr [20]byte, token string, amount *big.Int) error
	}
	m, ok := st.(minter)
	if !ok {
		return fmt.Errorf("state does not support reserve funding")
	}
	return m.CreditBalance(ModuleAccount, token, amount)
}
