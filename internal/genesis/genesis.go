// Package genesis builds the initial state a node starts from when no
// snapshot exists yet: the authorized-minters set and any opening account
// balances. It is scoped down from the teacher's ledger/genesis package to
// this domain's Account model — there is no ledger header, no amendment
// set, no close-time resolution to pick, just the state.New(minters)
// shape plus whatever opening balances an operator wants credited before
// the first real transaction lands.
package genesis

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/usageledger/ledgerd/internal/domain"
	"github.com/usageledger/ledgerd/internal/state"
)

// Config describes a genesis bootstrap: who may mint, and what balances
// exist before the first transaction is ever applied.
type Config struct {
	// Minters is the initial authorized-minters set. ctx.Minters is seeded
	// from state.AuthorizedMinters at every replay (see replay.ToTip), so
	// this set is load-bearing for as long as the log contains no
	// transaction that changes it — this spec has no such transaction, so
	// it is effectively permanent for the life of the ledger.
	Minters []domain.Address `json:"minters"`

	// InitialBalances credits each address with the given balance before
	// tx 0 is applied. Addresses not listed start at a zero balance and
	// are created lazily on first credit, same as any other account.
	InitialBalances []InitialBalance `json:"initial_balances"`
}

// InitialBalance is one opening credit granted at genesis.
type InitialBalance struct {
	Address domain.Address `json:"address"`
	Balance uint64         `json:"balance"`
}

// Build returns a fresh state.State seeded from cfg: the authorized
// minters plus the opening balances, with NextTxID at zero. It does not
// touch storage; callers decide whether and how to persist the result
// (typically via SnapshotStore.PersistState, so a restart finds it without
// replaying InitialBalances out of an empty log).
func Build(cfg Config) (*state.State, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	st := state.New(cfg.Minters)
	for _, ib := range cfg.InitialBalances {
		acct := st.Accounts[ib.Address]
		acct.Balance = ib.Balance
		st.Accounts[ib.Address] = acct
	}
	return st, nil
}

// Validate rejects a genesis config that can never produce a coherent
// ledger: duplicate minters, duplicate balance entries (which would
// silently let the last one win), and a missing address on either list.
func (c Config) Validate() error {
	seenMinters := make(map[domain.Address]bool, len(c.Minters))
	for _, m := range c.Minters {
		if m == "" {
			return fmt.Errorf("genesis: empty minter address")
		}
		if seenMinters[m] {
			return fmt.Errorf("genesis: duplicate minter %q", m)
		}
		seenMinters[m] = true
	}

	seenBalances := make(map[domain.Address]bool, len(c.InitialBalances))
	for _, ib := range c.InitialBalances {
		if ib.Address == "" {
			return fmt.Errorf("genesis: empty initial-balance address")
		}
		if seenBalances[ib.Address] {
			return fmt.Errorf("genesis: duplicate initial balance for %q", ib.Address)
		}
		seenBalances[ib.Address] = true
	}
	return nil
}

// LoadFile reads a genesis config from a JSON file. The file format
// mirrors Config's JSON tags directly; there is no separate "parsed"
// intermediate the way the teacher's GenesisJSON/ParsedGenesisState split
// does, since this domain's genesis has no ledger-header fields to
// validate against protocol constants before they become account state.
func LoadFile(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("genesis: read %s: %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("genesis: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SortedMinters returns cfg.Minters sorted, for deterministic logging and
// for config round-trips (viper/JSON preserve list order, but a sorted
// copy makes diffing two genesis files meaningful).
func (c Config) SortedMinters() []domain.Address {
	out := make([]domain.Address, len(c.Minters))
	copy(out, c.Minters)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
