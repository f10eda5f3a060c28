package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/usageledger/ledgerd/internal/domain"
	"github.com/usageledger/ledgerd/internal/evidence"
	"github.com/usageledger/ledgerd/internal/state"
)

// snapshotPayload is the on-disk shape of a snapshot: the full state plus
// the cursor it was taken at. Declared as its own struct (rather than
// reusing state.State directly) so canonical field order is pinned
// independent of any future State field additions.
type snapshotPayload struct {
	NextTxID uint64
	Minters  []domain.Address
	Accounts []snapshotAccount
	Meters   []snapshotMeter
	Revoked  []domain.CapabilityID

	Consumption []snapshotConsumption
	Settlements []snapshotSettlement
	Claims      []domain.Claim
	Disputes    []snapshotDispute
	Policies    []domain.PolicyVersion
}

type snapshotAccount struct {
	Address domain.Address
	Account domain.Account
}

type snapshotMeter struct {
	Key   domain.MeterKey
	Meter domain.Meter
}

type snapshotConsumption struct {
	CapabilityID domain.CapabilityID
	Consumption  domain.CapabilityConsumption
}

type snapshotSettlement struct {
	Key        domain.SettlementKey
	Settlement domain.Settlement
}

type snapshotDispute struct {
	Key     domain.SettlementKey
	Dispute domain.Dispute
}

// SnapshotStore persists full-state snapshots as a single file, written to
// a temp path and fsynced before an atomic rename over the previous
// snapshot, per the storage backend contract. Snapshots are optional:
// correctness requires only the log, so a missing snapshot file simply
// means replay starts from genesis.
type SnapshotStore struct {
	path string
}

// NewSnapshotStore returns a store that reads and writes snapshots at path.
func NewSnapshotStore(path string) *SnapshotStore {
	return &SnapshotStore{path: path}
}

// LoadState reads the snapshot file, if one exists.
func (s *SnapshotStore) LoadState() (*state.State, uint64, bool, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, false, nil
		}
		return nil, 0, false, fmt.Errorf("storage: read snapshot: %w", err)
	}

	var payload snapshotPayload
	if err := evidence.DecodeCanonical(b, &payload); err != nil {
		return nil, 0, false, fmt.Errorf("storage: decode snapshot: %w", err)
	}
	return payload.toState(), payload.NextTxID, true, nil
}

// PersistState writes a new snapshot for s at nextTxID to a temp file in
// the same directory, fsyncs it, and atomically renames it over the
// previous snapshot so a crash mid-write can never leave a torn file.
func (s *SnapshotStore) PersistState(st *state.State, nextTxID uint64) error {
	payload := snapshotFromState(st, nextTxID)
	b, err := evidence.CanonicalBytes(payload)
	if err != nil {
		return fmt.Errorf("storage: encode snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create snapshot temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("storage: write snapshot temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("storage: fsync snapshot temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close snapshot temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("storage: rename snapshot into place: %w", err)
	}
	return nil
}

func snapshotFromState(st *state.State, nextTxID uint64) snapshotPayload {
	p := snapshotPayload{NextTxID: nextTxID}

	for _, a := range st.AccountAddresses() {
		p.Accounts = append(p.Accounts, snapshotAccount{Address: a, Account: st.Accounts[a]})
	}
	p.Minters = st.MinterAddresses()
	for _, k := range st.MeterKeys() {
		p.Meters = append(p.Meters, snapshotMeter{Key: k, Meter: st.Meters[k]})
	}
	p.Revoked = st.RevokedCapabilityIDs()
	for _, id := range st.ConsumptionCapabilityIDs() {
		p.Consumption = append(p.Consumption, snapshotConsumption{CapabilityID: id, Consumption: st.Consumption[id]})
	}
	for _, k := range st.SettlementKeys() {
		p.Settlements = append(p.Settlements, snapshotSettlement{Key: k, Settlement: st.Settlements[k]})
	}
	for _, id := range st.ClaimIDs() {
		p.Claims = append(p.Claims, st.Claims[id])
	}
	for _, k := range st.SettlementKeys() {
		if d, ok := st.Disputes[k]; ok {
			p.Disputes = append(p.Disputes, snapshotDispute{Key: k, Dispute: d})
		}
	}
	p.Policies = st.PolicyVersions()
	return p
}

func (p snapshotPayload) toState() *state.State {
	st := state.New(p.Minters)
	for _, a := range p.Accounts {
		st.Accounts[a.Address] = a.Account
	}
	for _, m := range p.Meters {
		st.Meters[m.Key] = m.Meter
	}
	for _, id := range p.Revoked {
		st.Revoked[id] = true
	}
	for _, c := range p.Consumption {
		st.Consumption[c.CapabilityID] = c.Consumption
	}
	for _, s := range p.Settlements {
		st.Settlements[s.Key] = s.Settlement
	}
	for _, c := range p.Claims {
		st.Claims[c.ClaimID] = c
	}
	for _, d := range p.Disputes {
		st.Disputes[d.Key] = d.Dispute
	}
	for _, pv := range p.Policies {
		versions, ok := st.Policies[pv.ScopeKey]
		if !ok {
			versions = make(map[uint64]domain.PolicyVersion)
			st.Policies[pv.ScopeKey] = versions
		}
		versions[pv.Version] = pv
	}
	return st
}
