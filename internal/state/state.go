// Package state holds the domain state container: the ordered collection
// of accounts, meters, delegation bookkeeping, settlements, claims,
// disputes and policy versions that the engine validates against and
// mutates. All map iteration performed for hashing or snapshotting goes
// through the Keys-returning helpers below, which sort deterministically,
// so the resulting byte encoding never depends on Go's randomized map
// iteration order or on insertion history.
package state

import (
	"sort"

	"github.com/usageledger/ledgerd/internal/domain"
)

// State is the full domain state at a point in the transaction log. It is
// owned exclusively by the engine during apply; callers that want a
// consistent read of it should take a Clone.
type State struct {
	NextTxID uint64

	AuthorizedMinters map[domain.Address]bool

	Accounts map[domain.Address]domain.Account
	Meters   map[domain.MeterKey]domain.Meter

	Revoked      map[domain.CapabilityID]bool
	Consumption  map[domain.CapabilityID]domain.CapabilityConsumption

	Settlements map[domain.SettlementKey]domain.Settlement
	Claims      map[string]domain.Claim
	Disputes    map[domain.SettlementKey]domain.Dispute

	// Policies is scope -> version -> PolicyVersion. EffectivePolicy looks
	// up the highest Published version at or below a requested scope,
	// falling back through owner_service -> owner -> global precedence.
	Policies map[string]map[uint64]domain.PolicyVersion
}

// New returns an empty genesis state: no accounts, no meters, tx cursor at
// zero, and the given set of authorized minters.
func New(minters []domain.Address) *State {
	s := &State{
		AuthorizedMinters: make(map[domain.Address]bool, len(minters)),
		Accounts:          make(map[domain.Address]domain.Account),
		Meters:            make(map[domain.MeterKey]domain.Meter),
		Revoked:           make(map[domain.CapabilityID]bool),
		Consumption:       make(map[domain.CapabilityID]domain.CapabilityConsumption),
		Settlements:       make(map[domain.SettlementKey]domain.Settlement),
		Claims:            make(map[string]domain.Claim),
		Disputes:          make(map[domain.SettlementKey]domain.Dispute),
		Policies:          make(map[string]map[uint64]domain.PolicyVersion),
	}
	for _, m := range minters {
		s.AuthorizedMinters[m] = true
	}
	return s
}

// Clone returns a deep copy so that reads (reporting, evidence
// verification) can proceed concurrently with further engine mutation.
func (s *State) Clone() *State {
	c := &State{
		NextTxID:          s.NextTxID,
		AuthorizedMinters: cloneBoolMap(s.AuthorizedMinters),
		Accounts:          make(map[domain.Address]domain.Account, len(s.Accounts)),
		Meters:            make(map[domain.MeterKey]domain.Meter, len(s.Meters)),
		Revoked:           cloneCapBoolMap(s.Revoked),
		Consumption:       make(map[domain.CapabilityID]domain.CapabilityConsumption, len(s.Consumption)),
		Settlements:       make(map[domain.SettlementKey]domain.Settlement, len(s.Settlements)),
		Claims:            make(map[string]domain.Claim, len(s.Claims)),
		Disputes:          make(map[domain.SettlementKey]domain.Dispute, len(s.Disputes)),
		Policies:          make(map[string]map[uint64]domain.PolicyVersion, len(s.Policies)),
	}
	for k, v := range s.Accounts {
		c.Accounts[k] = v
	}
	for k, v := range s.Meters {
		c.Meters[k] = v
	}
	for k, v := range s.Consumption {
		c.Consumption[k] = v
	}
	for k, v := range s.Settlements {
		c.Settlements[k] = v
	}
	for k, v := range s.Claims {
		c.Claims[k] = v
	}
	for k, v := range s.Disputes {
		c.Disputes[k] = v
	}
	for scope, versions := range s.Policies {
		vc := make(map[uint64]domain.PolicyVersion, len(versions))
		for v, pv := range versions {
			vc[v] = pv
		}
		c.Policies[scope] = vc
	}
	return c
}

func cloneBoolMap(m map[domain.Address]bool) map[domain.Address]bool {
	c := make(map[domain.Address]bool, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func cloneCapBoolMap(m map[domain.CapabilityID]bool) map[domain.CapabilityID]bool {
	c := make(map[domain.CapabilityID]bool, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// MinterAddresses returns every authorized minter address, sorted.
func (s *State) MinterAddresses() []domain.Address {
	addrs := make([]domain.Address, 0, len(s.AuthorizedMinters))
	for a := range s.AuthorizedMinters {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs
}

// RevokedCapabilityIDs returns every revoked capability id, sorted.
func (s *State) RevokedCapabilityIDs() []domain.CapabilityID {
	ids := make([]domain.CapabilityID, 0, len(s.Revoked))
	for id := range s.Revoked {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ConsumptionCapabilityIDs returns every capability id with recorded
// consumption, sorted.
func (s *State) ConsumptionCapabilityIDs() []domain.CapabilityID {
	ids := make([]domain.CapabilityID, 0, len(s.Consumption))
	for id := range s.Consumption {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// PolicyVersions returns every policy version across every scope, sorted
// by scope key then version, regardless of status.
func (s *State) PolicyVersions() []domain.PolicyVersion {
	var versions []domain.PolicyVersion
	for _, scopeVersions := range s.Policies {
		for _, pv := range scopeVersions {
			versions = append(versions, pv)
		}
	}
	sort.Slice(versions, func(i, j int) bool {
		if versions[i].ScopeKey != versions[j].ScopeKey {
			return versions[i].ScopeKey < versions[j].ScopeKey
		}
		return versions[i].Version < versions[j].Version
	})
	return versions
}

// AccountAddresses returns every address with an account, sorted.
func (s *State) AccountAddresses() []domain.Address {
	addrs := make([]domain.Address, 0, len(s.Accounts))
	for a := range s.Accounts {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs
}

// MeterKeys returns every meter key, sorted by owner then service id.
func (s *State) MeterKeys() []domain.MeterKey {
	keys := make([]domain.MeterKey, 0, len(s.Meters))
	for k := range s.Meters {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Owner != keys[j].Owner {
			return keys[i].Owner < keys[j].Owner
		}
		return keys[i].ServiceID < keys[j].ServiceID
	})
	return keys
}

// SettlementKeys returns every settlement key, sorted.
func (s *State) SettlementKeys() []domain.SettlementKey {
	keys := make([]domain.SettlementKey, 0, len(s.Settlements))
	for k := range s.Settlements {
		keys = append(keys, k)
	}
	sortSettlementKeys(keys)
	return keys
}

func sortSettlementKeys(keys []domain.SettlementKey) {
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Owner != b.Owner {
			return a.Owner < b.Owner
		}
		if a.ServiceID != b.ServiceID {
			return a.ServiceID < b.ServiceID
		}
		return a.WindowID < b.WindowID
	})
}

// ClaimIDs returns every claim id, sorted.
func (s *State) ClaimIDs() []string {
	ids := make([]string, 0, len(s.Claims))
	for id := range s.Claims {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ClaimsFor returns the claims against a settlement key, sorted by claim
// id for determinism.
func (s *State) ClaimsFor(key domain.SettlementKey) []domain.Claim {
	var claims []domain.Claim
	for _, id := range s.ClaimIDs() {
		c := s.Claims[id]
		if c.SettlementKey == key {
			claims = append(claims, c)
		}
	}
	return claims
}

// EffectivePolicy resolves the highest Published policy version visible at
// the given owner/service, walking scope precedence
// owner_service -> owner -> global. It returns false if no policy has ever
// been published in any of those scopes.
func (s *State) EffectivePolicy(owner domain.Address, service domain.ServiceID) (domain.PolicyVersion, bool) {
	for _, scope := range []string{
		domain.OwnerServiceScope(owner, service),
		domain.OwnerScope(owner),
		domain.GlobalScope,
	} {
		if pv, ok := s.latestPublished(scope); ok {
			return pv, true
		}
	}
	return domain.PolicyVersion{}, false
}

func (s *State) latestPublished(scope string) (domain.PolicyVersion, bool) {
	versions, ok := s.Policies[scope]
	if !ok {
		return domain.PolicyVersion{}, false
	}
	var best domain.PolicyVersion
	found := false
	for _, pv := range versions {
		if pv.Status != domain.PolicyPublished {
			continue
		}
		if !found || pv.Version > best.Version {
			best = pv
			found = true
		}
	}
	return best, found
}

// LatestVersion returns the highest version number ever published or
// superseded under a scope, and whether any version exists.
func (s *State) LatestVersion(scope string) (uint64, bool) {
	versions, ok := s.Policies[scope]
	if !ok || len(versions) == 0 {
		return 0, false
	}
	var max uint64
	for v := range versions {
		if v > max {
			max = v
		}
	}
	return max, true
}
