package state

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/usageledger/ledgerd/internal/domain"
)

func TestNewSeedsMinters(t *testing.T) {
	s := New([]domain.Address{"rAlice", "rBob"})
	require.True(t, s.AuthorizedMinters["rAlice"])
	require.True(t, s.AuthorizedMinters["rBob"])
	require.False(t, s.AuthorizedMinters["rEve"])
	require.Empty(t, s.Accounts)
}

func TestCloneIsIndependent(t *testing.T) {
	s := New([]domain.Address{"rAlice"})
	s.Accounts["rAlice"] = domain.Account{Balance: 100}

	c := s.Clone()
	c.Accounts["rAlice"] = domain.Account{Balance: 999}
	c.AuthorizedMinters["rBob"] = true

	require.Equal(t, uint64(100), s.Accounts["rAlice"].Balance)
	require.False(t, s.AuthorizedMinters["rBob"])
}

func TestAccountAddressesSorted(t *testing.T) {
	s := New(nil)
	s.Accounts["rZed"] = domain.Account{}
	s.Accounts["rAlice"] = domain.Account{}
	s.Accounts["rMike"] = domain.Account{}
	require.Equal(t, []domain.Address{"rAlice", "rMike", "rZed"}, s.AccountAddresses())
}

func TestMeterKeysSortedByOwnerThenService(t *testing.T) {
	s := New(nil)
	s.Meters[domain.MeterKey{Owner: "rB", ServiceID: "svc"}] = domain.Meter{}
	s.Meters[domain.MeterKey{Owner: "rA", ServiceID: "svc2"}] = domain.Meter{}
	s.Meters[domain.MeterKey{Owner: "rA", ServiceID: "svc1"}] = domain.Meter{}

	keys := s.MeterKeys()
	require.Equal(t, domain.Address("rA"), keys[0].Owner)
	require.Equal(t, domain.ServiceID("svc1"), keys[0].ServiceID)
	require.Equal(t, domain.Address("rA"), keys[1].Owner)
	require.Equal(t, domain.ServiceID("svc2"), keys[1].ServiceID)
	require.Equal(t, domain.Address("rB"), keys[2].Owner)
}

func TestClaimsForFiltersBySettlementKey(t *testing.T) {
	s := New(nil)
	key := domain.SettlementKey{Owner: "rOwner", ServiceID: "svc", WindowID: "w1"}
	other := domain.SettlementKey{Owner: "rOwner", ServiceID: "svc", WindowID: "w2"}
	s.Claims["c1"] = domain.Claim{SettlementKey: key}
	s.Claims["c2"] = domain.Claim{SettlementKey: other}
	s.Claims["c3"] = domain.Claim{SettlementKey: key}

	claims := s.ClaimsFor(key)
	require.Len(t, claims, 2)
}

func TestEffectivePolicyPrecedence(t *testing.T) {
	s := New(nil)
	owner := domain.Address("rOwner")
	service := domain.ServiceID("svc")

	s.Policies[domain.GlobalScope] = map[uint64]domain.PolicyVersion{
		1: {ScopeKey: domain.GlobalScope, Version: 1, Status: domain.PolicyPublished, OperatorShareBps: 9000},
	}
	_, ok := s.EffectivePolicy(owner, service)
	require.True(t, ok)

	s.Policies[domain.OwnerScope(owner)] = map[uint64]domain.PolicyVersion{
		1: {ScopeKey: domain.OwnerScope(owner), Version: 1, Status: domain.PolicyPublished, OperatorShareBps: 8000},
	}
	pv, ok := s.EffectivePolicy(owner, service)
	require.True(t, ok)
	require.Equal(t, uint64(8000), pv.OperatorShareBps)

	s.Policies[domain.OwnerServiceScope(owner, service)] = map[uint64]domain.PolicyVersion{
		1: {ScopeKey: domain.OwnerServiceScope(owner, service), Version: 1, Status: domain.PolicyPublished, OperatorShareBps: 7000},
	}
	pv, ok = s.EffectivePolicy(owner, service)
	require.True(t, ok)
	require.Equal(t, uint64(7000), pv.OperatorShareBps)
}

func TestEffectivePolicySkipsSuperseded(t *testing.T) {
	s := New(nil)
	s.Policies[domain.GlobalScope] = map[uint64]domain.PolicyVersion{
		1: {Version: 1, Status: domain.PolicySuperseded},
		2: {Version: 2, Status: domain.PolicyPublished, OperatorShareBps: 5000},
	}
	pv, ok := s.EffectivePolicy("rOwner", "svc")
	require.True(t, ok)
	require.Equal(t, uint64(2), pv.Version)
}

func TestEffectivePolicyNoneExists(t *testing.T) {
	s := New(nil)
	_, ok := s.EffectivePolicy("rOwner", "svc")
	require.False(t, ok)
}

func TestLatestVersionIgnoresStatus(t *testing.T) {
	s := New(nil)
	s.Policies[domain.GlobalScope] = map[uint64]domain.PolicyVersion{
		1: {Version: 1, Status: domain.PolicySuperseded},
		3: {Version: 3, Status: domain.PolicyPublished},
	}
	v, ok := s.LatestVersion(domain.GlobalScope)
	require.True(t, ok)
	require.Equal(t, uint64(3), v)

	_, ok = s.LatestVersion("unknown-scope")
	require.False(t, ok)
}
