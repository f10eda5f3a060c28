package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewClaimIDIsDeterministic(t *testing.T) {
	key := SettlementKey{Owner: "rOwner", ServiceID: "svc", WindowID: "w1"}
	id1 := NewClaimID(key, "rOperator", 500, 42)
	id2 := NewClaimID(key, "rOperator", 500, 42)
	require.Equal(t, id1, id2)
}

func TestNewClaimIDDiffersOnAnyInput(t *testing.T) {
	key := SettlementKey{Owner: "rOwner", ServiceID: "svc", WindowID: "w1"}
	base := NewClaimID(key, "rOperator", 500, 42)

	require.NotEqual(t, base, NewClaimID(key, "rOtherOperator", 500, 42))
	require.NotEqual(t, base, NewClaimID(key, "rOperator", 501, 42))
	require.NotEqual(t, base, NewClaimID(key, "rOperator", 500, 43))

	otherKey := SettlementKey{Owner: "rOwner", ServiceID: "svc", WindowID: "w2"}
	require.NotEqual(t, base, NewClaimID(otherKey, "rOperator", 500, 42))
}

func TestClaimKeyString(t *testing.T) {
	key := SettlementKey{Owner: "rOwner", ServiceID: "svc", WindowID: "w1"}
	require.Equal(t, "rOwner/svc/w1", ClaimKeyString(key))
}
