package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPaidClaimsSumsOnlyPaid(t *testing.T) {
	claims := []Claim{
		{ClaimAmount: 100, Status: ClaimPaid},
		{ClaimAmount: 50, Status: ClaimPending},
		{ClaimAmount: 25, Status: ClaimRejected},
		{ClaimAmount: 200, Status: ClaimPaid},
	}
	require.Equal(t, uint64(300), PaidClaims(claims))
}

func TestPaidClaimsEmpty(t *testing.T) {
	require.Equal(t, uint64(0), PaidClaims(nil))
}
