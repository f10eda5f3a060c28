package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReplaySummaryEqual(t *testing.T) {
	a := ReplaySummary{FromTxID: 0, ToTxID: 10, TxCount: 10, GrossSpent: 100, OperatorShare: 80, ProtocolFee: 15, ReserveLocked: 5}
	b := a
	require.True(t, a.Equal(b))

	b.GrossSpent++
	require.False(t, a.Equal(b))
}

func validBundle() EvidenceBundle {
	return EvidenceBundle{
		SettlementKey:         SettlementKey{Owner: "rOwner", ServiceID: "svc", WindowID: "w1"},
		FromTxID:              0,
		ToTxID:                5,
		ReplayHash:            []byte{1, 2, 3},
		ReplaySummary:         ReplaySummary{FromTxID: 0, ToTxID: 5, TxCount: 5},
		SchemaVersion:         SupportedSchemaVersion,
		ReplayProtocolVersion: SupportedReplayProtocolVersion,
	}
}

func TestEvidenceBundleValidateShape(t *testing.T) {
	require.NoError(t, validBundle().ValidateShape())

	badRange := validBundle()
	badRange.ToTxID = badRange.FromTxID
	require.Error(t, badRange.ValidateShape())

	badCount := validBundle()
	badCount.ReplaySummary.TxCount = 999
	require.Error(t, badCount.ValidateShape())

	noHash := validBundle()
	noHash.ReplayHash = nil
	require.Error(t, noHash.ValidateShape())

	badSchema := validBundle()
	badSchema.SchemaVersion = 999
	require.Error(t, badSchema.ValidateShape())

	badProtocol := validBundle()
	badProtocol.ReplayProtocolVersion = 999
	require.Error(t, badProtocol.ValidateShape())
}
