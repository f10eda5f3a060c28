package replay

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/usageledger/ledgerd/internal/domain"
)

// BundleCheck is the outcome of independently recomputing one evidence
// bundle's replay hash and summary.
type BundleCheck struct {
	Bundle  domain.EvidenceBundle
	Matches bool
	Err     error
}

// VerifyBundles recomputes each bundle's replay window concurrently and
// reports whether the recomputed hash and summary match what the bundle
// claims. This is an audit/reporting convenience on top of ReplaySlice
// (ResolveDispute itself calls ReplaySlice directly, one bundle at a
// time); an auditor re-checking a batch of settled disputes is the
// expected caller.
func (s *Service) VerifyBundles(ctx context.Context, bundles []domain.EvidenceBundle) ([]BundleCheck, error) {
	results := make([]BundleCheck, len(bundles))

	g, ctx := errgroup.WithContext(ctx)
	for i, bundle := range bundles {
		i, bundle := i, bundle
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := bundle.ValidateShape(); err != nil {
				results[i] = BundleCheck{Bundle: bundle, Err: fmt.Errorf("shape: %w", err)}
				return nil
			}
			hash, summary, err := s.ReplaySlice(bundle.SettlementKey, bundle.FromTxID, bundle.ToTxID)
			if err != nil {
				results[i] = BundleCheck{Bundle: bundle, Err: err}
				return nil
			}
			matches := hashEqual(hash, bundle.ReplayHash) && summary.Equal(bundle.ReplaySummary)
			results[i] = BundleCheck{Bundle: bundle, Matches: matches}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func hashEqual(h [32]byte, b []byte) bool {
	if len(b) != len(h) {
		return false
	}
	for i := range h {
		if h[i] != b[i] {
			return false
		}
	}
	return true
}
