package domain

// Account holds a balance and a strictly monotone nonce. Accounts are
// created lazily on first credit and are never destroyed.
type Account struct {
	Balance uint64
	Nonce   uint64
}
