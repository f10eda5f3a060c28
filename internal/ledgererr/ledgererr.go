// Package ledgererr defines the stable error taxonomy returned by the
// transaction engine, storage backend, and replay service. Every rejection
// a caller can observe carries one of these codes so a UI or audit tool can
// map it without parsing message text.
package ledgererr

import "fmt"

// Code is a stable, upper-case error identifier.
type Code string

const (
	InvalidTransaction               Code = "INVALID_TRANSACTION"
	SignatureVerificationFailed      Code = "SIGNATURE_VERIFICATION_FAILED"
	DelegatedConsumeRequiresV2       Code = "DELEGATED_CONSUME_REQUIRES_V2"
	DelegationProofMissing           Code = "DELEGATION_PROOF_MISSING"
	ValidAtMissing                   Code = "VALID_AT_MISSING"
	NonceAccountMissingOrInvalid     Code = "NONCE_ACCOUNT_MISSING_OR_INVALID"
	ReferenceTimeFuture              Code = "REFERENCE_TIME_FUTURE"
	ReferenceTimeTooOld              Code = "REFERENCE_TIME_TOO_OLD"
	DelegationExpiredOrNotYetValid   Code = "DELEGATION_EXPIRED_OR_NOT_YET_VALID"
	DelegationIssuerOwnerMismatch    Code = "DELEGATION_ISSUER_OWNER_MISMATCH"
	DelegationAudienceSignerMismatch Code = "DELEGATION_AUDIENCE_SIGNER_MISMATCH"
	DelegationScopeMismatch          Code = "DELEGATION_SCOPE_MISMATCH"
	DelegationRevoked                Code = "DELEGATION_REVOKED"
	CapabilityLimitExceeded          Code = "CAPABILITY_LIMIT_EXCEEDED"
	DuplicateSettlementWindow        Code = "DUPLICATE_SETTLEMENT_WINDOW"
	SettlementNotFound               Code = "SETTLEMENT_NOT_FOUND"
	SettlementNotProposed            Code = "SETTLEMENT_NOT_PROPOSED"
	SettlementNotFinalized           Code = "SETTLEMENT_NOT_FINALIZED"
	ClaimAmountExceedsPayable        Code = "CLAIM_AMOUNT_EXCEEDS_PAYABLE"
	ClaimNotPending                  Code = "CLAIM_NOT_PENDING"
	SettlementConservationViolation  Code = "SETTLEMENT_CONSERVATION_VIOLATION"
	DisputeAlreadyOpen               Code = "DISPUTE_ALREADY_OPEN"
	DisputeNotFound                  Code = "DISPUTE_NOT_FOUND"
	DisputeNotOpen                   Code = "DISPUTE_NOT_OPEN"
	DisputeWindowExpired             Code = "DISPUTE_WINDOW_EXPIRED"
	InvalidPolicyParameters          Code = "INVALID_POLICY_PARAMETERS"
	PolicyVersionConflict            Code = "POLICY_VERSION_CONFLICT"
	PolicyNotFound                   Code = "POLICY_NOT_FOUND"
	RetroactivePolicyForbidden       Code = "RETROACTIVE_POLICY_FORBIDDEN"
	InvalidEvidenceBundle            Code = "INVALID_EVIDENCE_BUNDLE"
	ReplayMismatch                   Code = "REPLAY_MISMATCH"
	UnsupportedSchemaVersion         Code = "UNSUPPORTED_SCHEMA_VERSION"
	ReplayProtocolMismatch           Code = "REPLAY_PROTOCOL_MISMATCH"

	// StorageIO and InvariantViolation are not part of the spec's validation
	// taxonomy but are needed to classify the two other error categories
	// called out in the error handling design: storage failures (retryable)
	// and invariant violations (fatal, process must stop).
	StorageIO          Code = "STORAGE_IO"
	InvariantViolation Code = "INVARIANT_VIOLATION"
)

// Error is the concrete error type returned by engine, storage and replay
// operations. It always carries a stable Code in addition to the usual
// wrapped-error chain so callers can branch on Code without string matching.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New constructs an Error with no wrapped cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf constructs an Error with a formatted message.
func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an Error that preserves a lower-level cause.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Is reports whether err is a *Error carrying the given code. It does not
// use errors.Is semantics for code comparison since Code is a plain value,
// not a sentinel error; it only unwraps to find the nearest *Error.
func Is(err error, code Code) bool {
	var target *Error
	for err != nil {
		if le, ok := err.(*Error); ok {
			target = le
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return target != nil && target.Code == code
}
