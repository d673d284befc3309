// Package apperr defines the structured rejections returned by the game
// coordinator. Every rejection carries a machine-readable Code and a
// human-readable message that never reveals hidden game state.
package apperr

import "google.golang.org/grpc/codes"

// Code is a machine-readable rejection reason.
type Code string

const (
	CodeUnknown Code = "UNKNOWN"

	// Validation
	CodeValidation Code = "VALIDATION"

	// Permission
	CodePermission  Code = "PERMISSION"
	CodeNotHost     Code = "NOT_HOST"
	CodeNotYourTurn Code = "NOT_YOUR_TURN"

	// State conflicts
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeAlreadySeated Code = "ALREADY_SEATED"
	CodeRoleTaken     Code = "ROLE_TAKEN"
	CodeColorTaken    Code = "COLOR_TAKEN"

	// Capacity
	CodeCapacity Code = "CAPACITY"

	// Skills
	CodeQuotaExhausted   Code = "QUOTA_EXHAUSTED"
	CodeBlockedAttacked  Code = "BLOCKED_ATTACKED"
	CodeBlockedPermanent Code = "BLOCKED_PERMANENT"
	CodeBlockedNatural   Code = "BLOCKED_NATURAL"

	CodeNotFound Code = "NOT_FOUND"
	CodeInternal Code = "INTERNAL"
)

// GRPCCode maps rejection codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	case CodeValidation:
		return codes.InvalidArgument
	case CodePermission, CodeNotHost, CodeNotYourTurn:
		return codes.PermissionDenied
	case CodeStateConflict, CodeBlockedAttacked, CodeBlockedPermanent, CodeBlockedNatural:
		return codes.FailedPrecondition
	case CodeAlreadySeated, CodeRoleTaken, CodeColorTaken:
		return codes.AlreadyExists
	case CodeCapacity, CodeQuotaExhausted:
		return codes.ResourceExhausted
	case CodeNotFound:
		return codes.NotFound
	case CodeInternal:
		return codes.Internal
	default:
		return codes.Unknown
	}
}

// IsBlocked reports whether the code is one of the blocked sub-reasons.
func (c Code) IsBlocked() bool {
	return c == CodeBlockedAttacked || c == CodeBlockedPermanent || c == CodeBlockedNatural
}
