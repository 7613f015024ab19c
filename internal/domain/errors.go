package domain

import "errors"

// Sentinel errors, grouped by the abstract kind they realize. Handlers map
// these to HTTP status via Classify rather than switching on each one.
var (
	// ValidationError
	ErrInvalidInput          = errors.New("invalid input")
	ErrNameRequired          = errors.New("name is required")
	ErrNameTooLong           = errors.New("name exceeds maximum length")
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrNegativeAmount        = errors.New("amount must not be negative")
	ErrPayerEqualsPayee      = errors.New("payer and payee must differ")
	ErrMemberNotInGroup      = errors.New("member is not an active member of the group")
	ErrSplitSumMismatch      = errors.New("split amounts do not sum to the expected total")
	ErrPayerSumMismatch      = errors.New("payer amounts do not sum to the expense subtotal")
	ErrInvalidShareMode      = errors.New("invalid share mode")
	ErrInvalidWeight         = errors.New("weight must be positive")
	ErrExactExceedsItemTotal = errors.New("exact split amounts exceed item total")
	ErrSoleOwnerCannotLeave  = errors.New("sole owner must transfer ownership before leaving")
	ErrInvalidFrequency      = errors.New("invalid recurring frequency")
	ErrInvalidJoinCode       = errors.New("invalid join code")

	// AuthorizationError
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotSettlementPayee = errors.New("only the payee may perform this action")
	ErrNotSettlementPayer = errors.New("only the payer may perform this action")
	ErrNotGroupOwner      = errors.New("only the group owner may perform this action")
	ErrInsufficientRole   = errors.New("actor's role does not permit this action")
	ErrCannotRemoveOwner  = errors.New("an admin cannot remove the group owner")

	// NotFound
	ErrNotFound              = errors.New("resource not found")
	ErrUserNotFound          = errors.New("user not found")
	ErrGroupNotFound         = errors.New("group not found")
	ErrMembershipNotFound    = errors.New("membership not found")
	ErrExpenseNotFound       = errors.New("expense not found")
	ErrSettlementNotFound    = errors.New("settlement not found")
	ErrRecurringRuleNotFound = errors.New("recurring rule not found")
	ErrTokenNotFound         = errors.New("token not found")
	ErrAPITokenNotFound      = errors.New("api token not found")
	ErrAttachmentNotFound    = errors.New("attachment not found")

	// Conflict
	ErrAlreadyExists       = errors.New("resource already exists")
	ErrAlreadyMember       = errors.New("user is already an active member of this group")
	ErrInvalidTransition   = errors.New("settlement is not in a state that permits this transition")
	ErrJoinCodeCollision   = errors.New("could not allocate a unique join code")
	ErrDuplicateOccurrence = errors.New("occurrence already generated for this rule")
	ErrTooManyAPITokens    = errors.New("maximum number of active api tokens reached")

	// CurrencyMismatch
	ErrCurrencyMismatch = errors.New("currency mismatch")

	// TransientError
	ErrTransient = errors.New("transient dependency failure, retry")

	// Internal
	ErrInternal = errors.New("internal error: invariant violated")
)

// Validation constants shared across entities.
const (
	MaxGroupNameLength   = 255
	MaxExpenseNameLength = 255
	MaxNotesLength       = 1000
)

// ErrorKind is the abstract classification from which HTTP status and
// logging policy are derived. It exists so call sites don't re-implement
// the error->status mapping per endpoint.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindAuthorization
	KindNotFound
	KindConflict
	KindCurrencyMismatch
	KindTransient
	KindInternal
)

var kindByError = map[error]ErrorKind{
	ErrInvalidInput:          KindValidation,
	ErrNameRequired:          KindValidation,
	ErrNameTooLong:           KindValidation,
	ErrInvalidAmount:         KindValidation,
	ErrNegativeAmount:        KindValidation,
	ErrPayerEqualsPayee:      KindValidation,
	ErrMemberNotInGroup:      KindValidation,
	ErrSplitSumMismatch:      KindValidation,
	ErrPayerSumMismatch:      KindValidation,
	ErrInvalidShareMode:      KindValidation,
	ErrInvalidWeight:         KindValidation,
	ErrExactExceedsItemTotal: KindValidation,
	ErrSoleOwnerCannotLeave:  KindValidation,
	ErrInvalidFrequency:      KindValidation,
	ErrInvalidJoinCode:       KindValidation,

	ErrForbidden:          KindAuthorization,
	ErrUnauthorized:       KindAuthorization,
	ErrNotSettlementPayee: KindAuthorization,
	ErrNotSettlementPayer: KindAuthorization,
	ErrNotGroupOwner:      KindAuthorization,
	ErrInsufficientRole:   KindAuthorization,
	ErrCannotRemoveOwner:  KindAuthorization,

	ErrNotFound:              KindNotFound,
	ErrUserNotFound:          KindNotFound,
	ErrGroupNotFound:         KindNotFound,
	ErrMembershipNotFound:    KindNotFound,
	ErrExpenseNotFound:       KindNotFound,
	ErrSettlementNotFound:    KindNotFound,
	ErrRecurringRuleNotFound: KindNotFound,
	ErrTokenNotFound:         KindNotFound,
	ErrAPITokenNotFound:      KindNotFound,
	ErrAttachmentNotFound:    KindNotFound,

	ErrAlreadyExists:       KindConflict,
	ErrAlreadyMember:       KindConflict,
	ErrInvalidTransition:   KindConflict,
	ErrJoinCodeCollision:   KindConflict,
	ErrDuplicateOccurrence: KindConflict,
	ErrTooManyAPITokens:    KindConflict,

	ErrCurrencyMismatch: KindCurrencyMismatch,

	ErrTransient: KindTransient,

	ErrInternal: KindInternal,
}

// Classify maps a (possibly wrapped) domain error to its abstract kind,
// walking the error chain with errors.Is. Unrecognized errors classify as
// KindInternal so they are logged with context rather than silently
// surfaced as a generic 400.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	for sentinel, kind := range kindByError {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindInternal
}
