package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrTokenExpired  ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrAdminAccessOnly   ErrCode = "ADMIN_ACCESS_ONLY"
	ErrDeviceConflict    ErrCode = "DEVICE_CONFLICT"

	// ─── Throttling ────────────────────────────────────────────────────
	ErrTooManyRequests ErrCode = "TOO_MANY_REQUESTS"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Exam access ───────────────────────────────────────────────────
	ErrExamNotAssigned  ErrCode = "EXAM_NOT_ASSIGNED"
	ErrLockdownRequired ErrCode = "LOCKDOWN_REQUIRED"
	ErrAttemptFinalized ErrCode = "ATTEMPT_FINALIZED"
	ErrAttemptNotFound  ErrCode = "ATTEMPT_NOT_FOUND"
	ErrInvalidQuestions ErrCode = "INVALID_QUESTIONS"
	ErrFinalizeNotSaved ErrCode = "FINALIZE_NOT_SAVED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."

	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrStudentAccessOnly:
		return "This resource is restricted to students."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."
	case ErrDeviceConflict:
		return "This exam is already open on another device. Close it there first."

	case ErrTooManyRequests:
		return "Too many requests. Slow down and try again."

	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."

	case ErrExamNotAssigned:
		return "This secure exam is not assigned to your account."
	case ErrLockdownRequired:
		return "Access denied. Open this exam in the required lockdown browser."
	case ErrAttemptFinalized:
		return "This attempt has already been submitted."
	case ErrAttemptNotFound:
		return "No attempt exists for this exam."
	case ErrInvalidQuestions:
		return "Every question needs at least one option and a correct option index inside the option range."
	case ErrFinalizeNotSaved:
		return "Your submission could not be saved. Do not close this page and try again."

	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
