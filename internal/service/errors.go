package service

import (
	"errors"
	"time"
)

var (
	// Verification
	ErrInvalidDomain            = errors.New("email is not an institutional address")
	ErrNoPendingVerification    = errors.New("no pending verification")
	ErrChallengeExpired         = errors.New("verification code expired")
	ErrRateLimited              = errors.New("too many failed attempts, try again later")
	ErrTooManyRequests          = errors.New("verification code requested too recently")
	ErrInstitutionalEmailTaken  = errors.New("institutional email already verified by another account")
	ErrAlreadyVerified          = errors.New("email already verified")
	ErrVerificationCodeRequired = errors.New("verification code must be all digits of the issued length")

	// Attendance
	ErrEventNotFound        = errors.New("event not found")
	ErrEventNotStarted      = errors.New("event has not started")
	ErrEventEnded           = errors.New("event has ended")
	ErrEventAlreadyStarted  = errors.New("event has already started")
	ErrInvalidEvent         = errors.New("invalid event")
	ErrNoAttendanceCode     = errors.New("no attendance code generated for event")
	ErrCodeGenerationFailed = errors.New("could not allocate a unique attendance code")
	ErrCodeConflict         = errors.New("code is already active for another event")
	ErrInvalidCode          = errors.New("invalid attendance code")
	ErrAlreadyAttended      = errors.New("attendance already recorded")

	// Identity
	ErrDuplicateIdentity      = errors.New("identity already exists")
	ErrInvalidProvider        = errors.New("unsupported sign-in provider")
	ErrInvalidEmail           = errors.New("invalid email")
	ErrInstitutionalIDTaken   = errors.New("institutional id already registered")
	ErrInvalidInstitutionalID = errors.New("invalid institutional id")
	ErrEmailNotVerified       = errors.New("institutional email not verified")
	ErrOnboardingAlreadyDone  = errors.New("onboarding already complete")
	ErrTokenNotFound          = errors.New("linking token not found")
	ErrTokenExpired           = errors.New("linking token expired")
	ErrTokenAlreadyUsed       = errors.New("linking token already used")
	ErrUserNotFound           = errors.New("user not found")
	ErrUserDisabled           = errors.New("user is disabled or banned")
	ErrLinkSameProvider       = errors.New("identity already uses this provider")
)

// Reason is a stable, enumerable failure code clients can branch on.
type Reason string

const (
	ReasonInvalidDomain           Reason = "INVALID_DOMAIN"
	ReasonNoPendingVerification   Reason = "NO_PENDING_VERIFICATION"
	ReasonChallengeExpired        Reason = "CHALLENGE_EXPIRED"
	ReasonRateLimited             Reason = "RATE_LIMITED"
	ReasonTooManyRequests         Reason = "TOO_MANY_REQUESTS"
	ReasonInstitutionalEmailTaken Reason = "INSTITUTIONAL_EMAIL_TAKEN"
	ReasonAlreadyVerified         Reason = "ALREADY_VERIFIED"
	ReasonInvalidVerificationCode Reason = "INVALID_VERIFICATION_CODE"
	ReasonAccountPurged           Reason = "ACCOUNT_PURGED"

	ReasonEventNotFound        Reason = "EVENT_NOT_FOUND"
	ReasonEventNotStarted      Reason = "EVENT_NOT_STARTED"
	ReasonEventEnded           Reason = "EVENT_ENDED"
	ReasonEventAlreadyStarted  Reason = "EVENT_ALREADY_STARTED"
	ReasonInvalidEvent         Reason = "INVALID_EVENT"
	ReasonNoAttendanceCode     Reason = "NO_ATTENDANCE_CODE"
	ReasonCodeGenerationFailed Reason = "CODE_GENERATION_FAILED"
	ReasonCodeConflict         Reason = "CODE_CONFLICT"
	ReasonInvalidCode          Reason = "INVALID_CODE"
	ReasonAlreadyAttended      Reason = "ALREADY_ATTENDED"

	ReasonDuplicateIdentity      Reason = "DUPLICATE_IDENTITY"
	ReasonInvalidProvider        Reason = "INVALID_PROVIDER"
	ReasonInvalidEmail           Reason = "INVALID_EMAIL"
	ReasonInstitutionalIDTaken   Reason = "INSTITUTIONAL_ID_TAKEN"
	ReasonInvalidInstitutionalID Reason = "INVALID_INSTITUTIONAL_ID"
	ReasonEmailNotVerified       Reason = "EMAIL_NOT_VERIFIED"
	ReasonOnboardingAlreadyDone  Reason = "ONBOARDING_ALREADY_COMPLETE"
	ReasonTokenNotFound          Reason = "TOKEN_NOT_FOUND"
	ReasonTokenExpired           Reason = "TOKEN_EXPIRED"
	ReasonTokenAlreadyUsed       Reason = "TOKEN_ALREADY_USED"
	ReasonUserNotFound           Reason = "USER_NOT_FOUND"
	ReasonUserDisabled           Reason = "USER_DISABLED"
	ReasonLinkSameProvider       Reason = "LINK_SAME_PROVIDER"

	ReasonInternal Reason = "INTERNAL"
)

var reasons = []struct {
	err    error
	reason Reason
}{
	{ErrInvalidDomain, ReasonInvalidDomain},
	{ErrNoPendingVerification, ReasonNoPendingVerification},
	{ErrChallengeExpired, ReasonChallengeExpired},
	{ErrRateLimited, ReasonRateLimited},
	{ErrTooManyRequests, ReasonTooManyRequests},
	{ErrInstitutionalEmailTaken, ReasonInstitutionalEmailTaken},
	{ErrAlreadyVerified, ReasonAlreadyVerified},
	{ErrVerificationCodeRequired, ReasonInvalidVerificationCode},
	{ErrEventNotFound, ReasonEventNotFound},
	{ErrEventNotStarted, ReasonEventNotStarted},
	{ErrEventEnded, ReasonEventEnded},
	{ErrEventAlreadyStarted, ReasonEventAlreadyStarted},
	{ErrInvalidEvent, ReasonInvalidEvent},
	{ErrNoAttendanceCode, ReasonNoAttendanceCode},
	{ErrCodeGenerationFailed, ReasonCodeGenerationFailed},
	{ErrCodeConflict, ReasonCodeConflict},
	{ErrInvalidCode, ReasonInvalidCode},
	{ErrAlreadyAttended, ReasonAlreadyAttended},
	{ErrDuplicateIdentity, ReasonDuplicateIdentity},
	{ErrInvalidProvider, ReasonInvalidProvider},
	{ErrInvalidEmail, ReasonInvalidEmail},
	{ErrInstitutionalIDTaken, ReasonInstitutionalIDTaken},
	{ErrInvalidInstitutionalID, ReasonInvalidInstitutionalID},
	{ErrEmailNotVerified, ReasonEmailNotVerified},
	{ErrOnboardingAlreadyDone, ReasonOnboardingAlreadyDone},
	{ErrTokenNotFound, ReasonTokenNotFound},
	{ErrTokenExpired, ReasonTokenExpired},
	{ErrTokenAlreadyUsed, ReasonTokenAlreadyUsed},
	{ErrUserNotFound, ReasonUserNotFound},
	{ErrUserDisabled, ReasonUserDisabled},
	{ErrLinkSameProvider, ReasonLinkSameProvider},
}

// ReasonOf maps an engine error to its reason code. Store failures and
// anything unrecognised map to ReasonInternal.
func ReasonOf(err error) Reason {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return ReasonInternal
}

// ThrottledError is ErrTooManyRequests with the time left until a new code
// may be requested.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string { return ErrTooManyRequests.Error() }

func (e *ThrottledError) Unwrap() error { return ErrTooManyRequests }
