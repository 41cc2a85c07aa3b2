package identity

import (
	"errors"
	"fmt"
)

// Code is a provider-neutral authentication failure reason.
type Code string

const (
	CodeUserNotFound        Code = "auth/user-not-found"
	CodeWrongPassword       Code = "auth/wrong-password"
	CodeInvalidCredential   Code = "auth/invalid-credential"
	CodeInvalidEmail        Code = "auth/invalid-email"
	CodeUserDisabled        Code = "auth/user-disabled"
	CodeTooManyRequests     Code = "auth/too-many-requests"
	CodeEmailAlreadyInUse   Code = "auth/email-already-in-use"
	CodeWeakPassword        Code = "auth/weak-password"
	CodeOperationNotAllowed Code = "auth/operation-not-allowed"
	CodeNetwork             Code = "auth/network-request-failed"
	CodeMisconfigured       Code = "auth/misconfigured"
	CodeSignOutNetwork      Code = "auth/sign-out-network"
	CodeSignOutPermission   Code = "auth/sign-out-permission"
	CodeSignOutFailed       Code = "auth/sign-out-failed"
	CodeUnknown             Code = "auth/unknown"
)

// DefaultMessage is shown for any code without a specific sentence.
const DefaultMessage = "An error occurred. Please try again."

var messages = map[Code]string{
	CodeUserNotFound:        "No account found with this email address.",
	CodeWrongPassword:       "Incorrect password.",
	CodeInvalidCredential:   "Invalid email or password.",
	CodeInvalidEmail:        "Invalid email address.",
	CodeUserDisabled:        "This account has been disabled.",
	CodeTooManyRequests:     "Too many failed attempts. Please try again later.",
	CodeEmailAlreadyInUse:   "An account with this email already exists.",
	CodeWeakPassword:        "Password is too weak. Please choose a stronger password.",
	CodeOperationNotAllowed: "Email/password accounts are not enabled.",
	CodeMisconfigured:       "Sign-in is not configured. Please contact support.",
	CodeSignOutNetwork:      "Network error during logout. You have been logged out locally.",
	CodeSignOutPermission:   "Permission error during logout. You have been logged out locally.",
	CodeSignOutFailed:       "Logout failed. You have been logged out locally.",
}

// Message returns the user-facing sentence for code.
func Message(code Code) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return DefaultMessage
}

// AuthError is returned by every failing Adapter operation.
type AuthError struct {
	Err  error
	Op   string
	Code Code
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Message returns the user-facing sentence for the error's code.
func (e *AuthError) Message() string { return Message(e.Code) }

// LocallySignedOut reports whether the identity was cleared despite the error.
func (e *AuthError) LocallySignedOut() bool {
	switch e.Code {
	case CodeSignOutNetwork, CodeSignOutPermission, CodeSignOutFailed:
		return true
	}
	return false
}

// CodeOf returns the code of the first AuthError in err's chain, or CodeUnknown.
func CodeOf(err error) Code {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknown
}

// ErrMisconfigured is wrapped when a provider lacks required credentials.
var ErrMisconfigured = errors.New("identity provider is not configured")

// ErrNetwork and ErrPermission let providers report sign-out failures by category.
var (
	ErrNetwork    = errors.New("network error")
	ErrPermission = errors.New("permission error")
)
