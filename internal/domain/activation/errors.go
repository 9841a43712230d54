package activation

import (
	"errors"
	"strings"
)

var (
	// ErrCancelled is returned when the user cancels a prompt. Nothing has been
	// submitted when it is returned.
	ErrCancelled = errors.New("cancelled by user")
	// ErrInputRequired is returned when a policy demands input that was not given.
	ErrInputRequired = errors.New("required input missing")
)

// Provider error codes with a known user-facing meaning.
const (
	CodeAcrsValidationFailed       = "RoleAssignmentRequestAcrsValidationFailed"
	CodeRoleAssignmentExists       = "RoleAssignmentExists"
	CodeEligibilityNotFound        = "RoleEligibilityScheduleRequestNotFound"
	CodeRoleDefinitionNotFound     = "RoleDefinitionDoesNotExist"
	CodeAuthorizationFailed        = "AuthorizationFailed"
	CodeInvalidAuthenticationToken = "InvalidAuthenticationToken"
	CodeRequestConflict            = "RequestConflict"
)

var friendlyMessages = map[string]string{
	CodeAcrsValidationFailed:       "The required authentication context was not satisfied. Sign in again with the requested authentication and retry.",
	CodeRoleAssignmentExists:       "This role is already active or a request is already pending.",
	CodeEligibilityNotFound:        "You are not eligible to activate this role.",
	CodeRoleDefinitionNotFound:     "This role no longer exists. Refresh the role list and try again.",
	CodeAuthorizationFailed:        "You do not have permission to perform this operation.",
	CodeInvalidAuthenticationToken: "Your session has expired. Sign in again.",
	CodeRequestConflict:            "Another request for this role is in progress. Wait a moment and try again.",
}

// CodedError is implemented by provider errors that carry a structured code.
type CodedError interface {
	error
	ProviderCode() string
	ProviderMessage() string
}

// ErrorCode extracts the provider code from err, or "" when there is none.
func ErrorCode(err error) string {
	var coded CodedError
	if errors.As(err, &coded) {
		return coded.ProviderCode()
	}
	return ""
}

// FriendlyMessage maps known provider error codes to a user-facing message.
// Unknown codes pass the provider's raw message through.
func FriendlyMessage(err error) string {
	if err == nil {
		return ""
	}
	var coded CodedError
	if errors.As(err, &coded) {
		if msg, ok := friendlyMessages[coded.ProviderCode()]; ok {
			return msg
		}
		if m := strings.TrimSpace(coded.ProviderMessage()); m != "" {
			return m
		}
	}
	return err.Error()
}
