package outbound

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/activation"
)

func TestProviderError_Is(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    *ProviderError
		target error
		want   bool
	}{
		{"404 is not found", &ProviderError{StatusCode: 404}, ErrNotFound, true},
		{"403 is access denied", &ProviderError{StatusCode: 403}, ErrAccessDenied, true},
		{"denied code", &ProviderError{StatusCode: 400, Code: "Authorization_RequestDenied"}, ErrAccessDenied, true},
		{"429 is throttled", &ProviderError{StatusCode: 429}, ErrThrottled, true},
		{"400 is none", &ProviderError{StatusCode: 400, Code: "RoleAssignmentExists"}, ErrNotFound, false},
	}
	for _, tt := range tests {
		wrapped := fmt.Errorf("call: %w", tt.err)
		if got := errors.Is(wrapped, tt.target); got != tt.want {
			t.Errorf("%s: errors.Is() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestIsEmptyResult(t *testing.T) {
	t.Parallel()

	if !IsEmptyResult(&ProviderError{StatusCode: 404}) || !IsEmptyResult(&ProviderError{StatusCode: 403}) {
		t.Error("IsEmptyResult() = false for not found / access denied")
	}
	if IsEmptyResult(&ProviderError{StatusCode: 401}) || IsEmptyResult(errors.New("timeout")) {
		t.Error("IsEmptyResult() = true for a fatal error")
	}
}

func TestProviderError_FriendlyMessage(t *testing.T) {
	t.Parallel()

	err := &ProviderError{StatusCode: 400, Code: activation.CodeRoleAssignmentExists, Message: "The Role assignment already exists."}
	if got := activation.FriendlyMessage(err); got != "This role is already active or a request is already pending." {
		t.Errorf("FriendlyMessage() = %q", got)
	}
	raw := &ProviderError{StatusCode: 400, Code: "NewCode", Message: "raw text"}
	if got := activation.FriendlyMessage(raw); got != "raw text" {
		t.Errorf("FriendlyMessage(unknown) = %q, want raw text", got)
	}
}
