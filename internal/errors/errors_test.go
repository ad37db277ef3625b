package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "error without cause",
			err: &AppError{
				Code:    ErrCodeToken,
				Message: "token expired",
			},
			want: "token expired",
		},
		{
			name: "error with cause",
			err: &AppError{
				Code:    ErrCodeNetwork,
				Message: "enhance token",
				Cause:   errors.New("connection refused"),
			},
			want: "enhance token: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(cause, ErrCodeNetwork, "wrapped error")

	if unwrapped := err.Unwrap(); !errors.Is(unwrapped, cause) {
		t.Errorf("AppError.Unwrap() = %v, want %v", unwrapped, cause)
	}
}

func TestConfiguration(t *testing.T) {
	err := Configuration("IDP_URL", "IDP URL is required")
	if err.Code != ErrCodeConfiguration {
		t.Errorf("Configuration().Code = %v, want %v", err.Code, ErrCodeConfiguration)
	}
	if err.Field != "IDP_URL" {
		t.Errorf("Configuration().Field = %v, want IDP_URL", err.Field)
	}
	if !IsConfiguration(err) {
		t.Error("IsConfiguration() = false, want true")
	}
}

func TestCodeHelpers(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{name: "token", err: Tokenf("bad %s", "token"), check: IsToken},
		{name: "network", err: Networkf("HTTP %d", 502), check: IsNetwork},
		{name: "authentication", err: Authentication("Invalid username or password."), check: IsAuthentication},
		{name: "not found", err: NotFound("missing"), check: IsNotFound},
		{name: "conflict", err: Conflict("exists"), check: IsConflict},
		{name: "validation", err: ValidationField("email", "required"), check: IsValidation},
		{name: "not implemented", err: NotImplemented("nope"), check: IsNotImplemented},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.check(tt.err) {
				t.Errorf("check(%v) = false, want true", tt.err)
			}
			wrapped := fmt.Errorf("outer: %w", tt.err)
			if !tt.check(wrapped) {
				t.Errorf("check(wrapped %v) = false, want true", wrapped)
			}
			if IsConfiguration(tt.err) {
				t.Errorf("IsConfiguration(%v) = true, want false", tt.err)
			}
		})
	}
}

func TestWrap_Nil(t *testing.T) {
	if err := Wrap(nil, ErrCodeInternal, "x"); err != nil {
		t.Errorf("Wrap(nil) = %v, want nil", err)
	}
	if err := Wrapf(nil, ErrCodeInternal, "x %d", 1); err != nil {
		t.Errorf("Wrapf(nil) = %v, want nil", err)
	}
}

func TestGetCodeAndField(t *testing.T) {
	err := fmt.Errorf("ctx: %w", Configuration("SUPPORT_EMAIL", "invalid"))
	if got := GetCode(err); got != ErrCodeConfiguration {
		t.Errorf("GetCode() = %v, want %v", got, ErrCodeConfiguration)
	}
	if got := GetField(err); got != "SUPPORT_EMAIL" {
		t.Errorf("GetField() = %v, want SUPPORT_EMAIL", got)
	}
	if got := GetCode(errors.New("plain")); got != "" {
		t.Errorf("GetCode(plain) = %v, want empty", got)
	}
}

func TestUserMessage(t *testing.T) {
	err := Wrap(errors.New("dial tcp: refused"), ErrCodeNetwork, "Could not reach identity provider")
	if got := UserMessage(err); got != "Could not reach identity provider" {
		t.Errorf("UserMessage() = %q", got)
	}
	if got := UserMessage(errors.New("plain")); got != "plain" {
		t.Errorf("UserMessage(plain) = %q", got)
	}
	if got := UserMessage(nil); got != "" {
		t.Errorf("UserMessage(nil) = %q", got)
	}
}
