// Package errors provides the standardized error taxonomy for event workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Interaction validation errors. These end the interaction and are shown to
// the member privately.
const (
	ErrCodeUnknownDepartment         ErrorCode = "UNKNOWN_DEPARTMENT"
	ErrCodeChannelMissing            ErrorCode = "CHANNEL_MISSING"
	ErrCodeDuplicateRequest          ErrorCode = "DUPLICATE_REQUEST"
	ErrCodeAlreadyMember             ErrorCode = "ALREADY_MEMBER"
	ErrCodeNoLeaderConfigured        ErrorCode = "NO_LEADER_CONFIGURED"
	ErrCodeInsufficientBotPermission ErrorCode = "INSUFFICIENT_BOT_PERMISSION"
)

// Operational errors. Logged, never shown verbatim.
const (
	ErrCodePersistenceWriteFailed ErrorCode = "PERSISTENCE_WRITE_FAILED"
	ErrCodeDeliveryFailed         ErrorCode = "DELIVERY_FAILED"
	ErrCodePlatformRequestFailed  ErrorCode = "PLATFORM_REQUEST_FAILED"
	ErrCodeInternal               ErrorCode = "INTERNAL_ERROR"
)

const genericNotice = "❌ Une erreur est survenue, réessaie plus tard."

// StandardError represents a structured application error.
type StandardError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	UserNotice string                 `json:"userNotice,omitempty"`
	Retryable  bool                   `json:"retryable"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
	cause      error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// Notice returns the text shown to the member who triggered the failure.
func (e *StandardError) Notice() string {
	if e.UserNotice != "" {
		return e.UserNotice
	}
	return genericNotice
}

// ==========================
// 2. Error Constructors
// ==========================

func NewUnknownDepartmentError(department string) *StandardError {
	return &StandardError{
		Code:       ErrCodeUnknownDepartment,
		Message:    "Department is not configured",
		Details:    fmt.Sprintf("department: %s", department),
		UserNotice: "❌ Erreur : département non reconnu.",
		Timestamp:  time.Now().UTC(),
	}
}

func NewChannelMissingError(department, channelID string) *StandardError {
	return &StandardError{
		Code:       ErrCodeChannelMissing,
		Message:    "Department channel could not be found",
		Details:    fmt.Sprintf("department: %s, channelId: %s", department, channelID),
		UserNotice: "❌ Erreur : le canal du département est introuvable.",
		Timestamp:  time.Now().UTC(),
	}
}

func NewDuplicateRequestError(memberID, department string) *StandardError {
	return &StandardError{
		Code:       ErrCodeDuplicateRequest,
		Message:    "Request already pending",
		Details:    fmt.Sprintf("memberId: %s, department: %s", memberID, department),
		UserNotice: fmt.Sprintf("⏳ Tu as déjà fait une demande pour **%s**. Attends la validation du chef.", department),
		Timestamp:  time.Now().UTC(),
	}
}

func NewAlreadyMemberError(memberID, department string) *StandardError {
	return &StandardError{
		Code:       ErrCodeAlreadyMember,
		Message:    "Member already belongs to department",
		Details:    fmt.Sprintf("memberId: %s, department: %s", memberID, department),
		UserNotice: "❌ Tu fais déjà partie de ce département.",
		Timestamp:  time.Now().UTC(),
	}
}

func NewNoLeaderConfiguredError(department string) *StandardError {
	return &StandardError{
		Code:       ErrCodeNoLeaderConfigured,
		Message:    "No leader role configured for department",
		Details:    fmt.Sprintf("department: %s", department),
		UserNotice: "❌ Erreur : Aucun chef défini pour ce département.",
		Timestamp:  time.Now().UTC(),
	}
}

func NewInsufficientBotPermissionError(channelID string) *StandardError {
	return &StandardError{
		Code:       ErrCodeInsufficientBotPermission,
		Message:    "Bot cannot send messages in channel",
		Details:    fmt.Sprintf("channelId: %s", channelID),
		UserNotice: "❌ Je n'ai pas la permission d'envoyer des messages dans ce salon.",
		Timestamp:  time.Now().UTC(),
	}
}

func NewPersistenceWriteFailedError(store string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePersistenceWriteFailed,
		Message:   "Failed to persist welcome ledger",
		Details:   fmt.Sprintf("store: %s, error: %v", store, err),
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewDeliveryFailedError(memberID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDeliveryFailed,
		Message:   "Private notice could not be delivered",
		Details:   fmt.Sprintf("memberId: %s, error: %v", memberID, err),
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewPlatformRequestFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePlatformRequestFailed,
		Message:   fmt.Sprintf("Platform request '%s' failed", operation),
		Details:   err.Error(),
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// AsStandardError extracts a StandardError from err's chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := AsStandardError(err)
	return ok && stdErr.Code == code
}

// IsValidationErrorCode reports whether the code is one of the interaction
// validation failures that are surfaced to the member as-is.
func IsValidationErrorCode(code ErrorCode) bool {
	switch code {
	case ErrCodeUnknownDepartment,
		ErrCodeChannelMissing,
		ErrCodeDuplicateRequest,
		ErrCodeAlreadyMember,
		ErrCodeNoLeaderConfigured,
		ErrCodeInsufficientBotPermission:
		return true
	default:
		return false
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case IsValidationErrorCode(code):
		return "VALIDATION"
	case strings.Contains(codeStr, "PERSISTENCE"):
		return "STORAGE"
	case strings.Contains(codeStr, "DELIVERY"), strings.Contains(codeStr, "PLATFORM"):
		return "PLATFORM"
	default:
		return "OTHER"
	}
}
