package errors

import (
	"context"
	"time"

	"onboarding-bot/internal/models"
)

// ErrorHandler turns worker errors into log entries and, for interactions,
// into a private notice so the interaction is never left unanswered.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Responder answers an interaction with a message only its author can see.
type Responder interface {
	RespondPrivate(ctx context.Context, interaction models.Interaction, content string) error
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleInteractionError logs err and answers the interaction privately.
func (h *ErrorHandler) HandleInteractionError(ctx context.Context, responder Responder, interaction models.Interaction, err error) {
	stdErr := h.normalizeError(err)
	h.log(stdErr, map[string]interface{}{
		"interactionId": interaction.ID,
		"memberId":      interaction.MemberID,
	})

	if respErr := responder.RespondPrivate(ctx, interaction, stdErr.Notice()); respErr != nil {
		h.logger.Error("failed to answer interaction", map[string]interface{}{
			"interactionId": interaction.ID,
			"error":         respErr.Error(),
		})
	}
}

// HandleBackgroundError logs an error that has no interaction to answer.
func (h *ErrorHandler) HandleBackgroundError(err error, fields map[string]interface{}) {
	h.log(h.normalizeError(err), fields)
}

// normalizeError ensures we always have a StandardError
func (h *ErrorHandler) normalizeError(err error) *StandardError {
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func (h *ErrorHandler) log(stdErr *StandardError, fields map[string]interface{}) {
	entry := map[string]interface{}{
		"errorCode":     string(stdErr.Code),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"errorCategory": GetErrorCategory(stdErr.Code),
	}
	for k, v := range fields {
		entry[k] = v
	}

	if IsValidationErrorCode(stdErr.Code) {
		h.logger.Warn("interaction rejected", entry)
		return
	}
	h.logger.Error("event failed", entry)
}
