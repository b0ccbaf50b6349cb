// internal/workers/departments/submit-choice/handler.go
package submitchoice

import (
	"context"
	"errors"
	"fmt"

	"onboarding-bot/internal/common/discord"
	apperrors "onboarding-bot/internal/common/errors"
	"onboarding-bot/internal/common/logger"
	"onboarding-bot/internal/common/metrics"
	"onboarding-bot/internal/models"
)

const (
	TaskType = "submit-choice"

	notificationFormat = "%s, %s a choisi **%s**. Veuillez confirmer avec %s ou refuser avec %s."
	pendingFormat      = "✅ Tu as choisi **%s**. En attente de validation du chef."
)

// Requests is the part of the request tracker a submit touches.
type Requests interface {
	Lock(memberID, department string) func()
	IsOpen(memberID, department string) bool
	TryOpen(memberID, department string) error
	Attach(memberID, department, channelID, messageID string) (models.PendingRequest, error)
	Close(memberID, department string)
}

type Handler struct {
	config       *Config
	directory    *models.DepartmentDirectory
	tracker      Requests
	platform     discord.Platform
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, directory *models.DepartmentDirectory, tr Requests, platform discord.Platform, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		directory:    directory,
		tracker:      tr,
		platform:     platform,
		errorHandler: apperrors.NewErrorHandler(log),
		logger:       log,
	}
}

// Handle processes a department button press. The interaction is always
// answered privately, with the pending notice or with the failure notice.
func (h *Handler) Handle(ctx context.Context, event models.ChoiceSubmitted) error {
	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	h.logger.Info("processing choice", map[string]interface{}{
		"interactionId": event.Interaction.ID,
		"memberId":      event.Interaction.MemberID,
		"actionId":      event.ActionID,
	})

	output, err := h.execute(ctx, &Input{Interaction: event.Interaction, ActionID: event.ActionID})
	if err != nil {
		h.errorHandler.HandleInteractionError(ctx, h.platform, event.Interaction, err)
		return err
	}

	notice := fmt.Sprintf(pendingFormat, output.Request.Department)
	if err := h.platform.RespondPrivate(ctx, event.Interaction, notice); err != nil {
		h.logger.Error("failed to acknowledge choice", map[string]interface{}{
			"interactionId": event.Interaction.ID,
			"error":         err.Error(),
		})
	}
	return nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	memberID := input.Interaction.MemberID
	guildID := input.Interaction.GuildID

	name, _ := models.DepartmentFromAction(input.ActionID)
	dept, ok := h.directory.Lookup(name)
	if !ok || !dept.AcceptsRequests() {
		return nil, apperrors.NewUnknownDepartmentError(name)
	}

	if _, err := h.platform.Channel(ctx, dept.ChannelID); err != nil {
		if errors.Is(err, discord.ErrNotFound) {
			return nil, apperrors.NewChannelMissingError(dept.Name, dept.ChannelID)
		}
		return nil, apperrors.NewPlatformRequestFailedError("fetch channel", err)
	}

	unlock := h.tracker.Lock(memberID, dept.Name)
	defer unlock()

	if h.tracker.IsOpen(memberID, dept.Name) {
		return nil, apperrors.NewDuplicateRequestError(memberID, dept.Name)
	}

	canView, err := h.platform.MemberCanView(ctx, guildID, dept.ChannelID, memberID)
	if err != nil {
		return nil, apperrors.NewPlatformRequestFailedError("member permissions", err)
	}
	if canView {
		return nil, apperrors.NewAlreadyMemberError(memberID, dept.Name)
	}

	if dept.LeaderRoleID == "" {
		return nil, apperrors.NewNoLeaderConfiguredError(dept.Name)
	}

	canSend, err := h.platform.BotCanSend(ctx, guildID, dept.ChannelID)
	if err != nil {
		return nil, apperrors.NewPlatformRequestFailedError("bot permissions", err)
	}
	if !canSend {
		return nil, apperrors.NewInsufficientBotPermissionError(dept.ChannelID)
	}

	content := fmt.Sprintf(notificationFormat,
		discord.RoleMention(dept.LeaderRoleID),
		discord.UserMention(memberID),
		dept.Name,
		models.ApproveEmoji,
		models.DenyEmoji,
	)
	msg, err := h.platform.SendMessage(ctx, dept.ChannelID, content)
	if err != nil {
		return nil, apperrors.NewPlatformRequestFailedError("post notification", err)
	}

	for _, emoji := range []string{models.ApproveEmoji, models.DenyEmoji} {
		if err := h.platform.AddReaction(ctx, dept.ChannelID, msg.ID, emoji); err != nil {
			h.discardNotification(ctx, dept.ChannelID, msg.ID)
			return nil, apperrors.NewPlatformRequestFailedError("add reaction", err)
		}
	}

	if err := h.tracker.TryOpen(memberID, dept.Name); err != nil {
		h.discardNotification(ctx, dept.ChannelID, msg.ID)
		return nil, apperrors.NewDuplicateRequestError(memberID, dept.Name)
	}
	req, err := h.tracker.Attach(memberID, dept.Name, dept.ChannelID, msg.ID)
	if err != nil {
		h.tracker.Close(memberID, dept.Name)
		h.discardNotification(ctx, dept.ChannelID, msg.ID)
		return nil, fmt.Errorf("attach notification: %w", err)
	}
	metrics.RequestsOpened.WithLabelValues(dept.Name).Inc()

	h.logger.Info("request opened", map[string]interface{}{
		"requestId":  req.ID,
		"memberId":   memberID,
		"department": dept.Name,
		"messageId":  msg.ID,
	})
	return &Output{Request: req}, nil
}

// discardNotification deletes a notification that will never be tracked.
func (h *Handler) discardNotification(ctx context.Context, channelID, messageID string) {
	if err := h.platform.DeleteMessage(ctx, channelID, messageID); err != nil {
		h.logger.Warn("failed to delete orphaned notification", map[string]interface{}{
			"channelId": channelID,
			"messageId": messageID,
			"error":     err.Error(),
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
