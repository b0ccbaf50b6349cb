// internal/workers/onboarding/welcome-member/handler.go
package welcomemember

import (
	"context"
	"fmt"
	"strings"

	"onboarding-bot/internal/common/discord"
	apperrors "onboarding-bot/internal/common/errors"
	"onboarding-bot/internal/common/logger"
	"onboarding-bot/internal/common/metrics"
	"onboarding-bot/internal/models"
	"onboarding-bot/internal/tracker"
)

const (
	TaskType = "welcome-member"
)

// Ledger is the welcomed-set the handler reads and marks.
type Ledger interface {
	HasWelcomed(memberID string) bool
	MarkWelcomed(ctx context.Context, memberID string) error
	Forget(ctx context.Context, memberID string) error
}

type Handler struct {
	config       *Config
	directory    *models.DepartmentDirectory
	ledger       Ledger
	platform     discord.Platform
	locks        *tracker.KeyedMutex
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, directory *models.DepartmentDirectory, ledger Ledger, platform discord.Platform, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		directory:    directory,
		ledger:       ledger,
		platform:     platform,
		locks:        tracker.NewKeyedMutex(),
		errorHandler: apperrors.NewErrorHandler(log),
		logger:       log,
	}
}

// Handle greets a newly joined member once.
func (h *Handler) Handle(ctx context.Context, event models.MemberJoined) error {
	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &Input{GuildID: event.GuildID, MemberID: event.MemberID})
	if err != nil {
		h.errorHandler.HandleBackgroundError(err, map[string]interface{}{
			"guildId":  event.GuildID,
			"memberId": event.MemberID,
		})
		return err
	}

	h.logger.Info("member join handled", map[string]interface{}{
		"memberId":  event.MemberID,
		"status":    string(output.Status),
		"persisted": output.Persisted,
	})
	return nil
}

// HandleLeave forgets a departed member when the re-welcome policy is on.
func (h *Handler) HandleLeave(ctx context.Context, event models.MemberLeft) error {
	if !h.config.ResetOnLeave {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	unlock := h.locks.Lock(event.MemberID)
	defer unlock()

	if err := h.ledger.Forget(ctx, event.MemberID); err != nil {
		h.errorHandler.HandleBackgroundError(err, map[string]interface{}{
			"memberId": event.MemberID,
		})
		return err
	}
	h.logger.Info("member forgotten after leaving", map[string]interface{}{
		"memberId": event.MemberID,
	})
	return nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	unlock := h.locks.Lock(input.MemberID)
	defer unlock()

	if h.ledger.HasWelcomed(input.MemberID) {
		return &Output{Status: StatusAlreadyWelcomed, Persisted: true}, nil
	}

	channelID, err := h.platform.SystemChannel(ctx, input.GuildID)
	if err != nil {
		return nil, apperrors.NewPlatformRequestFailedError("system channel", err)
	}
	if channelID == "" {
		h.logger.Warn("guild has no system channel, welcome skipped", map[string]interface{}{
			"guildId":  input.GuildID,
			"memberId": input.MemberID,
		})
		return &Output{Status: StatusNoSystemChannel}, nil
	}

	msg, err := h.platform.SendWelcome(ctx, channelID, h.prompt(input.MemberID))
	if err != nil {
		return nil, apperrors.NewPlatformRequestFailedError("send welcome", err)
	}
	metrics.MembersWelcomed.Inc()

	output := &Output{
		Status:    StatusWelcomed,
		ChannelID: channelID,
		MessageID: msg.ID,
		Persisted: true,
	}
	if err := h.ledger.MarkWelcomed(ctx, input.MemberID); err != nil {
		output.Persisted = false
		h.errorHandler.HandleBackgroundError(err, map[string]interface{}{
			"memberId": input.MemberID,
		})
	}
	return output, nil
}

func (h *Handler) prompt(memberID string) models.WelcomePrompt {
	departments := h.directory.All()
	buttons := make([]models.Button, 0, len(departments))
	for _, d := range departments {
		buttons = append(buttons, models.Button{
			CustomID: models.ChoiceActionID(d.Name),
			Label:    d.Name,
		})
	}

	description := h.config.Description
	if strings.Contains(description, "%s") {
		description = fmt.Sprintf(description, discord.UserMention(memberID))
	}

	return models.WelcomePrompt{
		Title:       h.config.Title,
		Description: description,
		Color:       h.config.Color,
		Buttons:     buttons,
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
