// internal/workers/departments/resolve-verdict/handler.go
package resolveverdict

import (
	"context"
	"fmt"
	"regexp"

	"onboarding-bot/internal/common/discord"
	apperrors "onboarding-bot/internal/common/errors"
	"onboarding-bot/internal/common/logger"
	"onboarding-bot/internal/common/metrics"
	"onboarding-bot/internal/models"
	"onboarding-bot/internal/tracker"
)

const (
	TaskType = "resolve-verdict"

	approvedFormat     = "✅ **%s** a été accepté dans **%s**."
	deniedFormat       = "❌ **%s** a été refusé dans **%s**."
	deniedDirectFormat = "❌ Ta demande pour rejoindre **%s** a été refusée."
)

var (
	userMentionPattern = regexp.MustCompile(`<@!?(\d+)>`)
	boldPattern        = regexp.MustCompile(`\*\*(.*?)\*\*`)
)

type Handler struct {
	config       *Config
	directory    *models.DepartmentDirectory
	tracker      *tracker.Tracker
	platform     discord.Platform
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, directory *models.DepartmentDirectory, tr *tracker.Tracker, platform discord.Platform, log logger.Logger) *Handler {
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

// Handle applies a leader's reaction to the request it targets. Reactions
// that do not resolve anything are dropped without a trace on the server.
func (h *Handler) Handle(ctx context.Context, event models.VerdictReceived) error {
	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &Input{
		GuildID:   event.GuildID,
		ChannelID: event.ChannelID,
		MessageID: event.MessageID,
		ReactorID: event.ReactorID,
		Emoji:     event.Emoji,
	})
	if err != nil {
		h.errorHandler.HandleBackgroundError(err, map[string]interface{}{
			"messageId": event.MessageID,
			"reactorId": event.ReactorID,
		})
		return err
	}

	if output.Verdict == VerdictIgnored {
		h.logger.Debug("reaction ignored", map[string]interface{}{
			"messageId": event.MessageID,
			"reactorId": event.ReactorID,
			"reason":    output.Reason,
		})
		return nil
	}

	h.logger.Info("request resolved", map[string]interface{}{
		"requestId":  output.Request.ID,
		"memberId":   output.Request.MemberID,
		"department": output.Request.Department,
		"verdict":    string(output.Verdict),
		"leaderId":   event.ReactorID,
	})
	return nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.Emoji != models.ApproveEmoji && input.Emoji != models.DenyEmoji {
		return ignored(ReasonOtherEmoji), nil
	}
	if input.ReactorID == h.platform.BotUserID() {
		return ignored(ReasonOwnReaction), nil
	}

	req, found, err := h.locate(ctx, input)
	if err != nil {
		return nil, err
	}
	if !found {
		return ignored(ReasonUnknownMessage), nil
	}

	dept, ok := h.directory.Lookup(req.Department)
	if !ok || dept.MemberRoleID == "" {
		return ignored(ReasonUnknownDept), nil
	}
	if dept.LeaderRoleID == "" {
		return ignored(ReasonNotLeader), nil
	}
	isLeader, err := h.platform.MemberHasRole(ctx, input.GuildID, input.ReactorID, dept.LeaderRoleID)
	if err != nil {
		return nil, apperrors.NewPlatformRequestFailedError("reactor roles", err)
	}
	if !isLeader {
		return ignored(ReasonNotLeader), nil
	}

	unlock := h.tracker.Lock(req.MemberID, dept.Name)
	defer unlock()

	if h.tracker.IsRetired(input.MessageID) {
		return ignored(ReasonAlreadySettled), nil
	}
	if current, open := h.tracker.Request(req.MemberID, dept.Name); open && current.NotificationMessageID != input.MessageID {
		return ignored(ReasonStaleNotification), nil
	}

	name, err := h.platform.MemberDisplayName(ctx, input.GuildID, req.MemberID)
	if err != nil {
		h.logger.Warn("display name unavailable, using mention", map[string]interface{}{
			"memberId": req.MemberID,
			"error":    err.Error(),
		})
		name = discord.UserMention(req.MemberID)
	}

	output := &Output{Request: req}
	switch input.Emoji {
	case models.ApproveEmoji:
		if err := h.platform.AddRole(ctx, input.GuildID, req.MemberID, dept.MemberRoleID); err != nil {
			return nil, apperrors.NewPlatformRequestFailedError("grant role", err)
		}
		h.reply(ctx, input, fmt.Sprintf(approvedFormat, name, dept.Name))
		output.Verdict = VerdictApproved

	case models.DenyEmoji:
		h.reply(ctx, input, fmt.Sprintf(deniedFormat, name, dept.Name))
		if err := h.platform.SendDirect(ctx, req.MemberID, fmt.Sprintf(deniedDirectFormat, dept.Name)); err != nil {
			h.errorHandler.HandleBackgroundError(apperrors.NewDeliveryFailedError(req.MemberID, err), map[string]interface{}{
				"department": dept.Name,
			})
		} else {
			output.Notified = true
		}
		output.Verdict = VerdictDenied
	}

	h.tracker.Close(req.MemberID, dept.Name)
	h.tracker.Retire(input.MessageID)
	metrics.RequestsResolved.WithLabelValues(dept.Name, string(output.Verdict)).Inc()
	return output, nil
}

// locate finds the request a notification belongs to, from the tracker or,
// for notifications the tracker does not know, from the message text.
func (h *Handler) locate(ctx context.Context, input *Input) (models.PendingRequest, bool, error) {
	if req, ok := h.tracker.ByMessage(input.MessageID); ok {
		return req, true, nil
	}
	if !h.config.TextFallback {
		return models.PendingRequest{}, false, nil
	}

	msg, err := h.platform.Message(ctx, input.ChannelID, input.MessageID)
	if err != nil {
		h.logger.Debug("reacted message unavailable", map[string]interface{}{
			"messageId": input.MessageID,
			"error":     err.Error(),
		})
		return models.PendingRequest{}, false, nil
	}
	if bot := h.platform.BotUserID(); bot != "" && msg.AuthorID != bot {
		return models.PendingRequest{}, false, nil
	}

	memberID, department, ok := parseNotification(msg)
	if !ok {
		return models.PendingRequest{}, false, nil
	}
	return models.PendingRequest{
		MemberID:              memberID,
		Department:            department,
		ChannelID:             msg.ChannelID,
		NotificationMessageID: msg.ID,
	}, true, nil
}

// parseNotification reads the first mentioned user and the first bold
// token of a notification message.
func parseNotification(msg *models.Message) (memberID, department string, ok bool) {
	if len(msg.Mentions) > 0 {
		memberID = msg.Mentions[0]
	} else if m := userMentionPattern.FindStringSubmatch(msg.Content); m != nil {
		memberID = m[1]
	}
	if memberID == "" {
		return "", "", false
	}

	m := boldPattern.FindStringSubmatch(msg.Content)
	if m == nil || m[1] == "" {
		return "", "", false
	}
	return memberID, m[1], true
}

func (h *Handler) reply(ctx context.Context, input *Input, content string) {
	if err := h.platform.Reply(ctx, input.ChannelID, input.MessageID, content); err != nil {
		h.errorHandler.HandleBackgroundError(apperrors.NewPlatformRequestFailedError("reply", err), map[string]interface{}{
			"messageId": input.MessageID,
		})
	}
}

func ignored(reason string) *Output {
	return &Output{Verdict: VerdictIgnored, Reason: reason}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
