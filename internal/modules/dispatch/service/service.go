package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	automationDomain "github.com/reshetovitsme/insta-autoreply/internal/modules/automation/domain"
	conversationDomain "github.com/reshetovitsme/insta-autoreply/internal/modules/conversation/domain"
	"github.com/reshetovitsme/insta-autoreply/internal/modules/dispatch/domain"
	eventDomain "github.com/reshetovitsme/insta-autoreply/internal/modules/event/domain"
	responseDomain "github.com/reshetovitsme/insta-autoreply/internal/modules/response/domain"
	appErrors "github.com/reshetovitsme/insta-autoreply/internal/shared/errors"
	"github.com/reshetovitsme/insta-autoreply/internal/shared/metrics"
)

// Matcher finds the automation for an event and keeps its reply counters
type Matcher interface {
	Match(ctx context.Context, platformAccountID, text, postID string) (*automationDomain.Match, error)
	RecordReply(ctx context.Context, automationID string, channel eventDomain.Channel) error
}

// Selector produces the reply text for a matched automation
type Selector interface {
	Resolve(ctx context.Context, in responseDomain.Input) (*responseDomain.Resolution, error)
}

// Transcript stores answered exchanges
type Transcript interface {
	AppendExchange(ctx context.Context, exchange conversationDomain.Exchange) error
	AppendReply(ctx context.Context, exchange conversationDomain.Exchange) error
}

// Ledger guards comments against being answered twice
type Ledger interface {
	Processed(ctx context.Context, automationID, commentID string) (bool, error)
	Guard(ctx context.Context, automationID, commentID string, fn func(ctx context.Context) error) error
}

// Sender delivers replies to the platform
type Sender interface {
	SendDirectMessage(ctx context.Context, platformAccountID, recipientID, text, token string) error
	SendCommentReply(ctx context.Context, platformAccountID, commentID, text, token string) error
}

// Alerter is notified about events that ended in ERROR
type Alerter interface {
	Alert(ctx context.Context, event eventDomain.Event, outcome domain.Outcome)
}

// Service routes inbound events through matching, reply selection,
// delivery and bookkeeping
type Service struct {
	matcher    Matcher
	selector   Selector
	transcript Transcript
	ledger     Ledger
	sender     Sender
	alerter    Alerter
	validate   *validator.Validate
}

// New creates a new event dispatcher
func New(matcher Matcher, selector Selector, transcript Transcript, ledger Ledger, sender Sender) *Service {
	return &Service{
		matcher:    matcher,
		selector:   selector,
		transcript: transcript,
		ledger:     ledger,
		sender:     sender,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

// SetAlerter sets the receiver of failure notifications
func (s *Service) SetAlerter(a Alerter) {
	s.alerter = a
}

// Dispatch handles one normalized event and reports what happened to it.
func (s *Service) Dispatch(ctx context.Context, ev eventDomain.Event) domain.Outcome {
	outcome := s.dispatch(ctx, ev)

	s.observe(ctx, ev, outcome)
	if outcome.Escalation != nil {
		s.observe(ctx, ev, *outcome.Escalation)
	}
	return outcome
}

func (s *Service) dispatch(ctx context.Context, ev eventDomain.Event) domain.Outcome {
	if err := s.validate.Struct(ev); err != nil {
		return domain.Failed(ev.Channel, domain.ReasonMalformedInput, err)
	}
	if strings.TrimSpace(ev.Text) == "" {
		return domain.Ignored(ev.Channel, domain.ReasonEmptyText)
	}
	if ev.IsEcho {
		return domain.Ignored(ev.Channel, domain.ReasonEcho)
	}

	postID := ""
	if ev.Channel == eventDomain.ChannelComment {
		postID = ev.PostID
	}

	match, err := s.matcher.Match(ctx, ev.PlatformAccountID, ev.Text, postID)
	if err != nil {
		if errors.Is(err, appErrors.ErrUnknownAccount) {
			return domain.Ignored(ev.Channel, domain.ReasonUnknownAccount)
		}
		return domain.Failed(ev.Channel, domain.ReasonPersistenceFailure, err)
	}
	if match == nil {
		return domain.Ignored(ev.Channel, domain.ReasonNoMatch)
	}

	automation := &match.Automation
	if !automation.HasTrigger(ev.Channel) {
		return s.ignored(automation, ev.Channel, domain.ReasonNoTrigger)
	}
	if automation.Listener == nil {
		return s.ignored(automation, ev.Channel, domain.ReasonNoListener)
	}

	if ev.Channel == eventDomain.ChannelComment {
		return s.comment(ctx, match, ev)
	}
	return s.directMessage(ctx, match, ev.PlatformAccountID, ev.SenderID, ev.ReceiverID, ev.Text)
}

func (s *Service) ignored(automation *automationDomain.Automation, channel eventDomain.Channel, reason domain.Reason) domain.Outcome {
	outcome := domain.Ignored(channel, reason)
	outcome.AutomationID = automation.ID
	return outcome
}

func (s *Service) failed(automation *automationDomain.Automation, channel eventDomain.Channel, reason domain.Reason, err error) domain.Outcome {
	outcome := domain.Failed(channel, reason, err)
	outcome.AutomationID = automation.ID
	return outcome
}

// directMessage answers customerID in the DM thread with businessID.
func (s *Service) directMessage(ctx context.Context, match *automationDomain.Match, platformAccountID, customerID, businessID, text string) domain.Outcome {
	automation := &match.Automation
	channel := eventDomain.ChannelDM

	res, outcome, ok := s.resolve(ctx, match, channel, customerID, businessID, text)
	if !ok {
		return outcome
	}

	if err := s.sender.SendDirectMessage(ctx, platformAccountID, customerID, res.Text, match.Token); err != nil {
		return s.failed(automation, channel, domain.ReasonDeliveryFailure, err)
	}

	return s.record(ctx, match, channel, customerID, businessID, text, res)
}

func (s *Service) comment(ctx context.Context, match *automationDomain.Match, ev eventDomain.Event) domain.Outcome {
	automation := &match.Automation
	channel := eventDomain.ChannelComment

	if ev.IsReply() {
		return s.ignored(automation, channel, domain.ReasonReplyComment)
	}

	processed, err := s.ledger.Processed(ctx, automation.ID, ev.CommentID)
	if err != nil {
		return s.failed(automation, channel, domain.ReasonPersistenceFailure, err)
	}
	if processed {
		return s.ignored(automation, channel, domain.ReasonDuplicate)
	}

	res, outcome, ok := s.resolve(ctx, match, channel, ev.SenderID, ev.PlatformAccountID, ev.Text)
	if !ok {
		return outcome
	}

	// The claim commits only after a successful send and must survive the
	// caller going away once the reply has left.
	var sendErr error
	err = s.ledger.Guard(context.WithoutCancel(ctx), automation.ID, ev.CommentID, func(context.Context) error {
		sendErr = s.sender.SendCommentReply(ctx, ev.PlatformAccountID, ev.CommentID, res.Text, match.Token)
		return sendErr
	})
	switch {
	case errors.Is(err, appErrors.ErrDuplicateComment):
		return s.ignored(automation, channel, domain.ReasonDuplicate)
	case sendErr != nil:
		return s.failed(automation, channel, domain.ReasonDeliveryFailure, sendErr)
	case err != nil:
		return s.failed(automation, channel, domain.ReasonPersistenceFailure, err)
	}

	outcome = s.record(ctx, match, channel, ev.SenderID, ev.PlatformAccountID, ev.Text, res)
	if outcome.Status == domain.StatusHandled && automation.HasTrigger(eventDomain.ChannelDM) {
		escalation := s.escalate(ctx, match, ev, res)
		outcome.Escalation = &escalation
	}
	return outcome
}

// escalate follows a comment reply with a DM to the commenter. Generated and
// fallback replies are reused as is; scripted ones take the DM text. The
// comment is already in the transcript, so only the DM is recorded.
func (s *Service) escalate(ctx context.Context, match *automationDomain.Match, ev eventDomain.Event, res *responseDomain.Resolution) domain.Outcome {
	automation := &match.Automation
	channel := eventDomain.ChannelDM

	if res.Strategy == responseDomain.StrategyScripted {
		dmRes, outcome, ok := s.resolve(ctx, match, channel, ev.SenderID, ev.PlatformAccountID, ev.Text)
		if !ok {
			return outcome
		}
		res = dmRes
	}

	if err := s.sender.SendDirectMessage(ctx, ev.PlatformAccountID, ev.SenderID, res.Text, match.Token); err != nil {
		return s.failed(automation, channel, domain.ReasonDeliveryFailure, err)
	}

	return s.record(ctx, match, channel, ev.SenderID, ev.PlatformAccountID, "", res)
}

// resolve asks the selector for a reply. When ok is false the returned
// outcome ends the pipeline.
func (s *Service) resolve(ctx context.Context, match *automationDomain.Match, channel eventDomain.Channel, customerID, businessID, text string) (*responseDomain.Resolution, domain.Outcome, bool) {
	automation := &match.Automation

	res, err := s.selector.Resolve(ctx, responseDomain.Input{
		Match:      match,
		Channel:    channel,
		CustomerID: customerID,
		BusinessID: businessID,
		Text:       text,
	})
	switch {
	case err == nil:
		return res, domain.Outcome{}, true
	case errors.Is(err, appErrors.ErrGenerativeNotEntitled):
		return nil, s.ignored(automation, channel, domain.ReasonNotEntitled), false
	case errors.Is(err, appErrors.ErrEmptyReply):
		return nil, s.ignored(automation, channel, domain.ReasonEmptyReply), false
	case errors.Is(err, appErrors.ErrNoListener):
		return nil, s.ignored(automation, channel, domain.ReasonNoListener), false
	default:
		return nil, s.failed(automation, channel, domain.ReasonPersistenceFailure, err), false
	}
}

// record stores the exchange and bumps the channel counter after a delivered
// reply. An empty text records the reply alone.
func (s *Service) record(ctx context.Context, match *automationDomain.Match, channel eventDomain.Channel, customerID, businessID, text string, res *responseDomain.Resolution) domain.Outcome {
	automation := &match.Automation
	ctx = context.WithoutCancel(ctx)

	metrics.RepliesTotal.WithLabelValues(string(channel), string(res.Strategy), strconv.FormatBool(res.Fallback)).Inc()

	exchange := conversationDomain.Exchange{
		AutomationID: automation.ID,
		CustomerID:   customerID,
		BusinessID:   businessID,
		Inbound:      text,
		Reply:        res.Text,
	}
	var err error
	if text == "" {
		err = s.transcript.AppendReply(ctx, exchange)
	} else {
		err = s.transcript.AppendExchange(ctx, exchange)
	}
	if err == nil {
		err = s.matcher.RecordReply(ctx, automation.ID, channel)
	}
	if err != nil {
		outcome := s.failed(automation, channel, domain.ReasonPersistenceFailure, err)
		outcome.Strategy = res.Strategy
		outcome.Fallback = res.Fallback
		return outcome
	}

	return domain.Outcome{
		Status:       domain.StatusHandled,
		Channel:      channel,
		AutomationID: automation.ID,
		Strategy:     res.Strategy,
		Fallback:     res.Fallback,
	}
}

func (s *Service) observe(ctx context.Context, ev eventDomain.Event, outcome domain.Outcome) {
	metrics.EventsTotal.WithLabelValues(string(outcome.Channel), string(outcome.Status), string(outcome.Reason)).Inc()

	attrs := []any{
		"channel", outcome.Channel,
		"platform_account_id", ev.PlatformAccountID,
		"sender_id", ev.SenderID,
		"automation_id", outcome.AutomationID,
		"status", outcome.Status,
		"reason", outcome.Reason,
	}
	if ev.CommentID != "" {
		attrs = append(attrs, "comment_id", ev.CommentID)
	}

	switch outcome.Status {
	case domain.StatusHandled:
		slog.Info("Reply delivered", append(attrs, "strategy", outcome.Strategy, "fallback", outcome.Fallback)...)
	case domain.StatusIgnored:
		slog.Debug("Event ignored", attrs...)
	case domain.StatusError:
		slog.Error("Event failed", append(attrs, "error", outcome.Err)...)
		if s.alerter != nil {
			s.alerter.Alert(context.WithoutCancel(ctx), ev, outcome)
		}
	}
}
