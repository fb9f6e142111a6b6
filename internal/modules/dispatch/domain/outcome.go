package domain

import (
	eventDomain "github.com/reshetovitsme/insta-autoreply/internal/modules/event/domain"
	responseDomain "github.com/reshetovitsme/insta-autoreply/internal/modules/response/domain"
)

// Status is the acknowledgement class of a dispatched event
type Status string

const (
	StatusHandled Status = "HANDLED"
	StatusIgnored Status = "IGNORED"
	StatusError   Status = "ERROR"
)

// Reason explains an IGNORED or ERROR outcome
type Reason string

const (
	ReasonEmptyText      Reason = "empty_text"
	ReasonEcho           Reason = "echo"
	ReasonUnknownAccount Reason = "unknown_account"
	ReasonNoMatch        Reason = "no_match"
	ReasonNoTrigger      Reason = "no_trigger"
	ReasonNoListener     Reason = "no_listener"
	ReasonReplyComment   Reason = "reply_comment"
	ReasonDuplicate      Reason = "duplicate"
	ReasonNotEntitled    Reason = "not_entitled"
	ReasonEmptyReply     Reason = "empty_reply"

	ReasonMalformedInput     Reason = "malformed_input"
	ReasonDeliveryFailure    Reason = "delivery_failure"
	ReasonPersistenceFailure Reason = "persistence_failure"
)

// Outcome is the result of dispatching one event. Escalation holds the
// follow-up DM outcome of a comment that was answered publicly.
type Outcome struct {
	Status       Status                  `json:"status"`
	Reason       Reason                  `json:"reason,omitempty"`
	Channel      eventDomain.Channel     `json:"channel"`
	AutomationID string                  `json:"automation_id,omitempty"`
	Strategy     responseDomain.Strategy `json:"strategy,omitempty"`
	Fallback     bool                    `json:"fallback,omitempty"`
	Escalation   *Outcome                `json:"escalation,omitempty"`
	Err          error                   `json:"-"`
}

func Ignored(channel eventDomain.Channel, reason Reason) Outcome {
	return Outcome{Status: StatusIgnored, Reason: reason, Channel: channel}
}

func Failed(channel eventDomain.Channel, reason Reason, err error) Outcome {
	return Outcome{Status: StatusError, Reason: reason, Channel: channel, Err: err}
}
