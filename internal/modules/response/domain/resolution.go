package domain

import (
	automationDomain "github.com/reshetovitsme/insta-autoreply/internal/modules/automation/domain"
	eventDomain "github.com/reshetovitsme/insta-autoreply/internal/modules/event/domain"
)

// Strategy records how a reply text was produced
type Strategy string

const (
	StrategyScripted   Strategy = "SCRIPTED"
	StrategyGenerative Strategy = "GENERATIVE"
	StrategyFallback   Strategy = "FALLBACK"
)

func (s Strategy) String() string {
	return string(s)
}

// Input is what the selector needs to answer one event
type Input struct {
	Match      *automationDomain.Match
	Channel    eventDomain.Channel
	CustomerID string
	BusinessID string
	Text       string
}

// Resolution is the reply chosen for an event
type Resolution struct {
	Text     string
	Strategy Strategy
	// Fallback marks an apology sent in place of a generated answer.
	Fallback bool
}
