package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ListenerKind selects how an automation composes its reply
type ListenerKind string

const (
	ListenerKindScripted   ListenerKind = "SCRIPTED"
	ListenerKindGenerative ListenerKind = "GENERATIVE"
)

var ErrInvalidListenerKind = errors.New("not a valid ListenerKind")

// ListenerKindNames returns the allowed listener kinds.
func ListenerKindNames() []string {
	return []string{string(ListenerKindScripted), string(ListenerKindGenerative)}
}

func (x ListenerKind) String() string {
	return string(x)
}

// ParseListenerKind attempts to convert a string to a ListenerKind.
func ParseListenerKind(name string) (ListenerKind, error) {
	switch strings.ToUpper(name) {
	case string(ListenerKindScripted):
		return ListenerKindScripted, nil
	case string(ListenerKindGenerative):
		return ListenerKindGenerative, nil
	}
	return ListenerKind(""), fmt.Errorf("%s is %w", name, ErrInvalidListenerKind)
}

// Plan is the subscription tier of an account
type Plan string

const (
	PlanFree Plan = "FREE"
	PlanPro  Plan = "PRO"
)

var ErrInvalidPlan = errors.New("not a valid Plan")

// PlanNames returns the allowed plans.
func PlanNames() []string {
	return []string{string(PlanFree), string(PlanPro)}
}

func (x Plan) String() string {
	return string(x)
}

// ParsePlan attempts to convert a string to a Plan.
func ParsePlan(name string) (Plan, error) {
	switch strings.ToUpper(name) {
	case string(PlanFree):
		return PlanFree, nil
	case string(PlanPro):
		return PlanPro, nil
	}
	return Plan(""), fmt.Errorf("%s is %w", name, ErrInvalidPlan)
}
