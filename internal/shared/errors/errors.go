package errors

import "errors"

var (
	ErrMissingDatabaseDSN    = errors.New("DATABASE_DSN environment variable is required")
	ErrUnsupportedDriver     = errors.New("unsupported database driver")
	ErrAutomationNotFound    = errors.New("automation not found")
	ErrUnknownAccount        = errors.New("no integration for platform account")
	ErrDuplicateComment      = errors.New("comment already processed")
	ErrGenerativeNotEntitled = errors.New("generative replies require a PRO subscription")
	ErrNoListener            = errors.New("automation has no listener")
	ErrEmptyReply            = errors.New("resolved reply is empty")
	ErrDeliveryRejected      = errors.New("platform rejected delivery")
	ErrMalformedPayload      = errors.New("malformed webhook payload")
	ErrInvalidSignature      = errors.New("invalid webhook signature")
	ErrGeneratorUnavailable  = errors.New("generator is not configured")
)
