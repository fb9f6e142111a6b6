package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Channel is the source of an inbound event and the type of a trigger rule.
type Channel string

const (
	ChannelDM      Channel = "DM"
	ChannelComment Channel = "COMMENT"
)

var ErrInvalidChannel = errors.New("not a valid Channel")

// ChannelNames returns the allowed channel values.
func ChannelNames() []string {
	return []string{string(ChannelDM), string(ChannelComment)}
}

func (c Channel) String() string {
	return string(c)
}

// ParseChannel converts a case-insensitive name into a Channel.
func ParseChannel(name string) (Channel, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case string(ChannelDM):
		return ChannelDM, nil
	case string(ChannelComment):
		return ChannelComment, nil
	}
	return Channel(""), fmt.Errorf("%s is %w", name, ErrInvalidChannel)
}
