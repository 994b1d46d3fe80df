package envelope

import (
	"fmt"
	"strings"
)

// Channel kinds.
const (
	ChannelPost     = "post"
	ChannelCampaign = "campaign"
)

// Channel is a parsed channel identifier such as "post:42".
type Channel struct {
	Kind string
	ID   string
}

// String returns the canonical "kind:id" form.
func (c Channel) String() string {
	return c.Kind + ":" + c.ID
}

// ParseChannel parses "post:{id}" or "campaign:{id}".
func ParseChannel(channelID string) (Channel, error) {
	kind, id, ok := strings.Cut(strings.TrimSpace(channelID), ":")
	if !ok || id == "" {
		return Channel{}, fmt.Errorf("%w: %q", ErrUnknownChannel, channelID)
	}

	switch kind {
	case ChannelPost, ChannelCampaign:
		return Channel{Kind: kind, ID: id}, nil
	default:
		return Channel{}, fmt.Errorf("%w: %q", ErrUnknownChannel, channelID)
	}
}

// SubscribeFrame returns the subscribe command for a channel.
func SubscribeFrame(ch Channel) Frame {
	if ch.Kind == ChannelCampaign {
		return SubscribeCampaign(ch.ID)
	}
	return SubscribePost(ch.ID)
}

// UnsubscribeFrame returns the unsubscribe command for a channel.
func UnsubscribeFrame(ch Channel) Frame {
	if ch.Kind == ChannelCampaign {
		return UnsubscribeCampaign(ch.ID)
	}
	return UnsubscribePost(ch.ID)
}
