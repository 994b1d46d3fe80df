package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Errors
var (
	ErrMalformed      = errors.New("malformed frame")
	ErrMissingData    = errors.New("frame has no data")
	ErrUnknownChannel = errors.New("unknown channel")
)

// Inbound frame types.
const (
	TypePong                 = "pong"
	TypeScheduleNotification = "schedule_notification"
	TypePipelineUpdate       = "pipeline_update"
	TypeSystemAlert          = "system_alert"
)

// Outbound frame types.
const (
	TypePing                = "ping"
	TypeSubscribePost       = "subscribe_post"
	TypeUnsubscribePost     = "unsubscribe_post"
	TypeSubscribeCampaign   = "subscribe_campaign"
	TypeUnsubscribeCampaign = "unsubscribe_campaign"
)

// Envelope is a decoded inbound frame.
type Envelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"` // ISO-8601 string or epoch millis
}

// Frame is an outbound frame.
type Frame struct {
	Type      string `json:"type"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"` // epoch millis
}

// Decode parses a raw text frame. Frames that are not a JSON object with a
// non-empty type are rejected with ErrMalformed.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	return env, nil
}

// Encode serializes an outbound value. Shape is not validated.
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return data, nil
}

// HasData reports whether the envelope carries a non-null payload.
func (e Envelope) HasData() bool {
	return len(e.Data) > 0 && string(e.Data) != "null"
}

// DecodeData unmarshals the payload into v.
func (e Envelope) DecodeData(v any) error {
	if !e.HasData() {
		return fmt.Errorf("%s: %w", e.Type, ErrMissingData)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("%w: %s data: %v", ErrMalformed, e.Type, err)
	}
	return nil
}

// Time returns the envelope timestamp, if present and parseable.
func (e Envelope) Time() (time.Time, bool) {
	if len(e.Timestamp) == 0 || string(e.Timestamp) == "null" {
		return time.Time{}, false
	}

	var s string
	if err := json.Unmarshal(e.Timestamp, &s); err == nil {
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	}

	ms, err := strconv.ParseFloat(string(e.Timestamp), 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(ms)), true
}

// Ping builds a heartbeat frame stamped with t.
func Ping(t time.Time) Frame {
	return Frame{Type: TypePing, Timestamp: t.UnixMilli()}
}

type postRef struct {
	PostID string `json:"post_id"`
}

type campaignRef struct {
	CampaignID string `json:"campaign_id"`
}

// SubscribePost asks the server to stream updates for a post.
func SubscribePost(postID string) Frame {
	return Frame{Type: TypeSubscribePost, Data: postRef{PostID: postID}}
}

// UnsubscribePost stops updates for a post.
func UnsubscribePost(postID string) Frame {
	return Frame{Type: TypeUnsubscribePost, Data: postRef{PostID: postID}}
}

// SubscribeCampaign asks the server to stream updates for a campaign.
func SubscribeCampaign(campaignID string) Frame {
	return Frame{Type: TypeSubscribeCampaign, Data: campaignRef{CampaignID: campaignID}}
}

// UnsubscribeCampaign stops updates for a campaign.
func UnsubscribeCampaign(campaignID string) Frame {
	return Frame{Type: TypeUnsubscribeCampaign, Data: campaignRef{CampaignID: campaignID}}
}
