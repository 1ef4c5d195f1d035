package model

import "strings"

type EventType string

const (
	EventTypeMessage  EventType = "message"
	EventTypeFollow   EventType = "follow"
	EventTypeUnfollow EventType = "unfollow"
	EventTypePostback EventType = "postback"
)

type MessageType string

const (
	MessageTypeText    MessageType = "text"
	MessageTypeImage   MessageType = "image"
	MessageTypeSticker MessageType = "sticker"
)

// WebhookRequest is the body LINE posts to the webhook.
type WebhookRequest struct {
	Destination string         `json:"destination"`
	Events      []InboundEvent `json:"events"`
}

// InboundEvent is a single webhook event. Only text messages carry a payload we act on.
type InboundEvent struct {
	Type            EventType        `json:"type"`
	Mode            string           `json:"mode,omitempty"`
	Timestamp       int64            `json:"timestamp"`
	WebhookEventID  string           `json:"webhookEventId,omitempty"`
	DeliveryContext *DeliveryContext `json:"deliveryContext,omitempty"`
	ReplyToken      string           `json:"replyToken,omitempty"`
	Source          *EventSource     `json:"source,omitempty"`
	Message         *EventMessage    `json:"message,omitempty"`
}

type DeliveryContext struct {
	IsRedelivery bool `json:"isRedelivery"`
}

type EventSource struct {
	Type    string `json:"type"` // user | group | room
	UserID  string `json:"userId,omitempty"`
	GroupID string `json:"groupId,omitempty"`
	RoomID  string `json:"roomId,omitempty"`
}

type EventMessage struct {
	ID   string      `json:"id"`
	Type MessageType `json:"type"`
	Text string      `json:"text,omitempty"`
}

// IsText reports whether the event is a text message.
func (e InboundEvent) IsText() bool {
	return e.Type == EventTypeMessage && e.Message != nil && e.Message.Type == MessageTypeText
}

// UserID returns the origin user, or "" when the source carries none.
func (e InboundEvent) UserID() string {
	if e.Source == nil {
		return ""
	}
	return strings.TrimSpace(e.Source.UserID)
}

// Text returns the message text of a text event.
func (e InboundEvent) Text() string {
	if e.Message == nil {
		return ""
	}
	return e.Message.Text
}
