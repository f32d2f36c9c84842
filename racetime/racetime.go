// Package racetime defines the contracts the bot consumes from the race
// room host: the room transport surface, the chat and race event payloads
// it delivers, and the authorization helpers derived from them. The host's
// session protocol itself lives outside this module.
package racetime

import "context"

// Room is the transport surface the host provides for one race room.
type Room interface {
	// SendMessage posts a chat message to the room.
	SendMessage(ctx context.Context, text string, opts *MessageOpts) error
	// UnpinMessage removes the pin from a previously pinned message.
	UnpinMessage(ctx context.Context, messageID string) error
	// SetInfo publishes the race's current info string.
	SetInfo(ctx context.Context, info string) error
}

// MessageOpts carries the optional trimmings of an outgoing chat message.
type MessageOpts struct {
	Actions []Action
	Pinned  bool
}

// Delegator answers whether a cooperating bot owns a race's custom goal.
type Delegator interface {
	HandlesCustomGoal(ctx context.Context, goal string) (bool, error)
}

// User identifies the author of a chat message along with the room
// privileges the host has resolved for them.
type User struct {
	Name        string `json:"name"`
	CanMonitor  bool   `json:"can_monitor"`
	CanModerate bool   `json:"can_moderate"`
}

// ChatMessage is one chat event delivered by the room host.
type ChatMessage struct {
	ID           string `json:"id"`
	User         User   `json:"user"`
	MessagePlain string `json:"message_plain"`
	IsBot        bool   `json:"is_bot"`
	Bot          string `json:"bot"`
	IsPinned     bool   `json:"is_pinned"`
}

// CanMonitor reports whether the message author is a race monitor or
// holds any higher privilege.
func CanMonitor(msg ChatMessage) bool {
	return msg.User.CanMonitor || msg.User.CanModerate
}

// CanModerate reports whether the message author can moderate the race
// (moderator or race owner).
func CanModerate(msg ChatMessage) bool {
	return msg.User.CanModerate
}

// Goal is the race's goal as reported by the host.
type Goal struct {
	Name   string `json:"name"`
	Custom bool   `json:"custom"`
}

// RaceData is a snapshot of the race's state.
type RaceData struct {
	Name   string `json:"name"`
	Status struct {
		Value string `json:"value"`
	} `json:"status"`
	Goal Goal `json:"goal"`
}

// InProgress reports whether the race has started (or is counting down).
func (r RaceData) InProgress() bool {
	return r.Status.Value == "pending" || r.Status.Value == "in_progress"
}

// Ended reports whether the race has reached a terminal state.
func (r RaceData) Ended() bool {
	return r.Status.Value == "cancelled" || r.Status.Value == "finished"
}
