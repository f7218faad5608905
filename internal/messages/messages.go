// Package messages defines the concrete message payloads carried over the
// pubsub bus and the topic descriptors identifying their channels. Nothing
// in this package knows about HTML, WebSockets, or storage — it is the
// shared vocabulary between the RCON services, the status aggregator, the
// heartbeat publisher, and the WebSocket processors.
package messages

import (
	"time"

	"github.com/alexmorten/rconsole/internal/pubsub"
)

// Severity classifies a NotificationMessage for rendering (color, icon,
// auto-dismiss behavior).
type Severity string

const (
	SeverityPlain   Severity = "plain"
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// AudienceAll is the sentinel Audience value meaning "deliver to every
// connected user" rather than a specific set of usernames.
const AudienceAll = "all"

// Audience selects who should see a NotificationMessage: either the
// AudienceAll sentinel, or a set of usernames represented as a slice.
type Audience struct {
	All       bool
	Usernames []string
}

// AllAudience returns the audience matching every user.
func AllAudience() Audience {
	return Audience{All: true}
}

// UsersAudience returns the audience matching exactly the given usernames.
func UsersAudience(usernames ...string) Audience {
	return Audience{Usernames: usernames}
}

// Includes reports whether username is addressed by a.
func (a Audience) Includes(username string) bool {
	if a.All {
		return true
	}
	for _, u := range a.Usernames {
		if u == username {
			return true
		}
	}
	return false
}

// HeartbeatMessage is published on a fixed cadence to let connected
// browsers know the server process is alive.
type HeartbeatMessage struct {
	Timestamp time.Time
}

// NotificationMessage is a user-facing event: connection state changes,
// retry warnings, and login failures all surface through this shape.
type NotificationMessage struct {
	Audience           Audience
	Body               string
	Severity           Severity
	AutoDismissSeconds *int
}

// RconCommand is a command issued by a browser session, destined for one
// server's RCON connection.
type RconCommand struct {
	IssuingUser string
	Command     string
}

// ServerType distinguishes the two RCON dialects this console drives.
type ServerType string

const (
	ServerTypeSource    ServerType = "SOURCE_SERVER"
	ServerTypeMinecraft ServerType = "MINECRAFT_SERVER"
)

// RconResponse is the fully reassembled reply to one RconCommand.
type RconResponse struct {
	IssuingUser string
	ServerType  ServerType
	Command     string
	Response    string
}

// RconConnected announces that the named server's RCON client reached the
// Ready state.
type RconConnected struct {
	ServerUID string
}

// RconDisconnected announces that the named server's RCON client left the
// Ready state, whether by clean shutdown or failure.
type RconDisconnected struct {
	ServerUID string
}

// Bus topic names. These are the wire-level identifiers shared by every
// publisher and subscriber; they must never change independently of the
// WebSocket endpoint table they back.
const (
	TopicNameHeartbeat    = "heartbeat"
	TopicNameNotification = "notifications"
	TopicNameServerStatus = "server_status"
	rconCommandPrefix     = "rcon_command/"
	rconResponsePrefix    = "rcon_response/"
)

// HeartbeatTopic is the single shared heartbeat channel.
var HeartbeatTopic = pubsub.NewTopicDescriptor[HeartbeatMessage](TopicNameHeartbeat)

// NotificationTopic is the single shared notification channel; subscribers
// apply an audience filter (see AudienceFilter) rather than subscribing per
// user.
var NotificationTopic = pubsub.NewTopicDescriptor[NotificationMessage](TopicNameNotification)

// ServerStatusTopic carries RconConnected/RconDisconnected events for every
// server; the status aggregator is its sole consumer of record.
var ServerStatusTopic = pubsub.NewTopicDescriptor[any](TopicNameServerStatus)

// RconCommandTopic returns the per-server topic a browser session publishes
// commands to and an RconService's write loop subscribes to.
func RconCommandTopic(serverUID string) pubsub.TopicDescriptor[RconCommand] {
	return pubsub.NewTopicDescriptor[RconCommand](rconCommandPrefix + serverUID)
}

// RconResponseTopic returns the per-server topic an RconService publishes
// reassembled responses to and a browser session's WS processor subscribes
// to.
func RconResponseTopic(serverUID string) pubsub.TopicDescriptor[RconResponse] {
	return pubsub.NewTopicDescriptor[RconResponse](rconResponsePrefix + serverUID)
}

// AudienceFilter returns a filter accepting a NotificationMessage iff its
// audience includes username, per spec: audience == "all" OR username ∈
// audience.
func AudienceFilter(username string) pubsub.Filter {
	return func(m any) bool {
		notification, ok := m.(NotificationMessage)
		if !ok {
			return false
		}
		return notification.Audience.Includes(username)
	}
}

// CommandLengthAtLeast returns a filter accepting an RconCommand iff its
// command field has at least n characters. The RCON service's write loop
// uses this to ignore blank submissions.
func CommandLengthAtLeast(n int) pubsub.Filter {
	return pubsub.FieldLength(func(c RconCommand) string { return c.Command }, n, pubsub.LengthMin)
}
