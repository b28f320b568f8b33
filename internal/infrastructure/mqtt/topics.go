package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the root of every unit topic.
const TopicPrefix = "pocs"

// TopicPrefixSystem is the base for client presence topics.
const TopicPrefixSystem = "pocs/system"

// Topics provides builders for unit MQTT topics.
//
// Messaging channels map one-to-one onto topics:
//
//	topics := mqtt.Topics{}
//	topics.Channel("STATUS") // "pocs/STATUS"
type Topics struct{}

// Channel returns the topic carrying messages for a named channel.
//
// Example: pocs/PANCHAT
func (Topics) Channel(channel string) string {
	return fmt.Sprintf("%s/%s", TopicPrefix, channel)
}

// AllChannels returns a wildcard matching every channel topic.
func (Topics) AllChannels() string {
	return TopicPrefix + "/+"
}

// ClientStatus returns the retained presence topic for a client.
//
// Example: pocs/system/status/pocs-publisher
func (Topics) ClientStatus(clientID string) string {
	return fmt.Sprintf("%s/status/%s", TopicPrefixSystem, clientID)
}

// ChannelFromTopic extracts the channel name from a channel topic.
// It returns false for topics outside the channel namespace.
func (Topics) ChannelFromTopic(topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, TopicPrefix+"/")
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}
