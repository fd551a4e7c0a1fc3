package event

import "strings"

// Topic is the topic an event type is published to.
func Topic(prefix, eventType string) string {
	return prefix + "." + strings.ToLower(eventType)
}
