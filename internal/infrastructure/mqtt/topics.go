package mqtt

import (
	"fmt"
	"strconv"
	"strings"
)

// Topics builds the gateway's topic names under a configurable prefix.
//
//	topics := mqtt.Topics{Prefix: "musicgateway"}
//	topics.ZoneState(3)    // "musicgateway/zone/3/state"
//	topics.ZoneCommands()  // "musicgateway/zone/+/command"
type Topics struct {
	Prefix string
}

// ZoneState is the retained audio-state topic for one zone.
func (t Topics) ZoneState(zoneID int) string {
	return fmt.Sprintf("%s/zone/%d/state", t.Prefix, zoneID)
}

// ZoneCommand is the command ingress topic for one zone.
func (t Topics) ZoneCommand(zoneID int) string {
	return fmt.Sprintf("%s/zone/%d/command", t.Prefix, zoneID)
}

// ZoneCommands matches the command topic of every zone.
func (t Topics) ZoneCommands() string {
	return t.Prefix + "/zone/+/command"
}

// SystemStatus carries the online/offline status and the last will.
func (t Topics) SystemStatus() string {
	return t.Prefix + "/system/status"
}

// ParseZoneCommand extracts the zone id from a concrete command topic.
func (t Topics) ParseZoneCommand(topic string) (int, bool) {
	rest, ok := strings.CutPrefix(topic, t.Prefix+"/zone/")
	if !ok {
		return 0, false
	}
	idStr, ok := strings.CutSuffix(rest, "/command")
	if !ok || strings.Contains(idStr, "/") {
		return 0, false
	}
	id, err := strconv.Atoi(idStr)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}
