// Package discovery announces the gateway on the local network over mDNS,
// so controllers can find the music server without a configured address.
package discovery

import (
	"errors"
	"fmt"

	"github.com/grandcat/zeroconf"
)

// Announcement parameters.
const (
	ServiceType = "_http._tcp"
	Domain      = "local."
	APIVersion  = "1.6"

	defaultInstance = "musicgateway"
)

// ErrInvalidPort is returned when the announced port is out of range.
var ErrInvalidPort = errors.New("discovery: port must be between 1 and 65535")

// Announcer keeps an mDNS registration alive until Close.
type Announcer struct {
	server   *zeroconf.Server
	instance string
	port     int
}

// Announce registers instance on port. An empty instance uses
// "musicgateway".
func Announce(instance string, port int) (*Announcer, error) {
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPort, port)
	}
	if instance == "" {
		instance = defaultInstance
	}

	server, err := zeroconf.Register(instance, ServiceType, Domain, port, TXTRecords(), nil)
	if err != nil {
		return nil, fmt.Errorf("registering mdns service %q: %w", instance, err)
	}
	return &Announcer{server: server, instance: instance, port: port}, nil
}

// TXTRecords returns the TXT entries published with the service.
func TXTRecords() []string {
	return []string{
		"api=" + APIVersion,
		"type=musicserver",
	}
}

// Instance returns the announced instance name.
func (a *Announcer) Instance() string {
	return a.instance
}

// Port returns the announced port.
func (a *Announcer) Port() int {
	return a.port
}

// Close withdraws the announcement.
func (a *Announcer) Close() {
	if a.server != nil {
		a.server.Shutdown()
	}
}
