// Package discovery advertises the status page over mDNS so the clock can be
// found on the local network without knowing its address.
package discovery

import (
	"fmt"
	"log"
	"net"
	"sync"

	"github.com/grandcat/zeroconf"
)

const (
	// ServiceType is the DNS-SD type of the status page.
	ServiceType = "_http._tcp"
	// ServiceDomain is the mDNS domain.
	ServiceDomain = "local."
)

type server interface {
	Shutdown()
}

type registerFunc func(instance, service, domain string, port int, text []string, ifaces []net.Interface) (server, error)

func zeroconfRegister(instance, service, domain string, port int, text []string, ifaces []net.Interface) (server, error) {
	return zeroconf.Register(instance, service, domain, port, text, ifaces)
}

// Advertiser registers and withdraws the mDNS record.
type Advertiser struct {
	mu       sync.Mutex
	instance string
	port     int
	text     []string
	register registerFunc
	server   server
}

// New creates an Advertiser for instance on port. text is published as TXT
// records (e.g. "path=/index.json").
func New(instance string, port int, text ...string) *Advertiser {
	return &Advertiser{
		instance: instance,
		port:     port,
		text:     text,
		register: zeroconfRegister,
	}
}

// Start publishes the record. Calling Start twice is a no-op.
func (a *Advertiser) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		return nil
	}
	if a.port <= 0 {
		return fmt.Errorf("mdns: invalid port %d", a.port)
	}

	srv, err := a.register(a.instance, ServiceType, ServiceDomain, a.port, a.text, nil)
	if err != nil {
		return fmt.Errorf("mdns register %s: %w", a.instance, err)
	}
	a.server = srv
	log.Printf("mdns: advertising %s.%s%s on port %d", a.instance, ServiceType, ServiceDomain, a.port)
	return nil
}

// Stop withdraws the record.
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server == nil {
		return
	}
	a.server.Shutdown()
	a.server = nil
	log.Printf("mdns: stopped advertising %s", a.instance)
}

// Running reports whether the record is published.
func (a *Advertiser) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.server != nil
}
