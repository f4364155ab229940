package rpc

import (
	"fmt"
	"sync"
)

// endpointIterator iterates in a round robin over the endpoints of a chain,
// skipping the disabled ones.
type endpointIterator struct {
	mtx       sync.Mutex
	next      int
	available []*Endpoint
	disabled  []*Endpoint
}

func newEndpointIterator(endpoints ...*Endpoint) *endpointIterator {
	return &endpointIterator{available: endpoints}
}

// Add adds the endpoint as available, ignoring already known URIs.
func (e *endpointIterator) Add(endpoints ...*Endpoint) {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	for _, endpoint := range endpoints {
		if e.known(endpoint.URI) {
			endpoint.client.Close()
			continue
		}
		e.available = append(e.available, endpoint)
	}
}

// Next returns the next available endpoint. When none is available the
// disabled ones are made available again.
func (e *endpointIterator) Next() (*Endpoint, error) {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	if len(e.available) == 0 {
		if len(e.disabled) == 0 {
			return nil, fmt.Errorf("no endpoints available")
		}
		e.available, e.disabled = e.disabled, nil
		e.next = 0
	}
	if e.next >= len(e.available) {
		e.next = 0
	}
	endpoint := e.available[e.next]
	e.next++
	return endpoint, nil
}

// Disable moves the endpoint with the URI provided to the disabled list.
func (e *endpointIterator) Disable(uri string) {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	for i, endpoint := range e.available {
		if endpoint.URI == uri {
			e.available = append(e.available[:i], e.available[i+1:]...)
			e.disabled = append(e.disabled, endpoint)
			if e.next > i {
				e.next--
			}
			return
		}
	}
}

// Available returns the number of available endpoints.
func (e *endpointIterator) Available() int {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return len(e.available)
}

// Disabled returns the number of disabled endpoints.
func (e *endpointIterator) Disabled() int {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return len(e.disabled)
}

// Close closes the clients of every endpoint.
func (e *endpointIterator) Close() {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	for _, endpoint := range e.all() {
		endpoint.client.Close()
	}
}

func (e *endpointIterator) known(uri string) bool {
	for _, endpoint := range e.all() {
		if endpoint.URI == uri {
			return true
		}
	}
	return false
}

func (e *endpointIterator) all() []*Endpoint {
	all := make([]*Endpoint, 0, len(e.available)+len(e.disabled))
	all = append(all, e.available...)
	return append(all, e.disabled...)
}
