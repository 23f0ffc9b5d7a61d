package health

import (
	"errors"
	"fmt"
	"os"
)

// ErrUnknownService is returned when a check references a service key that
// is not registered.
var ErrUnknownService = errors.New("unknown service")

// Service is one monitored backend dependency.
type Service struct {
	// Key is the stable identifier used in records, alerts and the API.
	Key string

	// Name is the human-readable service name.
	Name string

	// BaseURL is the service root; health checks GET <BaseURL>/health.
	BaseURL string
}

// Registry is the fixed set of monitored services, resolved once at startup.
type Registry struct {
	services map[string]Service
	order    []string
}

// NewRegistry builds a registry from the given services. Duplicate keys and
// missing base URLs are configuration errors.
func NewRegistry(services ...Service) (*Registry, error) {
	r := &Registry{services: make(map[string]Service, len(services))}
	for _, svc := range services {
		if svc.Key == "" || svc.BaseURL == "" {
			return nil, fmt.Errorf("service %q: key and base URL are required", svc.Key)
		}
		if _, dup := r.services[svc.Key]; dup {
			return nil, fmt.Errorf("duplicate service key %q", svc.Key)
		}
		r.services[svc.Key] = svc
		r.order = append(r.order, svc.Key)
	}
	return r, nil
}

// Get returns the service registered under key.
func (r *Registry) Get(key string) (Service, error) {
	svc, ok := r.services[key]
	if !ok {
		return Service{}, fmt.Errorf("%w: %q", ErrUnknownService, key)
	}
	return svc, nil
}

// Keys returns the service keys in registration order.
func (r *Registry) Keys() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered services.
func (r *Registry) Len() int {
	return len(r.order)
}

// backendServices is the fixed set of governance backends with their
// base-URL environment variables and local development defaults.
var backendServices = []struct {
	key, name, envVar, defaultURL string
}{
	{"principles", "Principle Management", "PRINCIPLES_SERVICE_URL", "http://localhost:8001"},
	{"synthesis", "Policy Synthesis", "SYNTHESIS_SERVICE_URL", "http://localhost:8002"},
	{"compliance", "Compliance Checking", "COMPLIANCE_SERVICE_URL", "http://localhost:8003"},
	{"auth", "Authentication", "AUTH_SERVICE_URL", "http://localhost:8005"},
}

// RegistryFromEnv builds the standard backend registry, taking base URLs
// from the environment with local development defaults. lookup defaults to
// the process environment.
func RegistryFromEnv(lookup func(string) (string, bool)) (*Registry, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	services := make([]Service, 0, len(backendServices))
	for _, b := range backendServices {
		url, ok := lookup(b.envVar)
		if !ok || url == "" {
			url = b.defaultURL
		}
		services = append(services, Service{Key: b.key, Name: b.name, BaseURL: url})
	}
	return NewRegistry(services...)
}
