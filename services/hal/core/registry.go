package core

import (
	"fmt"
	"sort"
	"sync"

	"fuelgauge-go/types"
)

// PlatformInfo tells code generators how to reach a platform from Go source.
type PlatformInfo struct {
	ImportPath  string                // e.g. "fuelgauge-go/services/hal/devices/max17048"
	Package     string                // import alias used in generated code
	Constructor string                // func(id string) *T
	Setters     map[types.Kind]string // kind -> sensor setter method
}

// Platform is the registration contract every device driver provides.
// Validate must be pure; Bind drives a Target in a fixed order.
type Platform interface {
	Info() PlatformInfo
	Validate(record map[string]any) (any, error)
	Bind(cfg any, t Target) error
	New(id string) Component
	Attach(c Component, kind types.Kind, s *Sensor) error
}

var (
	regMu     sync.RWMutex
	platforms = map[string]Platform{}
)

// RegisterPlatform makes a platform available by name. It panics if p is nil
// or the name is already taken; call it from init.
func RegisterPlatform(name string, p Platform) {
	if p == nil {
		panic("core: RegisterPlatform platform is nil")
	}
	regMu.Lock()
	defer regMu.Unlock()
	if _, exists := platforms[name]; exists {
		panic(fmt.Sprintf("duplicate platform: %s", name))
	}
	platforms[name] = p
}

func LookupPlatform(name string) (Platform, bool) {
	regMu.RLock()
	defer regMu.RUnlock()
	p, ok := platforms[name]
	return p, ok
}

// Platforms returns the sorted names of registered platforms.
func Platforms() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	names := make([]string, 0, len(platforms))
	for name := range platforms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
