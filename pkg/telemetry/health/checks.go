package health

import (
	"context"
	"fmt"
	"strings"

	"mercator-hq/dyndict/pkg/registry"
)

// Registry is the part of *registry.Registry the readiness checks read.
type Registry interface {
	Lifecycle() registry.Lifecycle
	Status(name string) registry.Status
}

// RegistryCheck fails once the registry has started shutting down.
func RegistryCheck(r Registry) CheckFunc {
	return func(ctx context.Context) error {
		if lc := r.Lifecycle(); lc != registry.LifecycleLive {
			return fmt.Errorf("registry is %s", lc)
		}
		return nil
	}
}

// EntriesCheck fails while any of the names returned by expected is not an
// active entry. expected is called on every check so configuration reloads
// are picked up.
func EntriesCheck(r Registry, expected func() []string) CheckFunc {
	return func(ctx context.Context) error {
		var missing []string
		for _, name := range expected() {
			if st := r.Status(name); st != registry.StatusActive {
				missing = append(missing, fmt.Sprintf("%s (%s)", name, st))
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("entries not active: %s", strings.Join(missing, ", "))
		}
		return nil
	}
}
