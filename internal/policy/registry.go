// Package policy hosts the scheduling-policy registry and the built-in
// policies. Policies are chosen at startup by name; there is no runtime
// code loading.
package policy

import (
	"errors"
	"fmt"
	"sort"

	"github.com/stomp-org/stomp/internal/stomp"
)

// ErrUnknownPolicy marks a policy name with no registered constructor.
var ErrUnknownPolicy = errors.New("unknown scheduling policy")

// Factory constructs a fresh policy instance.
type Factory func() stomp.Policy

var builtins = map[string]Factory{
	"firstfit": func() stomp.Policy { return &FirstFit{} },
}

// Register adds a policy constructor under a name. Registering an existing
// name replaces it.
func Register(name string, f Factory) {
	builtins[name] = f
}

// New constructs the policy registered under name.
func New(name string) (stomp.Policy, error) {
	f, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownPolicy, name, Names())
	}
	return f(), nil
}

// Names returns the registered policy names, sorted.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
