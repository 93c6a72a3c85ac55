package memo

import (
	"fmt"
	"strings"
)

// keySep separates Key fields in the canonical form. The ASCII unit
// separator is vanishingly rare in identifiers and argument renderings, so
// prefix matches stay unambiguous.
const keySep = "\x1f"

// Key is the conventional structured cache key: the defining scope (module,
// service, type — whatever partitions your functions), the function name,
// and a canonical rendering of the argument list. The engine itself treats
// keys as opaque; Key exists so the scoped invalidation helpers below can
// narrow by prefix.
type Key struct {
	Scope string
	Func  string
	Args  string
}

// KeyOf builds a Key for scope/fn with args canonicalized via fmt.
// Arguments must render deterministically (avoid maps and pointers).
func KeyOf(scope, fn string, args ...any) Key {
	if len(args) == 0 {
		return Key{Scope: scope, Func: fn}
	}
	var b strings.Builder
	for i, a := range args {
		if i > 0 {
			b.WriteString(keySep)
		}
		fmt.Fprintf(&b, "%v", a)
	}
	return Key{Scope: scope, Func: fn, Args: b.String()}
}

// String renders the canonical form; it also makes Key hashable by the
// built-in strategies' routing hash.
func (k Key) String() string {
	return k.Scope + keySep + k.Func + keySep + k.Args
}

// InvalidateScope removes every entry whose key belongs to scope and
// returns the count.
func InvalidateScope[V any](c *Cache[Key, V], scope string) int {
	return c.InvalidateMatch(func(k Key) bool { return k.Scope == scope })
}

// InvalidateScopeFunc removes every entry for one function within a scope,
// regardless of arguments, and returns the count.
func InvalidateScopeFunc[V any](c *Cache[Key, V], scope, fn string) int {
	return c.InvalidateMatch(func(k Key) bool { return k.Scope == scope && k.Func == fn })
}
