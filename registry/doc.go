// Package registry provides the factory and dedup layer for shared
// causables. A Registry hands out already-started CausableInUse handles;
// concurrent callers presenting value-equal cause sequences share one
// underlying instance, which finishes only when the last handle closes.
//
// Registries carry no global state: construct one with New and inject it
// wherever shared causation is needed (the root causemesh package does this
// for you).
package registry
