// Package core contains the central abstractions of CauseMesh: the Causable
// cause-chain node, the CauseRef tagged cause variant, the ChainBreak
// discontinuity marker, and the Key/Effect pair used to batch deferred side
// effects onto the root of a chain.
//
// A Causable represents an in-flight event that may itself be caused by other
// events. While the root event of a chain is in progress, any number of call
// sites may register deferred effects on it via OnFinish; contributions for
// the same Key merge into a single accumulator and the Key's actions run
// exactly once when the root's use scope closes, however deep or wide the
// chain grew in the meantime.
//
// A single chain assumes one logical thread of causal execution. Crossing a
// goroutine or queue boundary must go through a ChainBreak, which keeps the
// upstream causes discoverable for diagnostics without pulling them into
// root resolution.
package core
