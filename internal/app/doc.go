// Package app provides the application service layer.
//
// Orchestrates the vote-to-pin use cases: session creation, vote counting,
// quorum detection, the cooldown-gated pin, and expiry sweeping. Sits between
// the gateway and the domain components. Depends on domain interfaces, not
// concrete implementations.
package app
