// Package events provides types and interfaces for an event-driven architecture.
//
// Services emit events without knowing which handlers will process them.
// The PvP service publishes match_found and rank_changed events; handlers
// deliver matches to waiting players and log rank transitions.
//
// Handlers subscribe to specific event types on the in-memory emitter, or to
// all of them with RegisterHandler. Delivery is synchronous.
package events
