// Package server runs the HTTP front of the bot: the webhook endpoint and
// health checks, on a plain TCP listener or on a Tailscale node.
//
// With tailscale.funnel enabled the node exposes the webhook publicly over
// HTTPS on :443, which is what the platform needs to deliver events to a
// bot running without a public address of its own.
//
// Run blocks until its context is canceled or the listener fails, then
// shuts down: in-flight requests drain, background webhook handling is
// awaited, and the Tailscale node is closed.
package server
