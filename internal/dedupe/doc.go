// Package dedupe drops webhook messaging items the platform delivers more
// than once. Items are keyed by message id, or by sender and timestamp for
// items without one, and remembered for a bounded time and count.
package dedupe
