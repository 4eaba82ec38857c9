// Package event models inbound webhook deliveries and normalizes them into
// the events the router and conversations react to.
//
// A single delivery (Batch) bundles entries, each with a list of messaging
// items. Events returns them flattened in delivery order. Every messaging
// item maps to at most one Event; its Type is the primary kind and Keys
// lists every registration key it answers to, most specific first:
//
//	postback with payload BUY     -> postback:BUY, postback
//	text message with quick reply -> message, quick_reply:SIZE_S, quick_reply
//
// Items the platform sends that this package does not know are reported
// as unknown and skipped by the caller.
package event
