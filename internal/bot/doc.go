// Package bot is the dispatcher that ties sessions, conversations and the
// router together.
//
// # Intake
//
// A webhook batch is normalized into events and handled in order. For each
// event the bot:
//
//  1. resolves the user's session, creating it on first contact;
//  2. settles delivery and read callbacks parked on that session;
//  3. offers the event to the user's conversation if it waits for an answer;
//  4. otherwise dispatches it to the router.
//
// Echoes of the page's own messages are dropped unless broadcast echoes are
// enabled, and even then they never answer a conversation.
//
// # Sending
//
// The Say and Send* helpers resolve a session by user id and delegate to
// it. They add no state of their own.
//
// # Profile
//
// Greeting text, the get started button and the persistent menu are set
// through a transport that also implements ProfileConfigurer.
//
// # Ledger
//
// WithLedger records each inbound event with its outcome and each outbound
// send. Ledger failures are logged and never change dispatch.
package bot
