// Package webhook serves the Messenger Platform webhook.
//
// GET requests answer the subscription handshake: when hub.mode is
// "subscribe" and hub.verify_token matches, hub.challenge is echoed back.
//
// POST requests carry event batches. When an app secret is configured the
// X-Hub-Signature-256 header must hold the HMAC-SHA256 of the body, or the
// request is rejected with 403. A body that is not a batch gets 400.
// Everything else is acknowledged with 200 right away and handled on a
// background goroutine, since the platform retries slow or failed
// deliveries; handler errors are logged, never reported to the platform.
package webhook
