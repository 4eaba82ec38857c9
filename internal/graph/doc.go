// Package graph is a client for the Messenger Platform Graph API.
//
// Client implements chat.Transport (Send API messages, sender actions and
// user profile lookups) and bot.ProfileConfigurer (messenger profile
// fields). Every request waits on a token bucket limiter first so a busy
// bot stays under the page's send quota.
//
// Failed calls return *Error carrying the HTTP status and the platform's
// error object. Nothing is retried; IsRateLimited tells callers when
// backing off is worthwhile.
//
// When an app secret is configured every request carries an
// appsecret_proof derived from the page token.
package graph
