// Package gateway is the shared network discipline for every provider.
//
// A Gateway owns the permit pool that bounds in-flight calls across all
// providers, the response cache, and the HTTP client. Each provider gets an
// Endpoint carrying its own minimum-interval throttle. Endpoint.Do runs one
// logical call through cache lookup, permit, throttle, send, status
// classification, and exponential-backoff retry; permits are released before
// any backoff sleep so a rate-limited provider never starves the others.
//
// Doer exposes the same permit and throttle to SDK clients (the OpenAI
// client) that issue their own HTTP requests.
package gateway
