// Package server exposes identification over HTTP for `src2purl serve`.
//
// Routes:
//
//	POST /v1/identify  run one identification, body api.IdentifyRequest
//	GET  /healthz      liveness
//	GET  /metrics      Prometheus exposition of the process registry
//
// Every request builds its own Identifier so per-request overrides and the
// content-ID memo never leak between callers. Provider clients, the gateway
// permit pool and the response cache are shared through one provider
// registry owned by the caller.
package server
