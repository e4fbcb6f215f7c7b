// Package diagnostics serves a small local HTTP API for operators:
//
//	GET /healthz   component health, 503 when any check fails
//	GET /status    the status snapshot sent to the control server
//	GET /light     {"on": bool}
//	GET /metrics   Prometheus exposition
//
// It is meant to listen on loopback and carries no authentication.
package diagnostics
