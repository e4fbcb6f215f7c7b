// Package metrics defines and registers the Prometheus collectors exported
// on the diagnostics endpoint.
//
// Collectors are package-level and registered with the default registry at
// init, so any package can increment them without wiring.
package metrics
