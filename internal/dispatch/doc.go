// Package dispatch performs the JSON round trips between readalong and the
// reading server. A Dispatcher posts a JSON payload to an endpoint and decodes
// the JSON reply; by default it makes exactly one attempt with no timeout,
// and a timeout, a single retry and a circuit breaker can be switched on.
package dispatch
