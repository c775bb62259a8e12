/*
Package metrics defines and registers murphyd's Prometheus metrics:
registry population (zones, resource definitions, classes, sets),
arbitration run counts and latency, MDB transaction/row counts, and
resolver target update/script execution latency. Metrics are registered
at package init and exposed via Handler() for an HTTP /metrics endpoint.

It also carries a small health-check registry (HealthHandler, ReadyHandler,
LivenessHandler) in the same style: components report in with
RegisterComponent, and readiness requires the "registry" and "resolver"
components to be healthy.
*/
package metrics
