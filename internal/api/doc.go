// Package api hosts the HTTP server, middleware, and REST handlers of the
// serving process. Notable routes:
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/collections for the indexed icon sets.
//   - GET /v1/collections/{prefix} for one artifact, with /icons?icons=a,b
//     for a subset and /{name}.svg for a single rendered icon.
package api
