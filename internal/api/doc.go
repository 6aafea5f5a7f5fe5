// Package api hosts the HTTP server, middleware, and REST handlers for the
// catalog. Notable routes:
//   - GET / lists the available endpoints.
//   - GET /healthz and /readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /api/chart/{chartType}, /api/song/{songId} and /api/album/{albumId}
//     serve cached catalog records as JSON.
package api
