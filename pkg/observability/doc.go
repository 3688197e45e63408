/*
Package observability turns engine and controller lifecycle hooks into
structured logs and Prometheus metrics.
*/
package observability
