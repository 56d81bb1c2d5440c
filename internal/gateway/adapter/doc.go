// Package adapter contains implementations of interfaces defined in app.
// Redis quota/cache adapters, the DynamoDB instance store, and the resilient
// upstream HTTP client live here.
package adapter

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("gateway/adapter")
