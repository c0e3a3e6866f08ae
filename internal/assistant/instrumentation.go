package assistant

import (
	"go.opentelemetry.io/otel"
)

const scopeName = "github.com/reinhart/mcpdemo/internal/assistant"

var tracer = otel.Tracer(scopeName)
