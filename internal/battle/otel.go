package battle

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/battlegrid/engine/internal/battle"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
