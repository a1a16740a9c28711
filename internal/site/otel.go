package site

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/san-kum/hybridsim/internal/site"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
