package shipstate

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "github.com/shipcore/shipcore/internal/shipstate"

type instruments struct {
	transitions metric.Int64Counter
	rejections  metric.Int64Counter
}

var (
	instOnce sync.Once
	inst     instruments
)

// metrics lazily creates the counters from the global meter, falling back to
// no-op instruments if creation fails.
func metrics() instruments {
	instOnce.Do(func() {
		m := otel.Meter(instrumentationName)
		var err error
		inst.transitions, err = m.Int64Counter(
			"shipstate.transitions",
			metric.WithDescription("Accepted lifecycle and combat transitions"),
		)
		if err != nil {
			inst.transitions, _ = noop.Meter{}.Int64Counter("shipstate.transitions")
		}
		inst.rejections, err = m.Int64Counter(
			"shipstate.rejections",
			metric.WithDescription("Rejected transitions and flag mutations"),
		)
		if err != nil {
			inst.rejections, _ = noop.Meter{}.Int64Counter("shipstate.rejections")
		}
	})
	return inst
}

func countTransition(kind string) {
	metrics().transitions.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func countRejection(kind string) {
	metrics().rejections.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", kind)))
}
