package otel

import otelMetric "go.opentelemetry.io/otel/metric"

const (
	clientMeterPrefix = "keboola.go.client."
	httpMeterPrefix   = "keboola.go.http."
)

type allMeters struct {
	client meterPair
	http   meterPair
	parse  meterPair
}

// meterPair tracks in flight operations and their duration.
type meterPair struct {
	inFlight otelMetric.Int64UpDownCounter
	duration otelMetric.Float64Histogram
}

func newMeters(meter otelMetric.Meter) *allMeters {
	return &allMeters{
		client: meterPair{
			inFlight: upDownCounter(meter, clientMeterPrefix+"request.in_flight", "HTTP client: in flight requests."),
			duration: histogram(meter, clientMeterPrefix+"request.duration", "HTTP client: requests duration, by the result outcome."),
		},
		http: meterPair{
			inFlight: upDownCounter(meter, httpMeterPrefix+"request.in_flight", "HTTP request: in flight requests."),
			duration: histogram(meter, httpMeterPrefix+"request.duration", "HTTP request: response received duration (without parsing)."),
		},
		parse: meterPair{
			inFlight: upDownCounter(meter, clientMeterPrefix+"request.parse.in_flight", "HTTP client: in flight request parsing."),
			duration: histogram(meter, clientMeterPrefix+"request.parse.duration", "HTTP client: request parse duration."),
		},
	}
}

func upDownCounter(meter otelMetric.Meter, name, desc string) otelMetric.Int64UpDownCounter {
	return mustInstrument(meter.Int64UpDownCounter(name, otelMetric.WithDescription(desc)))
}

func histogram(meter otelMetric.Meter, name, desc string) otelMetric.Float64Histogram {
	return mustInstrument(meter.Float64Histogram(name, otelMetric.WithDescription(desc), otelMetric.WithUnit("ms")))
}

func mustInstrument[T any](instrument T, err error) T {
	if err != nil {
		panic(err)
	}
	return instrument
}
