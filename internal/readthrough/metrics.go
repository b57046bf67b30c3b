package readthrough

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/vupar/vp-cache/internal/readthrough"

type counters struct {
	hits          metric.Int64Counter
	misses        metric.Int64Counter
	bypass        metric.Int64Counter
	storeFailures metric.Int64Counter
}

func newCounters(provider metric.MeterProvider) (*counters, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(meterName)

	hits, err := meter.Int64Counter(
		"vpcache.readthrough.hits",
		metric.WithDescription("Fragments served from the file cache"),
		metric.WithUnit("{fragment}"),
	)
	if err != nil {
		return nil, err
	}
	misses, err := meter.Int64Counter(
		"vpcache.readthrough.misses",
		metric.WithDescription("Fragments rendered because no cache entry existed"),
		metric.WithUnit("{fragment}"),
	)
	if err != nil {
		return nil, err
	}
	bypass, err := meter.Int64Counter(
		"vpcache.readthrough.bypass",
		metric.WithDescription("Fragments rendered without consulting the cache"),
		metric.WithUnit("{fragment}"),
	)
	if err != nil {
		return nil, err
	}
	storeFailures, err := meter.Int64Counter(
		"vpcache.readthrough.store_failures",
		metric.WithDescription("Rendered fragments that could not be written to the cache"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return &counters{hits: hits, misses: misses, bypass: bypass, storeFailures: storeFailures}, nil
}

func (c *counters) record(ctx context.Context, counter metric.Int64Counter, namespace string) {
	counter.Add(ctx, 1, metric.WithAttributes(attribute.String("namespace", namespace)))
}
