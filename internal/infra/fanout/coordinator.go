// Package fanout coordinates batches of independent catalog lookups. Each
// batch launches one unit of work per input index and assembles results in
// input order, regardless of completion order. The two operations carry
// deliberately different failure policies: resolving names is
// all-or-nothing, fetching docs is best-effort per item.
package fanout

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"context7mcp/internal/domain"
	"context7mcp/internal/infra/catalog"
	"context7mcp/internal/infra/telemetry"
)

// CatalogAPI is the slice of the catalog client the coordinator needs.
type CatalogAPI interface {
	Search(ctx context.Context, name, clientIP string) (domain.SearchResult, error)
	FetchDocs(ctx context.Context, req domain.DocRequest, clientIP string) (string, bool, error)
}

type Coordinator struct {
	catalog       CatalogAPI
	maxConcurrent int
	logger        *zap.Logger
	metrics       *telemetry.PrometheusMetrics
	tracer        trace.Tracer
}

func NewCoordinator(api CatalogAPI, cfg domain.FanOutConfig, metrics *telemetry.PrometheusMetrics, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = domain.DefaultFanOutMaxConcurrent
	}
	return &Coordinator{
		catalog:       api,
		maxConcurrent: maxConcurrent,
		logger:        logger.Named("fanout"),
		metrics:       metrics,
		tracer:        telemetry.Tracer(),
	}
}

// ResolveMany searches one name per index concurrently and returns the
// formatted summaries in input order. Any name with zero hits fails the
// whole batch: in-flight siblings are cancelled and completed results are
// discarded.
func (c *Coordinator) ResolveMany(ctx context.Context, names []string, clientIP string) ([]string, error) {
	ctx, span := c.tracer.Start(ctx, "fanout.resolve_many",
		trace.WithAttributes(attribute.Int("fanout.batch_size", len(names))))
	defer span.End()

	batchID := uuid.NewString()
	c.logger.Debug("resolving library names",
		zap.String("batch_id", batchID), zap.Int("count", len(names)))
	c.metrics.ObserveBatch("resolve", len(names))

	results := make([]string, len(names))
	p := pool.New().
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError().
		WithMaxGoroutines(c.maxConcurrent)

	for i, name := range names {
		p.Go(func(ctx context.Context) error {
			res, err := c.catalog.Search(ctx, name, clientIP)
			if err != nil {
				return domain.Wrap(domain.CodeUnavailable, "fanout.ResolveMany", err)
			}
			if len(res.Results) == 0 {
				return domain.E(domain.CodeNotFound, "fanout.ResolveMany",
					fmt.Sprintf("No matching library ids found for names %v.", names),
					domain.ErrLibraryNotFound)
			}
			results[i] = catalog.FormatSearchResults(res)
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		reason := "upstream"
		if errors.Is(err, domain.ErrLibraryNotFound) {
			reason = "not_found"
		}
		c.metrics.CountBatchFailure("resolve", reason)
		c.logger.Info("resolve batch failed",
			zap.String("batch_id", batchID), zap.Error(err))
		return nil, err
	}
	return results, nil
}

// FetchMany fetches documentation for equal-length id/token/topic slices
// concurrently, in input order. An absent result becomes a per-index
// placeholder and never fails the sibling fetches; the length check runs
// before anything is dispatched.
func (c *Coordinator) FetchMany(ctx context.Context, batch domain.FetchBatch, clientIP string) ([]string, error) {
	if !batch.Aligned() {
		c.metrics.CountBatchFailure("fetch", "validation")
		return nil, domain.E(domain.CodeInvalidArgument, "fanout.FetchMany", "", domain.ErrBatchLengthMismatch)
	}

	ctx, span := c.tracer.Start(ctx, "fanout.fetch_many",
		trace.WithAttributes(attribute.Int("fanout.batch_size", batch.Len())))
	defer span.End()

	batchID := uuid.NewString()
	c.logger.Debug("fetching library docs",
		zap.String("batch_id", batchID), zap.Int("count", batch.Len()))
	c.metrics.ObserveBatch("fetch", batch.Len())

	results := make([]string, batch.Len())
	p := pool.New().
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError().
		WithMaxGoroutines(c.maxConcurrent)

	for i := range batch.LibraryIDs {
		p.Go(func(ctx context.Context) error {
			req := domain.DocRequest{
				LibraryID: batch.LibraryIDs[i],
				Tokens:    batch.Tokens[i],
				Topic:     batch.Topics[i],
			}
			text, ok, err := c.catalog.FetchDocs(ctx, req, clientIP)
			if err != nil {
				return domain.Wrap(domain.CodeUnavailable, "fanout.FetchMany", err)
			}
			if !ok {
				results[i] = fmt.Sprintf("Documentation not found for %s with topic '%s'.", req.LibraryID, req.Topic)
				return nil
			}
			results[i] = text
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		c.metrics.CountBatchFailure("fetch", "upstream")
		c.logger.Info("fetch batch failed",
			zap.String("batch_id", batchID), zap.Error(err))
		return nil, err
	}
	return results, nil
}
