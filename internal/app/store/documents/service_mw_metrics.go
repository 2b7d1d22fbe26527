package documents

import (
	"context"
	"time"

	"github.com/dalemusser/stratadoc/internal/app/store/collections"
	"github.com/dalemusser/stratadoc/internal/app/system/apierr"
	"github.com/dalemusser/stratadoc/internal/app/system/filter"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson"
)

type mwMetrics struct {
	// RED metrics
	reqs *prometheus.CounterVec
	errs *prometheus.CounterVec
	durs *prometheus.HistogramVec

	// rows written or removed, by operation
	docs *prometheus.CounterVec

	next Service
}

var _ Service = (*mwMetrics)(nil)

// MiddlewareMetrics wraps a Service with call, error, latency and document
// counters registered on reg.
func MiddlewareMetrics(reg prometheus.Registerer) func(Service) Service {
	const namespace = "service"
	const subsystem = "documents"

	reqs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "call_total",
		Help:      "Number of calls to the document service",
	}, []string{"method"})

	errs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "error_total",
		Help:      "Number of errors returned by the document service",
	}, []string{"method", "code"})

	durs := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "duration_seconds",
		Help:      "Duration of document service calls",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	docs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "documents_total",
		Help:      "Documents affected by the document service",
	}, []string{"op"})

	reg.MustRegister(reqs, errs, durs, docs)

	return func(svc Service) Service {
		return &mwMetrics{
			reqs: reqs,
			errs: errs,
			durs: durs,
			docs: docs,
			next: svc,
		}
	}
}

func (mw *mwMetrics) Reconcile(ctx context.Context, h *collections.Handle, batch Batch) (Result, error) {
	m := mw.updateMetrics("reconcile")
	res, err := mw.next.Reconcile(ctx, h, batch)
	mw.docs.With(prometheus.Labels{"op": "inserted"}).Add(float64(res.InsertedCount))
	mw.docs.With(prometheus.Labels{"op": "upserted"}).Add(float64(res.MatchedCount))
	return res, m(err)
}

func (mw *mwMetrics) FindOne(ctx context.Context, h *collections.Handle, id string) (bson.M, error) {
	m := mw.updateMetrics("find_one")
	doc, err := mw.next.FindOne(ctx, h, id)
	return doc, m(err)
}

func (mw *mwMetrics) Find(ctx context.Context, h *collections.Handle, pred filter.Predicate, page, limit int64) ([]bson.M, int64, error) {
	m := mw.updateMetrics("find")
	docs, total, err := mw.next.Find(ctx, h, pred, page, limit)
	return docs, total, m(err)
}

func (mw *mwMetrics) UpdateOne(ctx context.Context, h *collections.Handle, id string, partial bson.M) (bson.M, error) {
	m := mw.updateMetrics("update_one")
	doc, err := mw.next.UpdateOne(ctx, h, id, partial)
	return doc, m(err)
}

func (mw *mwMetrics) DeleteOne(ctx context.Context, h *collections.Handle, id string) (bson.M, error) {
	m := mw.updateMetrics("delete_one")
	doc, err := mw.next.DeleteOne(ctx, h, id)
	if err == nil {
		mw.docs.With(prometheus.Labels{"op": "deleted"}).Inc()
	}
	return doc, m(err)
}

func (mw *mwMetrics) DeleteMany(ctx context.Context, h *collections.Handle, pred filter.Predicate) (int64, error) {
	m := mw.updateMetrics("delete_many")
	n, err := mw.next.DeleteMany(ctx, h, pred)
	mw.docs.With(prometheus.Labels{"op": "deleted"}).Add(float64(n))
	return n, m(err)
}

func (mw *mwMetrics) updateMetrics(method string) func(error) error {
	start := time.Now()
	return func(err error) error {
		mw.reqs.With(prometheus.Labels{"method": method}).Inc()

		if err != nil {
			mw.errs.With(prometheus.Labels{
				"method": method,
				"code":   apierr.Kind(err),
			}).Inc()
		}

		mw.durs.With(prometheus.Labels{"method": method}).Observe(time.Since(start).Seconds())

		return err
	}
}
