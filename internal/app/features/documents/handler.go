// Package documents serves the generic document API: create, read, update
// and delete of arbitrary documents in any tenant's collection.
//
// Endpoints (relative to /{tenant}):
//   - POST   /{collection}           bulk write (insert new, upsert existing)
//   - GET    /{collection}           list, optional ?filter=&page=&limit=
//   - GET    /{collection}/{id}      fetch one
//   - PUT    /{collection}/{id}      partial update
//   - DELETE /{collection}/{id}      delete one
//   - DELETE /{collection}/*         delete every match of ?filter=
//
// Filters are MongoDB query documents passed through to storage as-is.
package documents

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/stratadoc/internal/app/store/collections"
	docstore "github.com/dalemusser/stratadoc/internal/app/store/documents"
	"github.com/dalemusser/stratadoc/internal/app/system/apierr"
	"github.com/dalemusser/stratadoc/internal/app/system/auth"
	"github.com/dalemusser/stratadoc/internal/app/system/filter"
	"github.com/dalemusser/stratadoc/internal/app/system/jsonutil"
	"github.com/dalemusser/stratadoc/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// BulkDeleteID in place of a document id deletes by filter.
const BulkDeleteID = "*"

// maxPageLimit caps ?limit= on list requests.
const maxPageLimit = 1000

// Handler serves the document routes.
type Handler struct {
	resolver     *collections.Resolver
	svc          docstore.Service
	logger       *zap.Logger
	maxBatch     int
	defaultLimit int64
}

// NewHandler creates a document Handler. maxBatch <= 0 disables the batch
// size check; defaultLimit is the page size when ?limit= is absent.
func NewHandler(resolver *collections.Resolver, svc docstore.Service, logger *zap.Logger, maxBatch int, defaultLimit int64) *Handler {
	if defaultLimit <= 0 {
		defaultLimit = 20
	}
	return &Handler{
		resolver:     resolver,
		svc:          svc,
		logger:       logger,
		maxBatch:     maxBatch,
		defaultLimit: defaultLimit,
	}
}

func (h *Handler) handle(r *http.Request) (*collections.Handle, error) {
	return h.resolver.ResolveDocuments(chi.URLParam(r, auth.TenantParam), chi.URLParam(r, "collection"))
}

// writeErr logs unexpected failures and renders the error envelope.
func (h *Handler) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	if apierr.IsClientError(err) {
		h.logger.Debug("document request rejected",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	} else {
		h.logger.Error("document request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	apierr.Write(w, err)
}

// Create handles POST /{collection}. The body is an array of documents; items
// without _id are inserted, items with _id replace (or create) that document.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	hd, err := h.handle(r)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	docs, err := jsonutil.DecodeDocuments(r)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	if h.maxBatch > 0 && len(docs) > h.maxBatch {
		h.writeErr(w, r, apierr.Validationf("batch of %d exceeds the limit of %d", len(docs), h.maxBatch))
		return
	}
	batch, err := docstore.ParseBatch(docs, hd.Schema)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.logger, "reconcile")
	defer cancel()

	res, err := h.svc.Reconcile(ctx, hd, batch)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	inserted := res.Inserted
	if inserted == nil {
		inserted = []bson.M{}
	}
	jsonutil.OK(w, BulkResponse{
		Embedded: inserted,
		Counts: Counts{
			Inserted: res.InsertedCount,
			Modified: res.ModifiedCount,
			Matched:  res.MatchedCount,
		},
	})
}

// List handles GET /{collection}.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	hd, err := h.handle(r)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	q := r.URL.Query()
	pred, err := filter.ForRead(q.Get("filter"), q.Has("filter"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	page, err := intParam(q.Get("page"), 1)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	limit, err := intParam(q.Get("limit"), h.defaultLimit)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	docs, total, err := h.svc.Find(r.Context(), hd, pred, page, limit)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	if docs == nil {
		docs = []bson.M{}
	}
	jsonutil.OK(w, ListResponse{Embedded: docs, Count: total})
}

// Get handles GET /{collection}/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	hd, err := h.handle(r)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	doc, err := h.svc.FindOne(r.Context(), hd, chi.URLParam(r, "id"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	jsonutil.OK(w, doc)
}

// Update handles PUT /{collection}/{id}: the body's fields are set on the
// document and the updated document is returned.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	hd, err := h.handle(r)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	partial, err := jsonutil.DecodeDocument(r)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	doc, err := h.svc.UpdateOne(r.Context(), hd, chi.URLParam(r, "id"), partial)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	jsonutil.OK(w, doc)
}

// Delete handles DELETE /{collection}/{id}, and DELETE /{collection}/* for
// deletion by filter. Without a filter the bulk form deletes nothing.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	hd, err := h.handle(r)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	id := chi.URLParam(r, "id")
	if id != BulkDeleteID {
		doc, err := h.svc.DeleteOne(r.Context(), hd, id)
		if err != nil {
			h.writeErr(w, r, err)
			return
		}
		jsonutil.OK(w, doc)
		return
	}

	q := r.URL.Query()
	pred, err := filter.ForDelete(q.Get("filter"), q.Has("filter"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.logger, "delete_many")
	defer cancel()
	n, err := h.svc.DeleteMany(ctx, hd, pred)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	if n > 0 {
		h.logger.Info("bulk delete",
			zap.String("tenant", hd.Tenant),
			zap.String("collection", hd.Name),
			zap.Int64("deleted", n))
	}
	jsonutil.OK(w, Counts{Deleted: n})
}

func intParam(raw string, def int64) (int64, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 1 {
		return 0, apierr.Validationf("%q is not a positive integer", raw)
	}
	return n, nil
}
