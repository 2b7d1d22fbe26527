// internal/app/store/collections/resolver.go

// Package collections resolves a (tenant, collection) address to a live
// MongoDB collection handle.
//
// A tenant is a MongoDB database and a collection name is a collection in
// that database, so two addresses share storage only when both parts match.
// Handles are built on every call from the shared client; nothing is cached
// per tenant.
package collections

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/dalemusser/stratadoc/internal/app/system/apierr"
	"github.com/dalemusser/stratadoc/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Schema names the reserved fields of documents in a collection. It is not a
// validator: everything else in a document is opaque.
type Schema struct {
	IDField      string
	VersionField string
}

// CommonSchema is used for every generic document collection.
var CommonSchema = Schema{IDField: "_id", VersionField: "updatedAt"}

// Reserved reports whether field is owned by the service.
func (s Schema) Reserved(field string) bool {
	return field == s.IDField || field == s.VersionField
}

// Handle is a resolved collection. It is cheap and request-scoped.
type Handle struct {
	Tenant string
	Name   string
	Schema Schema

	coll *mongo.Collection
}

// Collection returns the driver collection behind the handle.
func (h *Handle) Collection() *mongo.Collection { return h.coll }

// Resolver builds handles from the shared client.
type Resolver struct {
	client   *mongo.Client
	reserved []string
}

// New creates a Resolver. Databases named in reserved (the service
// database) are never resolved as tenants.
func New(client *mongo.Client, reserved ...string) *Resolver {
	return &Resolver{client: client, reserved: reserved}
}

func (r *Resolver) checkTenant(tenant string) error {
	if err := ValidateTenant(tenant); err != nil {
		return err
	}
	if slices.Contains(r.reserved, tenant) {
		return fmt.Errorf("%w: tenant %q is reserved", apierr.ErrResolution, tenant)
	}
	return nil
}

// maxTenantLen is MongoDB's limit on database names.
const maxTenantLen = 63

// ValidateTenant checks that tenant is usable as a MongoDB database name.
func ValidateTenant(tenant string) error {
	if tenant == "" {
		return fmt.Errorf("%w: empty tenant", apierr.ErrResolution)
	}
	if len(tenant) > maxTenantLen {
		return fmt.Errorf("%w: tenant name longer than %d bytes", apierr.ErrResolution, maxTenantLen)
	}
	if strings.ContainsAny(tenant, "/\\. \"$*<>:|?\x00") {
		return fmt.Errorf("%w: tenant %q contains a forbidden character", apierr.ErrResolution, tenant)
	}
	switch tenant {
	case "admin", "local", "config":
		return fmt.Errorf("%w: tenant %q is reserved", apierr.ErrResolution, tenant)
	}
	return nil
}

// ValidateCollection checks that name is usable as a MongoDB collection name.
func ValidateCollection(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty collection", apierr.ErrResolution)
	}
	if strings.ContainsAny(name, "$\x00") {
		return fmt.Errorf("%w: collection %q contains a forbidden character", apierr.ErrResolution, name)
	}
	if strings.HasPrefix(name, "system.") {
		return fmt.Errorf("%w: collection %q is reserved", apierr.ErrResolution, name)
	}
	return nil
}

// Resolve returns the handle for (tenant, name).
func (r *Resolver) Resolve(tenant, name string, schema Schema) (*Handle, error) {
	if err := r.checkTenant(tenant); err != nil {
		return nil, err
	}
	if err := ValidateCollection(name); err != nil {
		return nil, err
	}
	return &Handle{
		Tenant: tenant,
		Name:   name,
		Schema: schema,
		coll:   r.client.Database(tenant).Collection(name),
	}, nil
}

// ResolveDocuments resolves a collection addressed through the generic
// document routes. The tenant's users collection is not addressable there.
func (r *Resolver) ResolveDocuments(tenant, name string) (*Handle, error) {
	if name == models.UsersCollection {
		return nil, fmt.Errorf("%w: collection %q is reserved", apierr.ErrResolution, name)
	}
	return r.Resolve(tenant, name, CommonSchema)
}

// ResolveUsers returns the tenant's users collection.
func (r *Resolver) ResolveUsers(tenant string) (*Handle, error) {
	return r.Resolve(tenant, models.UsersCollection, Schema{IDField: "_id", VersionField: "updated_at"})
}

// Database returns the tenant's database after validating the name.
func (r *Resolver) Database(tenant string) (*mongo.Database, error) {
	if err := r.checkTenant(tenant); err != nil {
		return nil, err
	}
	return r.client.Database(tenant), nil
}

// Tenants lists the databases that could be tenants: every database whose
// name passes ValidateTenant and is not reserved. skip names further
// databases to leave out.
func (r *Resolver) Tenants(ctx context.Context, skip ...string) ([]string, error) {
	names, err := r.client.ListDatabaseNames(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		if r.checkTenant(n) != nil || slices.Contains(skip, n) {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}
