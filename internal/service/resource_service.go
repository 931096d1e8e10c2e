package service

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"campus_api/internal/model"
	"campus_api/internal/query"
	"campus_api/internal/repository"
	"campus_api/internal/schema"

	"golang.org/x/sync/errgroup"
)

// Scope holds server-imposed equality filters, such as the owner of a record.
// Scope entries override user filters on the same field.
type Scope map[string]any

// ResourceService runs the query pipeline and the CRUD operations shared by every entity.
type ResourceService struct {
	store repository.Store
	opts  query.Options
}

// NewResourceService creates a new ResourceService
func NewResourceService(store repository.Store, opts query.Options) *ResourceService {
	return &ResourceService{store: store, opts: opts}
}

// List returns one page of entity records matching params within scope.
func (s *ResourceService) List(ctx context.Context, entity *schema.Entity, params url.Values, scope Scope) (*model.Page, error) {
	spec, err := query.Parse(entity, params, s.opts)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx, spec, scope)
}

// Run executes spec within scope. The page and the total are read concurrently.
func (s *ResourceService) Run(ctx context.Context, spec query.Spec, scope Scope) (*model.Page, error) {
	keys := make([]string, 0, len(scope))
	for k := range scope {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		spec = spec.Enforce(k, scope[k])
	}

	coll := s.store.Collection(spec.Entity())
	var (
		records []model.Record
		total   int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = coll.Find(gctx, spec)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = coll.Count(gctx, spec)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", spec.Entity().Name, err)
	}
	if records == nil {
		records = []model.Record{}
	}

	return &model.Page{
		Data:    records,
		Page:    spec.Page(),
		Limit:   spec.Take(),
		Total:   total,
		Results: len(records),
	}, nil
}

// Get returns a live record by id.
func (s *ResourceService) Get(ctx context.Context, entity *schema.Entity, id string) (model.Record, error) {
	rec, err := s.store.Collection(entity).Get(ctx, id, repository.ExcludeDeleted)
	return rec, translate(err)
}

// Create stores rec as a new record.
func (s *ResourceService) Create(ctx context.Context, entity *schema.Entity, rec model.Record) (model.Record, error) {
	out, err := s.store.Collection(entity).Insert(ctx, rec)
	return out, translate(err)
}

// Update applies changes to a live record.
func (s *ResourceService) Update(ctx context.Context, entity *schema.Entity, id string, changes model.Record) (model.Record, error) {
	out, err := s.store.Collection(entity).Update(ctx, id, changes, repository.ExcludeDeleted)
	return out, translate(err)
}

// Delete soft-deletes a live record.
func (s *ResourceService) Delete(ctx context.Context, entity *schema.Entity, id string) error {
	return translate(s.store.Collection(entity).SoftDelete(ctx, id))
}

// GetOwned returns a live record when one of ownerFields holds who's subject.
// Admins may read any record.
func (s *ResourceService) GetOwned(ctx context.Context, entity *schema.Entity, id string, who model.Identity, ownerFields ...string) (model.Record, error) {
	rec, err := s.Get(ctx, entity, id)
	if err != nil {
		return nil, err
	}
	if !owns(rec, who, ownerFields...) {
		return nil, ErrForbidden
	}
	return rec, nil
}

func owns(rec model.Record, who model.Identity, ownerFields ...string) bool {
	if who.IsAdmin() {
		return true
	}
	for _, f := range ownerFields {
		if v := rec.String(f); v != "" && v == who.Subject {
			return true
		}
	}
	return false
}

// UpdateOwned applies changes to a live record owned by who.
func (s *ResourceService) UpdateOwned(ctx context.Context, entity *schema.Entity, id string, who model.Identity, changes model.Record, ownerFields ...string) (model.Record, error) {
	if _, err := s.GetOwned(ctx, entity, id, who, ownerFields...); err != nil {
		return nil, err
	}
	return s.Update(ctx, entity, id, changes)
}

// DeleteOwned soft-deletes a live record owned by who.
func (s *ResourceService) DeleteOwned(ctx context.Context, entity *schema.Entity, id string, who model.Identity, ownerFields ...string) error {
	if _, err := s.GetOwned(ctx, entity, id, who, ownerFields...); err != nil {
		return err
	}
	return s.Delete(ctx, entity, id)
}

// transition moves a record from one of the from values of field to to, failing
// with ErrInvalidTransition when a concurrent change got there first.
func (s *ResourceService) transition(ctx context.Context, entity *schema.Entity, rec model.Record, field, to string, extra model.Record, from ...string) (model.Record, error) {
	current := rec.String(field)
	allowed := false
	for _, f := range from {
		if f == current {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, ErrInvalidTransition
	}
	changes := model.Record{field: to}
	for k, v := range extra {
		changes[k] = v
	}
	out, err := s.store.Collection(entity).CompareAndUpdate(ctx, rec.ID(), model.Record{field: current}, changes)
	return out, translate(err)
}
