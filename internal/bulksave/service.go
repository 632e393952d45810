package bulksave

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/IntelliTect/Coalesce-sub010/internal/crud"
	"github.com/IntelliTect/Coalesce-sub010/internal/logger"
	"github.com/IntelliTect/Coalesce-sub010/internal/model"
	"github.com/IntelliTect/Coalesce-sub010/internal/security"
	"github.com/IntelliTect/Coalesce-sub010/internal/store"
)

// Service executes bulk saves.
type Service struct {
	catalog *model.Catalog
	factory *crud.Factory
	tx      *store.Manager
	metrics *Metrics
}

func NewService(cat *model.Catalog, factory *crud.Factory, tx *store.Manager, metrics *Metrics) *Service {
	return &Service{catalog: cat, factory: factory, tx: tx, metrics: metrics}
}

func (s *Service) Metrics() *Metrics {
	return s.metrics
}

// abortError carries a failed result out of the transaction so that it
// rolls back.
type abortError struct {
	result crud.ItemResult
}

func (e *abortError) Error() string {
	return "bulk save aborted: " + e.result.Message
}

// Execute runs the batch in one transaction: authorization of every item,
// then deletes in submitted order, then saves with reference resolution.
// Business failures come back as a failed result and leave nothing behind.
// An *UnresolvableError or an infrastructure error is returned as err.
//
// rootType is the type named by the route, if any; an item of that type
// marked as root is reloaded and returned as the result object.
func (s *Service) Execute(ctx context.Context, req *Request, params crud.Parameters, rootType string) (crud.ItemResult, error) {
	started := time.Now()
	principal := security.FromContext(ctx)
	logger.Debug("bulk_save_start", logger.Fields(ctx, map[string]any{
		"items":     req.size(),
		"root_type": rootType,
		"principal": principal.Subject,
	}))

	var (
		result crud.ItemResult
		passes int
	)
	err := s.tx.WithTransaction(ctx, func(tx *sql.Tx) error {
		if res := s.initialize(req, params); res != nil {
			return &abortError{result: *res}
		}

		// 1. security for the whole batch
		root, denied, err := authorize(ctx, tx, req, principal, rootType)
		if err != nil {
			return err
		}
		if denied != nil {
			return &abortError{result: *denied}
		}

		// 2. deletes, before any save can resolve against a deleted key
		for _, it := range req.Delete {
			key := it.PrimaryKey()
			if key == nil {
				return fmt.Errorf("unable to delete %s item: primary key was not provided", it.Type)
			}
			res, err := it.behaviors.Delete(ctx, tx, key, params)
			if err != nil {
				return fmt.Errorf("delete %s: %w", it.Type, err)
			}
			if !res.WasSuccessful {
				it.markFailed(res.Message)
				return &abortError{result: res}
			}
		}

		// 3. saves
		var failed *crud.ItemResult
		passes, failed, err = saveAll(ctx, tx, req, params)
		if err != nil {
			return err
		}
		if failed != nil {
			return &abortError{result: *failed}
		}

		result, err = s.loadRoot(ctx, tx, root, rootType, principal, params)
		if err != nil {
			return err
		}
		result.RefMap = refMap(req)
		return nil
	})

	var (
		abort        *abortError
		unresolvable *UnresolvableError
	)
	switch {
	case err == nil:
		s.metrics.observeRun(OutcomeSuccess, passes, started)
		s.metrics.observeCommitted(len(req.Save), len(req.Delete))
		logger.Info("bulk_save_committed", logger.Fields(ctx, map[string]any{
			"saved":   len(req.Save),
			"deleted": len(req.Delete),
			"passes":  passes,
		}))
		return result, nil

	case errors.As(err, &abort):
		s.metrics.observeRun(OutcomeFailed, passes, started)
		logger.Warn("bulk_save_rejected", logger.Fields(ctx, map[string]any{
			"message": abort.result.Message,
		}))
		return abort.result, nil

	case errors.As(err, &unresolvable):
		s.metrics.observeRun(OutcomeUnresolvable, passes, started)
		logger.Error("bulk_save_unresolvable", logger.Fields(ctx, map[string]any{
			"error":  err.Error(),
			"passes": passes,
		}))
		return crud.ItemResult{}, err

	default:
		s.metrics.observeRun(OutcomeError, passes, started)
		return crud.ItemResult{}, err
	}
}

// initialize binds behaviors to every item.
func (s *Service) initialize(req *Request, params crud.Parameters) *crud.ItemResult {
	for _, list := range [][]*Item{req.Save, req.Delete, req.None} {
		for _, it := range list {
			it.state = Pending
			it.reason = ""
			b, err := s.factory.For(it.Binding, params)
			if err != nil {
				res := crud.Failure(fmt.Sprintf("Data source '%s' not found.", params.DataSource))
				return &res
			}
			it.behaviors = b
		}
	}
	return nil
}

// loadRoot reloads the root item through the route type's behaviors. The
// object is left out when the principal may not read that type.
func (s *Service) loadRoot(ctx context.Context, q store.Querier, root *Item, rootType string, p security.Principal, params crud.Parameters) (crud.ItemResult, error) {
	if root == nil || rootType == "" || root.PrimaryKey() == nil {
		return crud.Success(nil), nil
	}
	binding, err := s.catalog.Bind(rootType)
	if err != nil {
		return crud.ItemResult{}, err
	}
	if !security.IsReadAllowed(binding.DeclaredFor(), p) {
		logger.Debug("bulk_save_root_hidden", logger.Fields(ctx, map[string]any{"type": rootType}))
		return crud.Success(nil), nil
	}
	b, err := s.factory.For(binding, params)
	if err != nil {
		return crud.ItemResult{}, err
	}
	return b.Get(ctx, q, root.PrimaryKey(), params)
}

func refMap(req *Request) map[int]any {
	m := map[int]any{}
	for _, it := range req.Save {
		if ref, ok := it.PrimaryRef(); ok {
			m[ref] = it.PrimaryKey()
		}
	}
	if len(m) == 0 {
		return nil
	}
	return m
}
