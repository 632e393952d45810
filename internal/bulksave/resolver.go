package bulksave

import (
	"context"
	"fmt"
	"sort"

	"github.com/IntelliTect/Coalesce-sub010/internal/crud"
	"github.com/IntelliTect/Coalesce-sub010/internal/store"
)

// saveAll saves every item of req.Save, resolving references between items
// as their principals acquire keys. Each pass scans the pending items in
// order; an item whose references all resolve is saved at once, so later
// items in the same pass can see its key. A pass that saves nothing ends
// with *UnresolvableError.
//
// Two new items that reference each other are unresolvable even when the
// foreign keys are nullable.
// TODO: insert such pairs with null keys and patch them afterwards.
func saveAll(ctx context.Context, q store.Querier, req *Request, params crud.Parameters) (passes int, failed *crud.ItemResult, err error) {
	lookup := req.RefsLookup()
	remaining := append([]*Item(nil), req.Save...)

	for len(remaining) > 0 {
		passes++
		startCount := len(remaining)
		pending := remaining[:0]

		for _, it := range remaining {
			if !resolveRefs(it, lookup) {
				pending = append(pending, it)
				continue
			}

			res, err := it.behaviors.Save(ctx, q, it.Data, params)
			if err != nil {
				return passes, nil, fmt.Errorf("save %s: %w", it.Type, err)
			}
			if !res.WasSuccessful {
				it.markFailed(res.Message)
				return passes, &res, nil
			}
			it.markSaved(res.Object)
		}

		if len(pending) == startCount {
			return passes, nil, &UnresolvableError{Items: pending}
		}
		remaining = pending
	}
	return passes, nil, nil
}

// resolveRefs writes the keys of already saved principals into the item's
// foreign keys. It reports false when some reference is not resolvable yet.
// Refs that do not name a client-writable foreign key are ignored.
func resolveRefs(it *Item, lookup map[int]*Item) bool {
	names := make([]string, 0, len(it.Refs))
	for name := range it.Refs {
		names = append(names, name)
	}
	sort.Strings(names)

	primaryRefName := it.PrimaryRefName()
	for _, name := range names {
		if name == primaryRefName {
			continue
		}
		prop := it.Binding.Dto.PropertyByName(name)
		if prop == nil || !prop.IsForeignKey() || !prop.IsClientWritable() {
			continue
		}

		principal := lookup[it.Refs[name]]
		if principal == nil {
			return false
		}
		key := principal.PrimaryKey()
		if key == nil {
			return false
		}
		it.Data[prop.JSONName] = key
	}
	return true
}
