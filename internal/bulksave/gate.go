package bulksave

import (
	"context"
	"fmt"
	"strings"

	"github.com/IntelliTect/Coalesce-sub010/internal/crud"
	"github.com/IntelliTect/Coalesce-sub010/internal/security"
	"github.com/IntelliTect/Coalesce-sub010/internal/store"
)

// authorize checks every item of the batch before anything is written.
// It returns the root item, if one was marked, and a failed result for the
// first item the principal may not act on.
func authorize(ctx context.Context, q store.Querier, req *Request, p security.Principal, rootType string) (*Item, *crud.ItemResult, error) {
	var root *Item

	for _, it := range req.Save {
		kind, err := it.behaviors.DetermineSaveKind(ctx, q, it.Data)
		if err != nil {
			return nil, nil, err
		}
		declaredFor := it.Binding.DeclaredFor()
		if kind == crud.Create && !security.IsCreateAllowed(declaredFor, p) {
			return nil, denied("create", declaredFor.DisplayName()), nil
		}
		if kind == crud.Update && !security.IsEditAllowed(declaredFor, p) {
			return nil, denied("edit", declaredFor.DisplayName()), nil
		}

		if root == nil && it.Root && rootType != "" && strings.EqualFold(it.Type, rootType) {
			root = it
		}
	}

	for _, it := range req.Delete {
		declaredFor := it.Binding.DeclaredFor()
		if !security.IsDeleteAllowed(declaredFor, p) {
			return nil, denied("delete", declaredFor.DisplayName()), nil
		}
	}

	// a root may also be declared by an item that takes no action
	if root == nil {
		for _, it := range req.None {
			if it.Root {
				root = it
				break
			}
		}
	}
	return root, nil, nil
}

func denied(action, displayName string) *crud.ItemResult {
	res := crud.Failure(fmt.Sprintf("You are not permitted to %s %s items.", action, displayName))
	return &res
}
