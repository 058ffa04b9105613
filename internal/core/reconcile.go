package core

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/JonMunkholm/tblimport/internal/store"
)

var errShapeMismatch = errors.New("table shape differs")

// Reconcile decides whether the run may replace the table named in rc. It
// only reads from the store: the existing table is opened for read and closed
// again before the decision is returned.
func Reconcile(ctx context.Context, lib store.Library, rc *RunContext) (Outcome, error) {
	const op = "reconcile"

	err := lib.Open(ctx, rc.StoreTable, store.OpenRead)
	switch {
	case errors.Is(err, store.ErrNotExist):
		return NewTable, nil
	case err != nil:
		return 0, newError(KindStore, op+" open", "", err)
	}

	shape, err := lib.Query(ctx, rc.StoreTable)
	if closeErr := lib.Close(ctx, rc.StoreTable); err == nil && closeErr != nil {
		err = closeErr
	}
	if err != nil {
		return 0, newError(KindStore, op+" query", "", err)
	}

	if SameShape(rc.Schema.KeyNames(), rc.Schema.ValueNames(), shape) {
		return ReplaceSameShape, nil
	}
	if rc.Params.Force {
		rc.Logger().Warn("table shape differs, replacing anyway",
			"table", rc.Schema.Identity.Table, "existing_keys", shape.Keys, "existing_names", shape.Names)
		return ReplaceForced, nil
	}
	return RejectMismatch, &Error{
		Kind:   KindMismatch,
		Op:     op,
		RC:     8,
		Reason: "SHAPE",
		Err: fmt.Errorf("%w from existing table %s; rerun with FORCE to replace it",
			errShapeMismatch, rc.Schema.Identity),
	}
}

// SameShape compares field name sets, ignoring order.
func SameShape(keys, values []string, existing store.Shape) bool {
	return equalSorted(keys, store.UnwrapList(existing.Keys)) &&
		equalSorted(values, store.UnwrapList(existing.Names))
}

func equalSorted(a, b []string) bool {
	a = slices.Clone(a)
	b = slices.Clone(b)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(a, b)
}
