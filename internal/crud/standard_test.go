package crud_test

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/IntelliTect/Coalesce-sub010/internal/crud"
	"github.com/IntelliTect/Coalesce-sub010/internal/db"
	"github.com/IntelliTect/Coalesce-sub010/internal/model"
	"github.com/IntelliTect/Coalesce-sub010/internal/store"
	"github.com/IntelliTect/Coalesce-sub010/internal/testkit"

	"github.com/stretchr/testify/require"
)

func behaviorsFor(t *testing.T, f *crud.Factory, cat *model.Catalog, name string) crud.Behaviors {
	t.Helper()
	b, err := f.For(testkit.Bind(t, cat, name), crud.Parameters{})
	require.NoError(t, err)
	return b
}

func TestDetermineSaveKind(t *testing.T) {
	ctx := context.Background()
	h := testkit.SQLite(t)
	cat := testkit.Catalog(t)
	f := crud.NewFactory(h.Dialect)

	person := behaviorsFor(t, f, cat, "Person")
	for _, data := range []model.Record{{}, {"personId": nil}, {"personId": int64(0)}} {
		kind, err := person.DetermineSaveKind(ctx, h.DB, data)
		require.NoError(t, err)
		require.Equal(t, crud.Create, kind)
	}
	// generated key: no query needed
	kind, err := person.DetermineSaveKind(ctx, h.DB, model.Record{"personId": int64(123)})
	require.NoError(t, err)
	require.Equal(t, crud.Update, kind)

	// client assigned key: existence decides
	tag := behaviorsFor(t, f, cat, "Tag")
	kind, err = tag.DetermineSaveKind(ctx, h.DB, model.Record{"code": "new"})
	require.NoError(t, err)
	require.Equal(t, crud.Create, kind)

	res, err := tag.Save(ctx, h.DB, model.Record{"code": "new", "label": "New"}, crud.Parameters{})
	require.NoError(t, err)
	require.True(t, res.WasSuccessful, res.Message)

	kind, err = tag.DetermineSaveKind(ctx, h.DB, model.Record{"code": "new"})
	require.NoError(t, err)
	require.Equal(t, crud.Update, kind)
}

func TestSave_CreateUpdateAndValidation(t *testing.T) {
	ctx := context.Background()
	h := testkit.SQLite(t)
	cat := testkit.Catalog(t)
	f := crud.NewFactory(h.Dialect)
	person := behaviorsFor(t, f, cat, "Person")

	res, err := person.Save(ctx, h.DB, model.Record{"lastName": "Hopper"}, crud.Parameters{})
	require.NoError(t, err)
	require.False(t, res.WasSuccessful)
	require.Equal(t, "The First Name field is required.", res.Message)
	require.Equal(t, []crud.ValidationIssue{{Property: "firstName", Issue: "The First Name field is required."}}, res.ValidationIssues)

	res, err = person.Save(ctx, h.DB, model.Record{"personId": nil, "firstName": "Grace", "lastName": "Hopper"}, crud.Parameters{})
	require.NoError(t, err)
	require.True(t, res.WasSuccessful, res.Message)
	id := res.Object["personId"]
	require.Equal(t, int64(1), id)

	// partial update: only supplied values change
	res, err = person.Save(ctx, h.DB, model.Record{"personId": id, "email": "grace@navy.mil"}, crud.Parameters{})
	require.NoError(t, err)
	require.True(t, res.WasSuccessful, res.Message)
	require.Equal(t, "Grace", res.Object["firstName"])
	require.Equal(t, "grace@navy.mil", res.Object["email"])

	res, err = person.Save(ctx, h.DB, model.Record{"personId": int64(77), "firstName": "Nobody"}, crud.Parameters{})
	require.NoError(t, err)
	require.False(t, res.WasSuccessful)
	require.Equal(t, "Person item with ID 77 was not found.", res.Message)
}

func TestSave_ConstraintViolationsBecomeResults(t *testing.T) {
	ctx := context.Background()
	h := testkit.SQLite(t)
	cat := testkit.Catalog(t)
	f := crud.NewFactory(h.Dialect)
	person := behaviorsFor(t, f, cat, "Person")
	kase := behaviorsFor(t, f, cat, "Case")

	res, err := person.Save(ctx, h.DB, model.Record{"firstName": "A", "email": "a@example.com"}, crud.Parameters{})
	require.NoError(t, err)
	require.True(t, res.WasSuccessful, res.Message)

	res, err = person.Save(ctx, h.DB, model.Record{"firstName": "B", "email": "a@example.com"}, crud.Parameters{})
	require.NoError(t, err)
	require.False(t, res.WasSuccessful)
	require.Equal(t, "A Person with the same Email already exists.", res.Message)

	res, err = kase.Save(ctx, h.DB, model.Record{"title": "Orphan", "assignedToId": int64(404)}, crud.Parameters{})
	require.NoError(t, err)
	require.False(t, res.WasSuccessful)
	require.Equal(t, "The value of Person is not valid.", res.Message)
	require.Equal(t, "assignedToId", res.ValidationIssues[0].Property)

	// person 1 is referenced by a case now
	res, err = kase.Save(ctx, h.DB, model.Record{"title": "Owned", "assignedToId": int64(1)}, crud.Parameters{})
	require.NoError(t, err)
	require.True(t, res.WasSuccessful, res.Message)

	res, err = person.Delete(ctx, h.DB, int64(1), crud.Parameters{})
	require.NoError(t, err)
	require.False(t, res.WasSuccessful)
	require.Equal(t, "The Person is still referenced by at least one other item.", res.Message)
}

func TestDeleteAndGet(t *testing.T) {
	ctx := context.Background()
	h := testkit.SQLite(t)
	cat := testkit.Catalog(t)
	f := crud.NewFactory(h.Dialect)
	tag := behaviorsFor(t, f, cat, "Tag")

	res, err := tag.Save(ctx, h.DB, model.Record{"code": "x", "label": "X"}, crud.Parameters{})
	require.NoError(t, err)
	require.True(t, res.WasSuccessful)

	res, err = tag.Get(ctx, h.DB, "x", crud.Parameters{})
	require.NoError(t, err)
	require.Equal(t, model.Record{"code": "x", "label": "X"}, res.Object)

	res, err = tag.Delete(ctx, h.DB, "x", crud.Parameters{})
	require.NoError(t, err)
	require.True(t, res.WasSuccessful)

	res, err = tag.Delete(ctx, h.DB, "x", crud.Parameters{})
	require.NoError(t, err)
	require.Equal(t, "Tag item with ID x was not found.", res.Message)

	res, err = tag.Get(ctx, h.DB, "x", crud.Parameters{})
	require.NoError(t, err)
	require.False(t, res.WasSuccessful)
}

type auditBehaviors struct {
	crud.Behaviors
	saved *int
}

func (a auditBehaviors) Save(ctx context.Context, q store.Querier, data model.Record, params crud.Parameters) (crud.ItemResult, error) {
	*a.saved++
	return a.Behaviors.Save(ctx, q, data, params)
}

func TestFactory_RegisterAndDataSource(t *testing.T) {
	ctx := context.Background()
	h := testkit.SQLite(t)
	cat := testkit.Catalog(t)
	f := crud.NewFactory(h.Dialect)

	saved := 0
	f.Register("Tag", func(b model.Binding, source *store.DataSource, dialect db.Dialect) crud.Behaviors {
		return auditBehaviors{Behaviors: crud.NewStandardBehaviors(b, source, dialect), saved: &saved}
	})

	tag := behaviorsFor(t, f, cat, "Tag")
	_, err := tag.Save(ctx, h.DB, model.Record{"code": "k", "label": "K"}, crud.Parameters{})
	require.NoError(t, err)
	require.Equal(t, 1, saved)

	params := crud.ParametersFromQuery(url.Values{"dataSource": {"Default"}, "includes": {"details"}})
	_, err = f.For(testkit.Bind(t, cat, "Tag"), params)
	require.NoError(t, err)

	_, err = f.For(testkit.Bind(t, cat, "Tag"), crud.Parameters{DataSource: "Archived"})
	require.True(t, errors.Is(err, crud.ErrUnknownDataSource), "got %v", err)
}
