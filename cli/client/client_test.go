package client_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wkalt/outline/cli/client"
	"github.com/wkalt/outline/division"
	"github.com/wkalt/outline/divisionstore"
	"github.com/wkalt/outline/nestedset"
	"github.com/wkalt/outline/outlinemgr"
	"github.com/wkalt/outline/routes"
	"github.com/wkalt/outline/storage"
)

func newClient(t *testing.T, serverKey, clientKey string) *client.Client {
	t.Helper()
	mgr := outlinemgr.NewManager(
		divisionstore.NewMemStore(),
		outlinemgr.WithInvariantChecks(true),
		outlinemgr.WithSnapshotProvider(storage.NewMemStore()),
	)
	srv := httptest.NewServer(routes.MakeRoutes(mgr, nil, serverKey))
	t.Cleanup(srv.Close)
	return client.New(srv.URL, clientKey)
}

func titles(divs []division.Division) []string {
	result := make([]string, len(divs))
	for i, d := range divs {
		result[i] = d.Title
	}
	return result
}

func TestClient(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, "secret", "secret")

	root, err := c.Create(ctx, "novel", "Part One", nestedset.AsRoot("novel"))
	require.NoError(t, err)
	require.Equal(t, [2]int{1, 2}, [2]int{root.Left, root.Right})

	a, err := c.Create(ctx, "novel", "a", nestedset.AsLastChild(root.ID))
	require.NoError(t, err)
	b, err := c.Create(ctx, "novel", "b", nestedset.AfterSibling(a.ID))
	require.NoError(t, err)
	_, err = c.Create(ctx, "novel", "b1", nestedset.AsFirstChild(b.ID))
	require.NoError(t, err)

	t.Run("books", func(t *testing.T) {
		books, err := c.Books(ctx)
		require.NoError(t, err)
		require.Equal(t, []string{"novel"}, books)
	})
	t.Run("list and tree", func(t *testing.T) {
		divs, err := c.List(ctx, "novel")
		require.NoError(t, err)
		require.Equal(t, []string{"Part One", "a", "b", "b1"}, titles(divs))
		tree, err := c.Tree(ctx, "novel")
		require.NoError(t, err)
		require.Len(t, tree, 1)
		require.Len(t, tree[0].Children, 2)
	})
	t.Run("relatives", func(t *testing.T) {
		divs, err := c.Relatives(ctx, root.ID, "descendants")
		require.NoError(t, err)
		require.Equal(t, []string{"a", "b", "b1"}, titles(divs))
		_, err = c.Relatives(ctx, root.ID, "cousins")
		require.Error(t, err)
	})
	t.Run("move and rename", func(t *testing.T) {
		moved, err := c.Move(ctx, b.ID, nestedset.BeforeSibling(a.ID))
		require.NoError(t, err)
		require.Equal(t, 0, moved.Order)
		sibling, err := c.Get(ctx, a.ID)
		require.NoError(t, err)
		require.Equal(t, 1, sibling.Order)
		renamed, err := c.Rename(ctx, a.ID, "A")
		require.NoError(t, err)
		require.Equal(t, "A", renamed.Title)
		got, err := c.Get(ctx, a.ID)
		require.NoError(t, err)
		require.Equal(t, "A", got.Title)
	})
	t.Run("cycle is a conflict", func(t *testing.T) {
		_, err := c.Move(ctx, root.ID, nestedset.AsLastChild(b.ID))
		apiErr := client.APIError{}
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusConflict, apiErr.Status)
	})
	t.Run("verify and rebuild", func(t *testing.T) {
		require.NoError(t, c.Verify(ctx, "novel"))
		result, err := c.Rebuild(ctx, "novel")
		require.NoError(t, err)
		require.Equal(t, 0, result.Changed)
	})
	t.Run("export and import", func(t *testing.T) {
		buf := &bytes.Buffer{}
		require.NoError(t, c.Export(ctx, "novel", buf))
		inserted, err := c.Import(ctx, "copy", "novel.outline", buf)
		require.NoError(t, err)
		require.Len(t, inserted, 4)
		_, err = c.Import(ctx, "copy", "broken.outline", strings.NewReader(`"x" {`))
		apiErr := client.APIError{}
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusBadRequest, apiErr.Status)
	})
	t.Run("snapshot and restore", func(t *testing.T) {
		info, err := c.Snapshot(ctx, "novel")
		require.NoError(t, err)
		n, err := c.Delete(ctx, root.ID)
		require.NoError(t, err)
		require.Equal(t, 4, n)

		infos, err := c.Snapshots(ctx, "novel")
		require.NoError(t, err)
		require.Len(t, infos, 1)

		resp, err := c.Restore(ctx, "novel", "", time.Now().Add(time.Hour))
		require.NoError(t, err)
		require.Equal(t, info.Key, resp.Key)
		require.Equal(t, 4, resp.Restored)
		divs, err := c.List(ctx, "novel")
		require.NoError(t, err)
		require.Equal(t, []string{"Part One", "b", "b1", "A"}, titles(divs))

		require.NoError(t, c.DeleteSnapshot(ctx, "novel", info.Key))
		infos, err = c.Snapshots(ctx, "novel")
		require.NoError(t, err)
		require.Empty(t, infos)
		err = c.DeleteSnapshot(ctx, "novel", info.Key)
		apiErr := client.APIError{}
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusNotFound, apiErr.Status)
	})
	t.Run("not found", func(t *testing.T) {
		_, err := c.Get(ctx, division.NewID())
		apiErr := client.APIError{}
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusNotFound, apiErr.Status)
		require.Contains(t, apiErr.Error(), "not found")
	})
}

func TestClientAuth(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		assertion string
		clientKey string
		status    int
	}{
		{"missing key", "", http.StatusUnauthorized},
		{"wrong key", "nope", http.StatusUnauthorized},
		{"correct key", "secret", 0},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			cl := newClient(t, "secret", c.clientKey)
			_, err := cl.Books(ctx)
			if c.status == 0 {
				require.NoError(t, err)
				return
			}
			apiErr := client.APIError{}
			require.ErrorAs(t, err, &apiErr)
			require.Equal(t, c.status, apiErr.Status)
		})
	}
}
