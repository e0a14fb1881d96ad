package routes_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wkalt/outline/division"
	"github.com/wkalt/outline/nestedset"
	"github.com/wkalt/outline/routes"
	"github.com/wkalt/outline/util/httputil"
)

func titles(divs []division.Division) []string {
	result := make([]string, len(divs))
	for i, d := range divs {
		result[i] = d.Title
	}
	return result
}

func TestCreateAndList(t *testing.T) {
	s := newTestServer(t, "")
	code, body := s.do(t, http.MethodPost, "/books/moby/divisions", routes.CreateRequest{Title: "Part One", Placement: "root"})
	require.Equal(t, http.StatusCreated, code, string(body))
	root := decodeAs[division.Division](t, body)
	require.Equal(t, [2]int{1, 2}, [2]int{root.Left, root.Right})
	require.Equal(t, "moby", root.Book)

	for _, title := range []string{"Loomings", "The Carpet-Bag"} {
		code, body = s.do(t, http.MethodPost, "/books/moby/divisions",
			routes.CreateRequest{Title: title, Placement: "last-child", Anchor: root.ID})
		require.Equal(t, http.StatusCreated, code, string(body))
	}

	t.Run("flat", func(t *testing.T) {
		code, body := s.do(t, http.MethodGet, "/books/moby/divisions", nil)
		require.Equal(t, http.StatusOK, code)
		divs := decodeAs[[]division.Division](t, body)
		require.Equal(t, []string{"Part One", "Loomings", "The Carpet-Bag"}, titles(divs))
		require.Equal(t, 6, divs[0].Right)
	})
	t.Run("tree", func(t *testing.T) {
		code, body := s.do(t, http.MethodGet, "/books/moby/divisions?format=tree", nil)
		require.Equal(t, http.StatusOK, code)
		tree := decodeAs[[]*nestedset.Node](t, body)
		require.Len(t, tree, 1)
		require.Len(t, tree[0].Children, 2)
		require.Equal(t, "The Carpet-Bag", tree[0].Children[1].Title)
	})
	t.Run("unknown format", func(t *testing.T) {
		code, _ := s.do(t, http.MethodGet, "/books/moby/divisions?format=xml", nil)
		require.Equal(t, http.StatusBadRequest, code)
	})
	t.Run("books", func(t *testing.T) {
		code, body := s.do(t, http.MethodGet, "/books", nil)
		require.Equal(t, http.StatusOK, code)
		require.Equal(t, []string{"moby"}, decodeAs[[]string](t, body))
	})
	t.Run("empty book", func(t *testing.T) {
		code, body := s.do(t, http.MethodGet, "/books/nothing/divisions", nil)
		require.Equal(t, http.StatusOK, code)
		require.Equal(t, "[]\n", string(body))
	})
}

func TestETag(t *testing.T) {
	s := newTestServer(t, "")
	code, _ := s.do(t, http.MethodPost, "/books/b/divisions", routes.CreateRequest{Title: "a", Placement: "root"})
	require.Equal(t, http.StatusCreated, code)

	get := func(etag string) *http.Response {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, s.url+"/books/b/divisions", nil)
		require.NoError(t, err)
		if etag != "" {
			req.Header.Set("If-None-Match", etag)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		return resp
	}
	first := get("")
	require.Equal(t, http.StatusOK, first.StatusCode)
	etag := first.Header.Get("ETag")
	require.NotEmpty(t, etag)
	require.Equal(t, http.StatusNotModified, get(etag).StatusCode)

	code, _ = s.do(t, http.MethodPost, "/books/b/divisions", routes.CreateRequest{Title: "b", Placement: "root"})
	require.Equal(t, http.StatusCreated, code)
	changed := get(etag)
	require.Equal(t, http.StatusOK, changed.StatusCode)
	require.NotEqual(t, etag, changed.Header.Get("ETag"))
}

func TestCreateErrors(t *testing.T) {
	s := newTestServer(t, "")
	code, body := s.do(t, http.MethodPost, "/books/b/divisions", routes.CreateRequest{Title: "r", Placement: "root"})
	require.Equal(t, http.StatusCreated, code)
	r := decodeAs[division.Division](t, body)
	code, _ = s.do(t, http.MethodPost, "/books/other/divisions", routes.CreateRequest{Title: "o", Placement: "root"})
	require.Equal(t, http.StatusCreated, code)

	cases := []struct {
		assertion string
		book      string
		body      any
		code      int
		message   string
	}{
		{"malformed json", "b", "{", http.StatusBadRequest, "error decoding request"},
		{"missing title", "b", routes.CreateRequest{Placement: "root"}, http.StatusBadRequest, "Title"},
		{"unknown placement", "b", routes.CreateRequest{Title: "x", Placement: "sideways"}, http.StatusBadRequest, "Placement"},
		{"missing anchor", "b", routes.CreateRequest{Title: "x", Placement: "after"}, http.StatusBadRequest, "Anchor"},
		{"title too long", "b", routes.CreateRequest{Title: strings.Repeat("x", 256), Placement: "root"}, http.StatusBadRequest, "Title"},
		{"blank title", "b", routes.CreateRequest{Title: " ", Placement: "root"}, http.StatusBadRequest, "title"},
		{"unknown anchor", "b", routes.CreateRequest{Title: "x", Placement: "after", Anchor: "missing"}, http.StatusNotFound, "missing"},
		{"anchor in another book", "other", routes.CreateRequest{Title: "x", Placement: "first-child", Anchor: r.ID}, http.StatusBadRequest, "belongs to book b"},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			code, body := s.do(t, http.MethodPost, "/books/"+c.book+"/divisions", c.body)
			require.Equal(t, c.code, code, string(body))
			resp := decodeAs[httputil.ErrorResponse](t, body)
			require.Contains(t, resp.Error, c.message)
		})
	}
}

func TestDivisionRoutes(t *testing.T) {
	s := newTestServer(t, "")
	ctx := context.Background()
	_, err := s.mgr.ImportText(ctx, "b", "", `"r" { "a" "b" { "b1" } "c" } "s"`)
	require.NoError(t, err)
	divs, err := s.mgr.List(ctx, "b")
	require.NoError(t, err)
	ids := map[string]division.ID{}
	for _, d := range divs {
		ids[d.Title] = d.ID
	}

	t.Run("get", func(t *testing.T) {
		code, body := s.do(t, http.MethodGet, "/divisions/"+string(ids["b1"]), nil)
		require.Equal(t, http.StatusOK, code)
		require.Equal(t, 2, decodeAs[division.Division](t, body).Depth)
		code, _ = s.do(t, http.MethodGet, "/divisions/missing", nil)
		require.Equal(t, http.StatusNotFound, code)
	})
	t.Run("relatives", func(t *testing.T) {
		cases := []struct {
			assertion string
			path      string
			expected  []string
		}{
			{"children", "/divisions/" + string(ids["r"]) + "/children", []string{"a", "b", "c"}},
			{"descendants", "/divisions/" + string(ids["r"]) + "/descendants", []string{"a", "b", "b1", "c"}},
			{"ancestors", "/divisions/" + string(ids["b1"]) + "/ancestors", []string{"r", "b"}},
			{"leaf children", "/divisions/" + string(ids["s"]) + "/children", []string{}},
		}
		for _, c := range cases {
			t.Run(c.assertion, func(t *testing.T) {
				code, body := s.do(t, http.MethodGet, c.path, nil)
				require.Equal(t, http.StatusOK, code)
				require.Equal(t, c.expected, titles(decodeAs[[]division.Division](t, body)))
			})
		}
	})
	t.Run("rename", func(t *testing.T) {
		code, body := s.do(t, http.MethodPatch, "/divisions/"+string(ids["c"]), routes.RenameRequest{Title: "C"})
		require.Equal(t, http.StatusOK, code, string(body))
		require.Equal(t, "C", decodeAs[division.Division](t, body).Title)
		code, _ = s.do(t, http.MethodPatch, "/divisions/"+string(ids["c"]), routes.RenameRequest{})
		require.Equal(t, http.StatusBadRequest, code)
	})
	t.Run("move", func(t *testing.T) {
		cases := []struct {
			assertion string
			id        division.ID
			req       routes.MoveRequest
			code      int
		}{
			{"into own subtree", ids["r"], routes.MoveRequest{Placement: "last-child", Anchor: ids["b1"]}, http.StatusConflict},
			{"missing anchor", ids["a"], routes.MoveRequest{Placement: "before", Anchor: "missing"}, http.StatusNotFound},
			{"missing division", "missing", routes.MoveRequest{Placement: "root"}, http.StatusNotFound},
			{"invalid placement", ids["a"], routes.MoveRequest{Placement: "under"}, http.StatusBadRequest},
			{"after a later sibling", ids["a"], routes.MoveRequest{Placement: "after", Anchor: ids["c"]}, http.StatusOK},
			{"to root", ids["b"], routes.MoveRequest{Placement: "root"}, http.StatusOK},
		}
		for _, c := range cases {
			t.Run(c.assertion, func(t *testing.T) {
				code, body := s.do(t, http.MethodPost, "/divisions/"+string(c.id)+"/move", c.req)
				require.Equal(t, c.code, code, string(body))
			})
		}
		divs, err := s.mgr.List(ctx, "b")
		require.NoError(t, err)
		require.Equal(t, []string{"r", "C", "a", "s", "b", "b1"}, titles(divs))
	})
	t.Run("move across books", func(t *testing.T) {
		o, err := s.mgr.CreateRoot(ctx, "other", "o")
		require.NoError(t, err)
		code, _ := s.do(t, http.MethodPost, "/divisions/"+string(ids["a"])+"/move",
			routes.MoveRequest{Placement: "first-child", Anchor: o.ID})
		require.Equal(t, http.StatusConflict, code)
	})
	t.Run("delete", func(t *testing.T) {
		code, body := s.do(t, http.MethodDelete, "/divisions/"+string(ids["b"]), nil)
		require.Equal(t, http.StatusOK, code)
		require.Equal(t, 2, decodeAs[routes.DeleteResponse](t, body).Deleted)
		code, _ = s.do(t, http.MethodDelete, "/divisions/"+string(ids["b"]), nil)
		require.Equal(t, http.StatusNotFound, code)
	})
}

func TestBookMaintenance(t *testing.T) {
	s := newTestServer(t, "")
	text := "\"a\" {\n\t\"a1\"\n}\n\"b\"\n"

	t.Run("import", func(t *testing.T) {
		code, body := s.do(t, http.MethodPost, "/books/b/import?name=test.outline", text)
		require.Equal(t, http.StatusCreated, code, string(body))
		require.Len(t, decodeAs[routes.ImportResponse](t, body).Inserted, 3)
		code, _ = s.do(t, http.MethodPost, "/books/b/import", `"a" {`)
		require.Equal(t, http.StatusBadRequest, code)
	})
	t.Run("export", func(t *testing.T) {
		code, body := s.do(t, http.MethodGet, "/books/b/export", nil)
		require.Equal(t, http.StatusOK, code)
		require.Equal(t, "book \"b\"\n\n"+text, string(body))
	})
	t.Run("verify and rebuild", func(t *testing.T) {
		code, body := s.do(t, http.MethodGet, "/books/b/verify", nil)
		require.Equal(t, http.StatusOK, code)
		require.True(t, decodeAs[routes.VerifyResponse](t, body).Valid)
		code, body = s.do(t, http.MethodPost, "/books/b/rebuild", nil)
		require.Equal(t, http.StatusOK, code)
		require.Zero(t, decodeAs[struct {
			Changed int `json:"changed"`
		}](t, body).Changed)
	})
	t.Run("snapshot and restore", func(t *testing.T) {
		code, body := s.do(t, http.MethodPost, "/books/b/snapshot", nil)
		require.Equal(t, http.StatusCreated, code, string(body))
		info := decodeAs[struct {
			Key   string    `json:"key"`
			Taken time.Time `json:"taken"`
		}](t, body)
		require.True(t, strings.HasPrefix(info.Key, "snapshots/b/"))

		code, body = s.do(t, http.MethodGet, "/books/b/snapshots", nil)
		require.Equal(t, http.StatusOK, code)
		require.Contains(t, string(body), info.Key)

		_, err := s.mgr.CreateRoot(context.Background(), "b", "later")
		require.NoError(t, err)

		code, body = s.do(t, http.MethodPost, "/books/b/restore", routes.RestoreRequest{Key: info.Key})
		require.Equal(t, http.StatusOK, code, string(body))
		require.Equal(t, 3, decodeAs[routes.RestoreResponse](t, body).Restored)

		at := info.Taken.Add(time.Second)
		code, body = s.do(t, http.MethodPost, "/books/b/restore", routes.RestoreRequest{At: &at})
		require.Equal(t, http.StatusOK, code, string(body))
		require.Equal(t, info.Key, decodeAs[routes.RestoreResponse](t, body).Key)

		early := info.Taken.Add(-time.Hour)
		code, _ = s.do(t, http.MethodPost, "/books/b/restore", routes.RestoreRequest{At: &early})
		require.Equal(t, http.StatusNotFound, code)
		code, _ = s.do(t, http.MethodPost, "/books/b/restore", routes.RestoreRequest{})
		require.Equal(t, http.StatusBadRequest, code)
		code, _ = s.do(t, http.MethodPost, "/books/b/restore", routes.RestoreRequest{Key: info.Key, At: &at})
		require.Equal(t, http.StatusBadRequest, code)
		code, _ = s.do(t, http.MethodPost, "/books/b/restore", routes.RestoreRequest{Key: "snapshots/b/../../x.json"})
		require.Equal(t, http.StatusBadRequest, code)
	})
	t.Run("delete snapshot", func(t *testing.T) {
		code, body := s.do(t, http.MethodPost, "/books/b/snapshot", nil)
		require.Equal(t, http.StatusCreated, code, string(body))
		key := decodeAs[routes.DeleteSnapshotResponse](t, body).Key

		cases := []struct {
			assertion string
			query     string
			code      int
		}{
			{"missing key", "", http.StatusBadRequest},
			{"key of another book", "?key=snapshots/other/x.json", http.StatusBadRequest},
			{"parent segments", "?key=snapshots/b/../../x.json", http.StatusBadRequest},
			{"existing snapshot", "?key=" + key, http.StatusOK},
			{"already deleted", "?key=" + key, http.StatusNotFound},
		}
		for _, c := range cases {
			code, body := s.do(t, http.MethodDelete, "/books/b/snapshots"+c.query, nil)
			require.Equal(t, c.code, code, "%s: %s", c.assertion, body)
		}

		code, body = s.do(t, http.MethodGet, "/books/b/snapshots", nil)
		require.Equal(t, http.StatusOK, code)
		require.NotContains(t, string(body), key)
	})
}

func TestAuthAndMetrics(t *testing.T) {
	s := newTestServer(t, "secret")
	code, _ := s.do(t, http.MethodPost, "/books/b/divisions", routes.CreateRequest{Title: "a", Placement: "root"})
	require.Equal(t, http.StatusCreated, code)

	resp, err := http.Get(s.url + "/books")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp, err = http.Get(s.url + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	code, body := s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, string(body), `outline_operations_total{operation="create",result="ok"} 1`)
}
