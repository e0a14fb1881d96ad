package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"github.com/wkalt/outline/division"
	"github.com/wkalt/outline/nestedset"
	"github.com/wkalt/outline/outlinemgr"
	"github.com/wkalt/outline/routes"
	"github.com/wkalt/outline/util/httputil"
)

/*
client is the HTTP client for the outline server. The CLI is built on it.
*/

////////////////////////////////////////////////////////////////////////////////

// APIError is an error response from the server.
type APIError struct {
	Status int
	err    string
	detail string
}

func (e APIError) Error() string {
	return e.err
}

// Detail returns the server's detail message, if any.
func (e APIError) Detail() string {
	return e.detail
}

// Client calls the outline HTTP API.
type Client struct {
	serverURL string
	httpc     *http.Client
}

// New returns a client for the server at serverURL. A non-empty sharedKey is
// sent as a bearer token.
func New(serverURL, sharedKey string) *Client {
	return &Client{
		serverURL: serverURL,
		httpc:     NewHTTPClient(sharedKey),
	}
}

type transport struct {
	key string
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.key != "" {
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+t.key)
	}
	return http.DefaultTransport.RoundTrip(req)
}

// NewHTTPClient returns an http client that authenticates with sharedKey.
func NewHTTPClient(sharedKey string) *http.Client {
	return &http.Client{
		Transport: &transport{key: sharedKey},
		Timeout:   time.Minute,
	}
}

func (c *Client) url(format string, args ...any) string {
	escaped := make([]any, len(args))
	for i, arg := range args {
		escaped[i] = url.PathEscape(fmt.Sprint(arg))
	}
	return c.serverURL + fmt.Sprintf(format, escaped...)
}

// do sends a request and decodes the response into out. A nil out discards
// the body and an io.Writer receives it raw. A body that is an io.Reader is
// sent as plain text, anything else as JSON.
func (c *Client) do(ctx context.Context, method string, target string, body any, out any) error {
	var r io.Reader
	contentType := "application/json"
	switch b := body.(type) {
	case nil:
	case io.Reader:
		r = b
		contentType = "text/plain"
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("error encoding request: %w", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, r)
	if err != nil {
		return fmt.Errorf("error building request: %w", err)
	}
	if r != nil {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("error calling server: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		response := httputil.ErrorResponse{}
		if err := json.NewDecoder(resp.Body).Decode(&response); err != nil || response.Error == "" {
			return APIError{Status: resp.StatusCode, err: "unexpected status: " + resp.Status}
		}
		return APIError{Status: resp.StatusCode, err: response.Error, detail: response.Detail}
	}
	switch o := out.(type) {
	case nil:
		return nil
	case io.Writer:
		if _, err := io.Copy(o, resp.Body); err != nil {
			return fmt.Errorf("error reading response: %w", err)
		}
		return nil
	default:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("error decoding response: %w", err)
		}
		return nil
	}
}

// Books lists the books on the server.
func (c *Client) Books(ctx context.Context) ([]string, error) {
	books := []string{}
	return books, c.do(ctx, http.MethodGet, c.url("/books"), nil, &books)
}

// List returns the divisions of book in pre-order.
func (c *Client) List(ctx context.Context, book string) ([]division.Division, error) {
	divs := []division.Division{}
	return divs, c.do(ctx, http.MethodGet, c.url("/books/%s/divisions", book), nil, &divs)
}

// Tree returns the divisions of book as a forest.
func (c *Client) Tree(ctx context.Context, book string) ([]*nestedset.Node, error) {
	tree := []*nestedset.Node{}
	return tree, c.do(ctx, http.MethodGet, c.url("/books/%s/divisions", book)+"?format=tree", nil, &tree)
}

// Get returns one division.
func (c *Client) Get(ctx context.Context, id division.ID) (division.Division, error) {
	d := division.Division{}
	return d, c.do(ctx, http.MethodGet, c.url("/divisions/%s", id), nil, &d)
}

// Create inserts a division titled title at p. Root placements use the book
// carried by p; all others are inserted into book.
func (c *Client) Create(ctx context.Context, book string, title string, p nestedset.Placement) (division.Division, error) {
	if p.Kind == nestedset.Root && p.Book != "" {
		book = p.Book
	}
	req := routes.CreateRequest{Title: title, Placement: p.Kind.String(), Anchor: p.Anchor}
	d := division.Division{}
	return d, c.do(ctx, http.MethodPost, c.url("/books/%s/divisions", book), req, &d)
}

// Rename changes a division's title.
func (c *Client) Rename(ctx context.Context, id division.ID, title string) (division.Division, error) {
	d := division.Division{}
	return d, c.do(ctx, http.MethodPatch, c.url("/divisions/%s", id), routes.RenameRequest{Title: title}, &d)
}

// Move relocates a division and its subtree.
func (c *Client) Move(ctx context.Context, id division.ID, p nestedset.Placement) (division.Division, error) {
	req := routes.MoveRequest{Placement: p.Kind.String(), Anchor: p.Anchor}
	d := division.Division{}
	return d, c.do(ctx, http.MethodPost, c.url("/divisions/%s/move", id), req, &d)
}

// Delete removes a division and its subtree, returning the number removed.
func (c *Client) Delete(ctx context.Context, id division.ID) (int, error) {
	resp := routes.DeleteResponse{}
	return resp.Deleted, c.do(ctx, http.MethodDelete, c.url("/divisions/%s", id), nil, &resp)
}

// Relatives returns the children, ancestors or descendants of a division.
func (c *Client) Relatives(ctx context.Context, id division.ID, relation string) ([]division.Division, error) {
	switch relation {
	case "children", "ancestors", "descendants":
	default:
		return nil, fmt.Errorf("unknown relation %q", relation)
	}
	divs := []division.Division{}
	return divs, c.do(ctx, http.MethodGet, c.url("/divisions/%s/", id)+relation, nil, &divs)
}

// Rebuild renumbers a book from parent references and sibling order.
func (c *Client) Rebuild(ctx context.Context, book string) (outlinemgr.RebuildResult, error) {
	result := outlinemgr.RebuildResult{}
	return result, c.do(ctx, http.MethodPost, c.url("/books/%s/rebuild", book), nil, &result)
}

// Verify checks a book's invariants. A violation is returned as an error.
func (c *Client) Verify(ctx context.Context, book string) error {
	resp := routes.VerifyResponse{}
	if err := c.do(ctx, http.MethodGet, c.url("/books/%s/verify", book), nil, &resp); err != nil {
		return err
	}
	if !resp.Valid {
		return errors.New(resp.Error)
	}
	return nil
}

// Export writes book as an outline document to w.
func (c *Client) Export(ctx context.Context, book string, w io.Writer) error {
	return c.do(ctx, http.MethodGet, c.url("/books/%s/export", book), nil, w)
}

// Import appends the outline document read from r to book. name is used in
// syntax errors.
func (c *Client) Import(ctx context.Context, book string, name string, r io.Reader) ([]division.Division, error) {
	resp := routes.ImportResponse{}
	target := c.url("/books/%s/import", book) + "?name=" + url.QueryEscape(name)
	return resp.Inserted, c.do(ctx, http.MethodPost, target, r, &resp)
}

// Snapshot writes a snapshot of book.
func (c *Client) Snapshot(ctx context.Context, book string) (outlinemgr.SnapshotInfo, error) {
	info := outlinemgr.SnapshotInfo{}
	return info, c.do(ctx, http.MethodPost, c.url("/books/%s/snapshot", book), nil, &info)
}

// Snapshots lists the snapshots of book, oldest first.
func (c *Client) Snapshots(ctx context.Context, book string) ([]outlinemgr.SnapshotInfo, error) {
	infos := []outlinemgr.SnapshotInfo{}
	return infos, c.do(ctx, http.MethodGet, c.url("/books/%s/snapshots", book), nil, &infos)
}

// DeleteSnapshot removes the snapshot of book stored at key.
func (c *Client) DeleteSnapshot(ctx context.Context, book string, key string) error {
	target := c.url("/books/%s/snapshots", book) + "?key=" + url.QueryEscape(key)
	return c.do(ctx, http.MethodDelete, target, nil, nil)
}

// Restore replaces book with a snapshot, chosen by key or, if key is empty,
// as the newest taken at or before at.
func (c *Client) Restore(ctx context.Context, book string, key string, at time.Time) (routes.RestoreResponse, error) {
	req := routes.RestoreRequest{Key: key}
	if key == "" {
		req.At = &at
	}
	resp := routes.RestoreResponse{}
	return resp, c.do(ctx, http.MethodPost, c.url("/books/%s/restore", book), req, &resp)
}
