package routes

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wkalt/outline/division"
	"github.com/wkalt/outline/nestedset"
	"github.com/wkalt/outline/outlinemgr"
	"github.com/wkalt/outline/outlineql"
	"github.com/wkalt/outline/util/httputil"
	"github.com/wkalt/outline/util/log"
)

func newBooksHandler(mgr *outlinemgr.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		books, err := mgr.Books(ctx)
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		httputil.JSON(ctx, w, http.StatusOK, books)
	}
}

// newListDivisionsHandler serves a book's divisions, flat in pre-order or
// nested with ?format=tree. The book's fingerprint is the ETag.
func newListDivisionsHandler(mgr *outlinemgr.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		book := bookParam(r)
		format := r.URL.Query().Get("format")
		if format != "" && format != "flat" && format != "tree" {
			httputil.BadRequest(ctx, w, "unrecognized format %q", format)
			return
		}
		divs, err := mgr.List(ctx, book)
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		etag := fmt.Sprintf(`"%s"`, outlinemgr.FingerprintOf(divs))
		w.Header().Set("ETag", etag)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		if format != "tree" {
			httputil.JSON(ctx, w, http.StatusOK, divs)
			return
		}
		h, err := nestedset.Reconstruct(divs)
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		httputil.JSON(ctx, w, http.StatusOK, h.Tree())
	}
}

// CreateRequest is the request body for creating a division. Anchor is
// required for every placement except root.
type CreateRequest struct {
	Title     string      `json:"title" validate:"required,max=255"`
	Placement string      `json:"placement" validate:"required,oneof=root first-child last-child before after"`
	Anchor    division.ID `json:"anchor,omitempty" validate:"required_unless=Placement root"`
}

func newCreateDivisionHandler(mgr *outlinemgr.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		book := bookParam(r)
		req := CreateRequest{}
		if err := decode(w, r, &req); err != nil {
			httputil.BadRequest(ctx, w, "%s", err)
			return
		}
		kind, err := nestedset.ParseKind(req.Placement)
		if err != nil {
			httputil.BadRequest(ctx, w, "%s", err)
			return
		}
		p := nestedset.Placement{Kind: kind, Anchor: req.Anchor, Book: book}
		if kind != nestedset.Root {
			anchor, err := mgr.Get(ctx, req.Anchor)
			if errors.Is(err, division.NodeNotFoundError{}) {
				err = division.AnchorNotFoundError{Anchor: req.Anchor}
			}
			if err != nil {
				writeError(ctx, w, err)
				return
			}
			if anchor.Book != book {
				httputil.BadRequest(ctx, w, "anchor %s belongs to book %s", anchor.ID, anchor.Book)
				return
			}
		}
		log.Infow(ctx, "create request", "book", book, "placement", p.String())
		d, err := mgr.Create(ctx, req.Title, p)
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		httputil.JSON(ctx, w, http.StatusCreated, d)
	}
}

func newRebuildHandler(mgr *outlinemgr.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		book := bookParam(r)
		log.Infow(ctx, "rebuild request", "book", book)
		result, err := mgr.RebuildTree(ctx, book)
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		httputil.JSON(ctx, w, http.StatusOK, result)
	}
}

// VerifyResponse reports whether a book satisfies every nested-set invariant.
type VerifyResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

func newVerifyHandler(mgr *outlinemgr.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		err := mgr.Verify(ctx, bookParam(r))
		switch {
		case err == nil:
			httputil.JSON(ctx, w, http.StatusOK, VerifyResponse{Valid: true})
		case errors.Is(err, division.InvariantViolationError{}):
			httputil.JSON(ctx, w, http.StatusOK, VerifyResponse{Valid: false, Error: err.Error()})
		default:
			writeError(ctx, w, err)
		}
	}
}

func newExportHandler(mgr *outlinemgr.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		book := bookParam(r)
		tree, err := mgr.GetHierarchy(ctx, book)
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if _, err := io.WriteString(w, outlineql.Format(book, tree)); err != nil {
			log.Infof(ctx, "Client closed connection: %s", err)
		}
	}
}

// ImportResponse is the response body of the import endpoint.
type ImportResponse struct {
	Inserted []division.Division `json:"inserted"`
}

// newImportHandler accepts an outline document as the raw request body and
// appends it to the book.
func newImportHandler(mgr *outlinemgr.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		book := bookParam(r)
		defer r.Body.Close()
		text, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			httputil.BadRequest(ctx, w, "error reading request: %s", err)
			return
		}
		name := r.URL.Query().Get("name")
		log.Infow(ctx, "import request", "book", book, "name", name, "bytes", len(text))
		inserted, err := mgr.ImportText(ctx, book, name, string(text))
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		httputil.JSON(ctx, w, http.StatusCreated, ImportResponse{Inserted: inserted})
	}
}

func newSnapshotHandler(mgr *outlinemgr.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		info, err := mgr.Snapshot(ctx, bookParam(r))
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		httputil.JSON(ctx, w, http.StatusCreated, info)
	}
}

func newSnapshotsHandler(mgr *outlinemgr.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		infos, err := mgr.Snapshots(ctx, bookParam(r))
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		httputil.JSON(ctx, w, http.StatusOK, infos)
	}
}

// DeleteSnapshotResponse is the response body of the snapshot deletion
// endpoint.
type DeleteSnapshotResponse struct {
	Key string `json:"key"`
}

func newDeleteSnapshotHandler(mgr *outlinemgr.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		book := bookParam(r)
		key := r.URL.Query().Get("key")
		if key == "" {
			httputil.BadRequest(ctx, w, "missing snapshot key")
			return
		}
		log.Infow(ctx, "delete snapshot request", "book", book, "key", key)
		if err := mgr.DeleteSnapshot(ctx, book, key); err != nil {
			writeError(ctx, w, err)
			return
		}
		httputil.JSON(ctx, w, http.StatusOK, DeleteSnapshotResponse{Key: key})
	}
}

// RestoreRequest is the request body for restoring a snapshot. Exactly one
// of Key and At is set: a key restores that snapshot, a time restores the
// newest snapshot taken at or before it.
type RestoreRequest struct {
	Key string     `json:"key,omitempty" validate:"required_without=At,excluded_with=At"`
	At  *time.Time `json:"at,omitempty" validate:"required_without=Key"`
}

// RestoreResponse is the response body of the restore endpoint.
type RestoreResponse struct {
	Key      string `json:"key"`
	Restored int    `json:"restored"`
}

func newRestoreHandler(mgr *outlinemgr.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		book := bookParam(r)
		req := RestoreRequest{}
		if err := decode(w, r, &req); err != nil {
			httputil.BadRequest(ctx, w, "%s", err)
			return
		}
		if req.Key != "" && !strings.HasSuffix(req.Key, ".json") {
			httputil.BadRequest(ctx, w, "invalid snapshot key %s", req.Key)
			return
		}
		if req.At != nil {
			log.Infow(ctx, "restore request", "book", book, "at", *req.At)
		} else {
			log.Infow(ctx, "restore request", "book", book, "key", req.Key)
		}
		resp := RestoreResponse{Key: req.Key}
		var err error
		if req.Key != "" {
			resp.Restored, err = mgr.Restore(ctx, book, req.Key)
		} else {
			var info outlinemgr.SnapshotInfo
			info, resp.Restored, err = mgr.RestoreAt(ctx, book, *req.At)
			resp.Key = info.Key
		}
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		httputil.JSON(ctx, w, http.StatusOK, resp)
	}
}
