package routes

import (
	"context"
	"net/http"

	"github.com/wkalt/outline/division"
	"github.com/wkalt/outline/nestedset"
	"github.com/wkalt/outline/outlinemgr"
	"github.com/wkalt/outline/util/httputil"
	"github.com/wkalt/outline/util/log"
)

func newGetDivisionHandler(mgr *outlinemgr.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		d, err := mgr.Get(ctx, idParam(r))
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		httputil.JSON(ctx, w, http.StatusOK, d)
	}
}

// RenameRequest is the request body for renaming a division.
type RenameRequest struct {
	Title string `json:"title" validate:"required,max=255"`
}

func newRenameHandler(mgr *outlinemgr.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		req := RenameRequest{}
		if err := decode(w, r, &req); err != nil {
			httputil.BadRequest(ctx, w, "%s", err)
			return
		}
		d, err := mgr.Rename(ctx, idParam(r), req.Title)
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		httputil.JSON(ctx, w, http.StatusOK, d)
	}
}

// DeleteResponse is the response body of the delete endpoint.
type DeleteResponse struct {
	Deleted int `json:"deleted"`
}

func newDeleteHandler(mgr *outlinemgr.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := idParam(r)
		log.Infow(ctx, "delete request", "id", id)
		n, err := mgr.Delete(ctx, id)
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		httputil.JSON(ctx, w, http.StatusOK, DeleteResponse{Deleted: n})
	}
}

// MoveRequest is the request body for moving a division. Root placements
// stay within the division's own book.
type MoveRequest struct {
	Placement string      `json:"placement" validate:"required,oneof=root first-child last-child before after"`
	Anchor    division.ID `json:"anchor,omitempty" validate:"required_unless=Placement root"`
}

func newMoveHandler(mgr *outlinemgr.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := idParam(r)
		req := MoveRequest{}
		if err := decode(w, r, &req); err != nil {
			httputil.BadRequest(ctx, w, "%s", err)
			return
		}
		kind, err := nestedset.ParseKind(req.Placement)
		if err != nil {
			httputil.BadRequest(ctx, w, "%s", err)
			return
		}
		p := nestedset.Placement{Kind: kind, Anchor: req.Anchor}
		if kind == nestedset.Root {
			d, err := mgr.Get(ctx, id)
			if err != nil {
				writeError(ctx, w, err)
				return
			}
			p.Book = d.Book
		}
		log.Infow(ctx, "move request", "id", id, "placement", p.String())
		moved, err := mgr.Move(ctx, id, p)
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		httputil.JSON(ctx, w, http.StatusOK, moved)
	}
}

// newRelativesHandler serves one of the relative queries of a division.
func newRelativesHandler(
	query func(context.Context, division.ID) ([]division.Division, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		divs, err := query(ctx, idParam(r))
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		httputil.JSON(ctx, w, http.StatusOK, divs)
	}
}
