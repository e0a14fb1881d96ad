package routes

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/wkalt/outline/division"
	"github.com/wkalt/outline/outlinemgr"
	"github.com/wkalt/outline/util/httputil"
)

// maxBodyBytes bounds request bodies, outline documents included.
const maxBodyBytes = 8 << 20

var validate = validator.New(validator.WithRequiredStructEnabled()) // nolint:gochecknoglobals

// decode reads a JSON request body into v and validates it.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		return fmt.Errorf("error decoding request: %w", err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	return nil
}

func bookParam(r *http.Request) string {
	return mux.Vars(r)["book"]
}

func idParam(r *http.Request) division.ID {
	return division.ID(mux.Vars(r)["id"])
}

// writeError maps engine errors to responses.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, division.NodeNotFoundError{}),
		errors.Is(err, division.AnchorNotFoundError{}),
		errors.Is(err, outlinemgr.ErrSnapshotNotFound):
		httputil.NotFound(ctx, w, "%s", err)
	case errors.Is(err, division.CycleDetectedError{}),
		errors.Is(err, division.CrossGroupMoveError{}):
		httputil.Conflict(ctx, w, "%s", err)
	case errors.Is(err, division.InvalidArgumentError{}),
		errors.Is(err, outlinemgr.ErrSnapshotsDisabled):
		httputil.BadRequest(ctx, w, "%s", err)
	default:
		httputil.InternalServerError(ctx, w, "%s", err)
	}
}
