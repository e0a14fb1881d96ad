package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wkalt/outline/outlinemgr"
	"github.com/wkalt/outline/util/mw"
)

/*
routes exposes the outline manager over HTTP. Books are addressed by name and
divisions by ID. Every response body is JSON except the outline document
export, which is plain text.
*/

////////////////////////////////////////////////////////////////////////////////

// MakeRoutes builds the router. If gatherer is non-nil its metrics are served
// on /metrics, outside of shared-key auth.
func MakeRoutes(mgr *outlinemgr.Manager, gatherer prometheus.Gatherer, sharedKey string) *mux.Router {
	r := mux.NewRouter()
	r.Use(mw.WithRequestID)
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	api := r.NewRoute().Subrouter()
	api.Use(mw.WithSharedKeyAuth(sharedKey))

	api.HandleFunc("/books", newBooksHandler(mgr)).Methods(http.MethodGet)
	api.HandleFunc("/books/{book}/divisions", newListDivisionsHandler(mgr)).Methods(http.MethodGet)
	api.HandleFunc("/books/{book}/divisions", newCreateDivisionHandler(mgr)).Methods(http.MethodPost)
	api.HandleFunc("/books/{book}/rebuild", newRebuildHandler(mgr)).Methods(http.MethodPost)
	api.HandleFunc("/books/{book}/verify", newVerifyHandler(mgr)).Methods(http.MethodGet)
	api.HandleFunc("/books/{book}/export", newExportHandler(mgr)).Methods(http.MethodGet)
	api.HandleFunc("/books/{book}/import", newImportHandler(mgr)).Methods(http.MethodPost)
	api.HandleFunc("/books/{book}/snapshot", newSnapshotHandler(mgr)).Methods(http.MethodPost)
	api.HandleFunc("/books/{book}/snapshots", newSnapshotsHandler(mgr)).Methods(http.MethodGet)
	api.HandleFunc("/books/{book}/snapshots", newDeleteSnapshotHandler(mgr)).Methods(http.MethodDelete)
	api.HandleFunc("/books/{book}/restore", newRestoreHandler(mgr)).Methods(http.MethodPost)

	api.HandleFunc("/divisions/{id}", newGetDivisionHandler(mgr)).Methods(http.MethodGet)
	api.HandleFunc("/divisions/{id}", newRenameHandler(mgr)).Methods(http.MethodPatch)
	api.HandleFunc("/divisions/{id}", newDeleteHandler(mgr)).Methods(http.MethodDelete)
	api.HandleFunc("/divisions/{id}/move", newMoveHandler(mgr)).Methods(http.MethodPost)
	api.HandleFunc("/divisions/{id}/children", newRelativesHandler(mgr.Children)).Methods(http.MethodGet)
	api.HandleFunc("/divisions/{id}/ancestors", newRelativesHandler(mgr.Ancestors)).Methods(http.MethodGet)
	api.HandleFunc("/divisions/{id}/descendants", newRelativesHandler(mgr.Descendants)).Methods(http.MethodGet)
	return r
}
