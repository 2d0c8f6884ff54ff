package uploads

import (
	"net/http"
	"strings"

	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/go-chi/chi/v5"
)

// FileServer serves local storage objects. Mount it under the store's URL
// prefix. Directory listings are never served.
func FileServer(ls *storage.Local) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := chi.URLParam(r, "*")
		if path == "" || strings.HasSuffix(path, "/") {
			http.NotFound(w, r)
			return
		}
		full, err := ls.GetFullPath(path)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")
		http.ServeFile(w, r, full)
	}
}
