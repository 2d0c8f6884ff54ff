// internal/app/features/activity/export.go
package activity

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// ServeCSV handles GET /activities/export.csv, with the same parameters as
// ServeList.
func (h *Handler) ServeCSV(w http.ResponseWriter, r *http.Request) {
	list, ok := h.userActivities(w, r)
	if !ok {
		return
	}

	filename := fmt.Sprintf("activities_%s.csv", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, url.PathEscape(filename)))

	// UTF-8 BOM for Excel
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		h.Log.Error("CSV write failed (BOM)", zap.Error(err))
		return
	}

	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	defer cw.Flush()

	if err := cw.Write([]string{"time", "user_id", "action", "subject_kind", "subject_id"}); err != nil {
		h.Log.Error("CSV write failed (header)", zap.Error(err))
		return
	}
	for _, a := range list {
		if err := cw.Write([]string{
			a.Time.Format(time.RFC3339),
			a.UserID.Hex(),
			sanitizeCSVField(a.Action),
			sanitizeCSVField(string(a.Subject.Kind)),
			a.Subject.ID.Hex(),
		}); err != nil {
			h.Log.Error("CSV write failed (row)", zap.Error(err))
			return
		}
	}
	h.Log.Info("activities CSV exported", zap.Int("rows", len(list)))
}

// sanitizeCSVField prevents spreadsheet formula injection.
func sanitizeCSVField(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@':
		return "'" + s
	}
	return s
}
