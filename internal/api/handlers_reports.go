/**
 * @description
 * HTTP handler for the business summary report.
 */

package api

import "net/http"

// SummaryReportHandler handles GET /reportes/resumen.
func (h *Handlers) SummaryReportHandler(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.SummaryReport(r.Context())
	if err != nil {
		h.writeStoreError(w, "summary_report", err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}
