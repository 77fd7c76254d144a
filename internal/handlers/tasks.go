package handlers

import "net/http"

// The task endpoints trigger one background job run and respond with the
// job's result, mirroring what the scheduler runs periodically.

func (h *Handler) runOverdueReminders(w http.ResponseWriter, r *http.Request) {
	result, err := h.overdueReminders.Run(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, result)
}

func (h *Handler) runMonthlyReport(w http.ResponseWriter, r *http.Request) {
	result, err := h.monthlyReport.Run(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, result)
}

func (h *Handler) runInventoryCheck(w http.ResponseWriter, r *http.Request) {
	result, err := h.inventoryCheck.Run(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, result)
}

func (h *Handler) runMetadataFetch(w http.ResponseWriter, r *http.Request) {
	result, err := h.metadataFetch.Run(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, result)
}
