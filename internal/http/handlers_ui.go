package httpx

import (
	"net/http"
)

// UIHandlers renders the gated application pages.
type UIHandlers struct {
	Renderer *TemplateRenderer
}

// Home renders the protected root.
// GET /.
func (h *UIHandlers) Home(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, PageHome, "Inicio")
}

// Admin renders the admin-only page.
// GET /admin.
func (h *UIHandlers) Admin(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, PageAdmin, "Administración")
}

func (h *UIHandlers) page(w http.ResponseWriter, r *http.Request, page, title string) {
	snap, _ := SnapshotFromContext(r.Context())
	data := newPageData(r, title)
	data.Session = snap
	if err := h.Renderer.Render(w, http.StatusOK, page, data); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
