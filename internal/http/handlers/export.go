package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"hingecraft/internal/export"
)

type exportJSONResponse struct {
	OK   bool            `json:"ok"`
	Data export.Document `json:"data"`
}

func (a *App) ExportJSON(w http.ResponseWriter, r *http.Request) {
	snap, err := a.Donations.Export(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, exportJSONResponse{OK: true, Data: export.NewDocument(snap)})
}

func (a *App) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	a.exportFile(w, r, export.FormatXLSX)
}

func (a *App) ExportBundle(w http.ResponseWriter, r *http.Request) {
	a.exportFile(w, r, export.FormatBundle)
}

func (a *App) exportFile(w http.ResponseWriter, r *http.Request, format export.Format) {
	snap, err := a.Donations.Export(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	art, err := export.Render(snap, format)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", art.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(art.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(art.Data)
}
