package api

import (
	"net/http"
	"path/filepath"

	"github.com/gatehouse-io/gatehouse/pkg/httputil"
	"github.com/gatehouse-io/gatehouse/pkg/store"
)

type fileHandlers struct {
	*Server
}

func newFileHandlers(s *Server) *fileHandlers {
	return &fileHandlers{Server: s}
}

func (h *fileHandlers) RegisterRoutes(s *Server) {
	s.route("/api/system/file/", h.list, http.MethodGet)
	s.route("/api/system/file/", h.upload, http.MethodPost)
	s.route("/api/system/file/{id}/", h.delete, http.MethodDelete)
	s.route("/api/system/file/{id}/download/", h.download, http.MethodGet)
}

func (h *fileHandlers) list(w http.ResponseWriter, r *http.Request) {
	opts := listOptions(r)
	records, total, err := h.fileStore.List(r.Context(), opts)
	if err != nil {
		h.logger.WithError(err).Error("listing files failed")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WritePage(w, opts.Page, opts.Limit, total, records)
}

func (h *fileHandlers) upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.cfg.Files.MaxUploadSize); err != nil {
		httputil.WriteBadRequest(w, "invalid multipart request")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteBadRequest(w, "file field is required")
		return
	}
	defer file.Close()

	rec := &store.FileRecord{}
	h.stamp(r, &rec.Attribution)
	saved, err := h.storage.Save(r.Context(), filepath.Base(header.Filename), header.Header.Get("Content-Type"), file, rec)
	if err != nil {
		h.logger.WithError(err).Error("storing upload failed")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, saved)
}

func (h *fileHandlers) download(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid file id")
		return
	}
	rec, f, err := h.storage.Open(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	defer f.Close()
	if !scopeAllows(r, &rec.Attribution) {
		httputil.WriteNotFound(w, "")
		return
	}

	if rec.Mime != "" {
		w.Header().Set("Content-Type", rec.Mime)
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+rec.Name+`"`)
	http.ServeContent(w, r, rec.Name, rec.UpdatedAt, f)
}

func (h *fileHandlers) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid file id")
		return
	}
	rec, err := h.fileStore.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if !scopeAllows(r, &rec.Attribution) {
		httputil.WriteNotFound(w, "")
		return
	}
	if err := h.storage.Delete(r.Context(), id, hardDelete(r)); err != nil {
		writeStoreError(w, err)
		return
	}
	httputil.WriteSuccessMsg(w, "deleted")
}
