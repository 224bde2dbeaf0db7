package api

import (
	"net/http"

	"github.com/gatehouse-io/gatehouse/pkg/httputil"
	"github.com/gatehouse-io/gatehouse/pkg/store"
)

type settingsHandlers struct {
	*Server
}

func newSettingsHandlers(s *Server) *settingsHandlers {
	return &settingsHandlers{Server: s}
}

func (h *settingsHandlers) RegisterRoutes(s *Server) {
	s.route("/api/system/dictionary/", h.listDictionaries, http.MethodGet)
	s.route("/api/system/dictionary/", h.createDictionary, http.MethodPost)
	s.route("/api/system/dictionary/{id}/", h.updateDictionary, http.MethodPut)
	s.route("/api/system/dictionary/{id}/", h.deleteDictionary, http.MethodDelete)

	s.route("/api/system/system_config/", h.listConfigs, http.MethodGet)
	s.route("/api/system/system_config/", h.createConfig, http.MethodPost)
	s.route("/api/system/system_config/{id}/", h.updateConfig, http.MethodPut)
	s.route("/api/system/system_config/{id}/", h.deleteConfig, http.MethodDelete)

	// Public bootstrap endpoints served through the whitelist.
	s.route("/api/init/dictionary/", h.initDictionary, http.MethodGet)
	s.route("/api/init/settings/", h.initSettings, http.MethodGet)
}

// refresh rebuilds the settings cache after a write. The write path stays
// synchronous so the next read observes the change.
func (h *settingsHandlers) refresh(r *http.Request) {
	if err := h.settings.Refresh(r.Context(), "write"); err != nil {
		h.logger.WithError(err).Warn("settings cache refresh failed")
	}
}

func (h *settingsHandlers) listDictionaries(w http.ResponseWriter, r *http.Request) {
	opts := listOptions(r)
	dicts, total, err := h.dicts.List(r.Context(), opts)
	if err != nil {
		h.logger.WithError(err).Error("listing dictionaries failed")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WritePage(w, opts.Page, opts.Limit, total, dicts)
}

func (h *settingsHandlers) createDictionary(w http.ResponseWriter, r *http.Request) {
	var d store.Dictionary
	if !httputil.ParseJSONOrError(w, r, &d) {
		return
	}
	if d.Label == "" || d.Value == "" {
		httputil.WriteBadRequest(w, "label and value are required")
		return
	}
	h.stamp(r, &d.Attribution)
	if err := h.dicts.Create(r.Context(), &d); err != nil {
		h.logger.WithError(err).Error("creating dictionary failed")
		httputil.WriteInternalError(w)
		return
	}
	h.refresh(r)
	httputil.WriteSuccess(w, d)
}

func (h *settingsHandlers) updateDictionary(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid dictionary id")
		return
	}
	var d store.Dictionary
	if !httputil.ParseJSONOrError(w, r, &d) {
		return
	}
	d.ID = id
	stampModifier(r, &d.Attribution)
	if err := h.dicts.Update(r.Context(), &d); err != nil {
		writeStoreError(w, err)
		return
	}
	h.refresh(r)
	httputil.WriteSuccessMsg(w, "updated")
}

func (h *settingsHandlers) deleteDictionary(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid dictionary id")
		return
	}
	if err := h.dicts.Delete(r.Context(), id, hardDelete(r)); err != nil {
		writeStoreError(w, err)
		return
	}
	h.refresh(r)
	httputil.WriteSuccessMsg(w, "deleted")
}

func (h *settingsHandlers) listConfigs(w http.ResponseWriter, r *http.Request) {
	opts := listOptions(r)
	configs, total, err := h.configs.List(r.Context(), opts)
	if err != nil {
		h.logger.WithError(err).Error("listing system configs failed")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WritePage(w, opts.Page, opts.Limit, total, configs)
}

func (h *settingsHandlers) createConfig(w http.ResponseWriter, r *http.Request) {
	var c store.SystemConfig
	if !httputil.ParseJSONOrError(w, r, &c) {
		return
	}
	if c.Key == "" {
		httputil.WriteBadRequest(w, "key is required")
		return
	}
	h.stamp(r, &c.Attribution)
	if err := h.configs.Create(r.Context(), &c); err != nil {
		h.logger.WithError(err).Error("creating system config failed")
		httputil.WriteInternalError(w)
		return
	}
	h.refresh(r)
	httputil.WriteSuccess(w, c)
}

func (h *settingsHandlers) updateConfig(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid config id")
		return
	}
	var c store.SystemConfig
	if !httputil.ParseJSONOrError(w, r, &c) {
		return
	}
	c.ID = id
	stampModifier(r, &c.Attribution)
	if err := h.configs.Update(r.Context(), &c); err != nil {
		writeStoreError(w, err)
		return
	}
	h.refresh(r)
	httputil.WriteSuccessMsg(w, "updated")
}

func (h *settingsHandlers) deleteConfig(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid config id")
		return
	}
	if err := h.configs.Delete(r.Context(), id, hardDelete(r)); err != nil {
		writeStoreError(w, err)
		return
	}
	h.refresh(r)
	httputil.WriteSuccessMsg(w, "deleted")
}

// initDictionary serves one dictionary group from the cache.
func (h *settingsHandlers) initDictionary(w http.ResponseWriter, r *http.Request) {
	group := r.URL.Query().Get("group")
	if group == "" {
		httputil.WriteBadRequest(w, "group is required")
		return
	}
	entries, err := h.settings.Dictionary(r.Context(), group)
	if err != nil {
		h.logger.WithError(err).Error("loading dictionary failed")
		httputil.WriteInternalError(w)
		return
	}
	if entries == nil {
		httputil.WriteNotFound(w, "unknown dictionary group")
		return
	}
	httputil.WriteSuccess(w, entries)
}

// initSettings serves the flattened system configuration map.
func (h *settingsHandlers) initSettings(w http.ResponseWriter, r *http.Request) {
	values, err := h.settings.AllConfigs(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("loading system configs failed")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, values)
}
