package main

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"

	"chronicle.ai/internal/persistence/archive"
	"chronicle.ai/internal/persistence/offsite"
	"chronicle.ai/internal/persistence/save"
)

// registerAdmin mounts the local-only save inspection endpoints.
func registerAdmin(mux *http.ServeMux, saves *save.Manager, archiveDir string, mirror *offsite.Mirror) {
	mux.HandleFunc("/admin/v1/slots", loopbackOnly(func(rw http.ResponseWriter, r *http.Request) {
		writeJSONResponse(rw, http.StatusOK, saves.ListSlots())
	}))
	mux.HandleFunc("/admin/v1/export", loopbackOnly(func(rw http.ResponseWriter, r *http.Request) {
		slot, err := strconv.Atoi(r.URL.Query().Get("slot"))
		if err != nil || slot < 0 {
			http.Error(rw, "bad slot", http.StatusBadRequest)
			return
		}
		doc, ok := saves.ExportSave(slot)
		if !ok {
			http.Error(rw, "no save in slot", http.StatusNotFound)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_, _ = rw.Write([]byte(doc))
	}))
	mux.HandleFunc("/admin/v1/archives", loopbackOnly(func(rw http.ResponseWriter, r *http.Request) {
		metas, err := archive.List(archiveDir)
		if err != nil {
			http.Error(rw, err.Error(), http.StatusInternalServerError)
			return
		}
		if metas == nil {
			metas = []archive.ArchiveMeta{}
		}
		writeJSONResponse(rw, http.StatusOK, metas)
	}))
	mux.HandleFunc("/admin/v1/offsite", loopbackOnly(func(rw http.ResponseWriter, r *http.Request) {
		writeJSONResponse(rw, http.StatusOK, map[string]any{
			"enabled": mirror != nil,
			"stats":   mirror.Stats(),
		})
	}))
}

func loopbackOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		h(rw, r)
	}
}

func writeJSONResponse(rw http.ResponseWriter, code int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(code)
	_ = json.NewEncoder(rw).Encode(v)
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
