// Copyright 2025 Cubedeck
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package olapadmin

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"cubedeck/platform/registry"
	"cubedeck/platform/shared/logger"
)

// requestID returns the caller-supplied X-Request-ID or mints one, and
// echoes it on the response so clients can correlate log lines.
func requestID(w http.ResponseWriter, r *http.Request) string {
	id := r.Header.Get("X-Request-ID")
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set("X-Request-ID", id)
	return id
}

// APIPrefix is the path prefix all datasource admin routes live under.
const APIPrefix = "/data-access/api/olap4j"

// Upload status sentinels returned in the postSchema response body. The
// endpoint always answers HTTP 200; importers read the outcome from the body.
const (
	statusGeneralError = "1"
	statusMissingField = "2"
	statusSuccess      = "3"
)

// policy states what a route demands before its handler runs. The table
// below is the single source of truth for which operations are gated.
type policy struct {
	RequireAdmin bool
	RateLimited  bool
}

// routePolicies maps operation name to its access policy. Read-only listing
// and descriptor lookup are open; every mutating or content-serving
// operation requires the full administer permission set and counts against
// the caller's rate budget.
var routePolicies = map[string]policy{
	"ids":      {RequireAdmin: false, RateLimited: false},
	"info":     {RequireAdmin: false, RateLimited: false},
	"remove":   {RequireAdmin: true, RateLimited: true},
	"upload":   {RequireAdmin: true, RateLimited: true},
	"download": {RequireAdmin: true, RateLimited: true},
}

// RateLimiter bounds how often a caller may hit the gated operations.
type RateLimiter interface {
	Allow(key string) bool
}

// DatasourceHandlers exposes the admin API over HTTP. All collaborators are
// injected at construction.
type DatasourceHandlers struct {
	service *Service
	auth    *Authenticator
	limiter RateLimiter
	log     *logger.Logger
}

// NewDatasourceHandlers wires the HTTP layer around a service, an
// authenticator, and a rate limiter.
func NewDatasourceHandlers(svc *Service, auth *Authenticator, limiter RateLimiter) *DatasourceHandlers {
	return &DatasourceHandlers{
		service: svc,
		auth:    auth,
		limiter: limiter,
		log:     logger.New("olap-admin-api"),
	}
}

// RegisterRoutes attaches the admin API routes to the router.
func (h *DatasourceHandlers) RegisterRoutes(router *mux.Router) {
	api := router.PathPrefix(APIPrefix).Subrouter()
	api.HandleFunc("/ids", h.HandleListIDs).Methods("GET")
	api.HandleFunc("/postSchema", h.HandleUploadSchema).Methods("POST")
	api.HandleFunc("/{id}/getOlap4jServerInfo", h.HandleServerInfo).Methods("GET")
	api.HandleFunc("/{id}/remove", h.HandleRemove).Methods("POST")
	api.HandleFunc("/{id}/download", h.HandleDownload).Methods("GET")
}

// gate applies the policy table entry for operation. It returns the caller
// when the request may proceed, or nil after writing the refusal.
func (h *DatasourceHandlers) gate(w http.ResponseWriter, r *http.Request, operation, reqID string) *Caller {
	caller, err := h.auth.CallerFromRequest(r)
	if err != nil {
		authDeniedTotal.WithLabelValues(operation).Inc()
		writeJSONError(w, http.StatusUnauthorized, "invalid credentials")
		return nil
	}

	pol := routePolicies[operation]
	if pol.RequireAdmin && !caller.CanAdminister() {
		authDeniedTotal.WithLabelValues(operation).Inc()
		h.log.Warn(caller.ID, reqID, "Admin permission denied", map[string]interface{}{
			"operation": operation,
		})
		writeJSONError(w, http.StatusUnauthorized, "administer permission required")
		return nil
	}
	if pol.RateLimited && h.limiter != nil && !h.limiter.Allow(caller.ID) {
		writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return nil
	}
	return caller
}

// HandleListIDs returns the sorted ids of all registered connections.
func (h *DatasourceHandlers) HandleListIDs(w http.ResponseWriter, r *http.Request) {
	timer := startOp("ids")
	reqID := requestID(w, r)
	if h.gate(w, r, "ids", reqID) == nil {
		timer.done("denied")
		return
	}

	ids, err := h.service.ListIDs(r.Context())
	if err != nil {
		timer.done("error")
		h.log.ErrorWithCode("", reqID, "Failed to list datasource ids", http.StatusInternalServerError, err, nil)
		writeJSONError(w, http.StatusInternalServerError, "failed to list datasources")
		return
	}
	sort.Strings(ids)
	timer.done("success")
	writeNegotiated(w, r, idListView{IDs: ids}, map[string]interface{}{"ids": ids})
}

// HandleServerInfo returns the descriptor for one connection. The password
// is never included.
func (h *DatasourceHandlers) HandleServerInfo(w http.ResponseWriter, r *http.Request) {
	timer := startOp("info")
	reqID := requestID(w, r)
	if h.gate(w, r, "info", reqID) == nil {
		timer.done("denied")
		return
	}

	id := mux.Vars(r)["id"]
	info, err := h.service.Info(r.Context(), id)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			timer.done("not_found")
			writeJSONError(w, http.StatusNotFound, "datasource not found")
			return
		}
		timer.done("error")
		h.log.ErrorWithCode("", reqID, "Failed to load datasource info", http.StatusInternalServerError, err, map[string]interface{}{
			"datasource": id,
		})
		writeJSONError(w, http.StatusInternalServerError, "failed to load datasource")
		return
	}
	timer.done("success")
	writeNegotiated(w, r, serverInfoView(info), info)
}

// HandleRemove deletes a connection descriptor. Removing an id that is not
// registered succeeds; the operation is idempotent.
func (h *DatasourceHandlers) HandleRemove(w http.ResponseWriter, r *http.Request) {
	timer := startOp("remove")
	reqID := requestID(w, r)
	caller := h.gate(w, r, "remove", reqID)
	if caller == nil {
		timer.done("denied")
		return
	}

	id := mux.Vars(r)["id"]
	if err := h.service.Remove(r.Context(), id); err != nil {
		timer.done("error")
		h.log.ErrorWithCode("", reqID, "Failed to remove datasource", http.StatusInternalServerError, err, map[string]interface{}{
			"datasource": id,
		})
		writeJSONError(w, http.StatusInternalServerError, "failed to remove datasource")
		return
	}
	timer.done("success")
	h.log.Info(caller.ID, reqID, "Datasource removed", map[string]interface{}{
		"datasource": id,
	})
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "removed", "id": id})
}

// HandleUploadSchema registers a connection and stores its schema document.
// The outcome travels in the body: 3 success, 2 missing field, 1 anything
// else. The HTTP status stays 200 for all three so legacy upload forms can
// read the sentinel.
func (h *DatasourceHandlers) HandleUploadSchema(w http.ResponseWriter, r *http.Request) {
	timer := startOp("upload")
	reqID := requestID(w, r)
	caller := h.gate(w, r, "upload", reqID)
	if caller == nil {
		timer.done("denied")
		return
	}

	req, err := parseUploadForm(r)
	if err != nil {
		timer.done("error")
		h.log.Warn(caller.ID, reqID, "Unreadable upload request", map[string]interface{}{"error": err.Error()})
		writeSentinel(w, statusGeneralError)
		return
	}
	if req.Data != nil {
		defer r.MultipartForm.RemoveAll()
	}

	err = h.service.UploadSchema(r.Context(), req)
	var vErr *ValidationError
	switch {
	case err == nil:
		timer.done("success")
		h.log.Info(caller.ID, reqID, "Datasource registered", map[string]interface{}{
			"datasource": req.Name,
		})
		writeSentinel(w, statusSuccess)
	case errors.As(err, &vErr):
		timer.done("missing_field")
		writeSentinel(w, statusMissingField)
	default:
		timer.done("error")
		h.log.Error(caller.ID, reqID, "Failed to upload schema", map[string]interface{}{
			"datasource": req.Name,
			"error":      err.Error(),
		})
		writeSentinel(w, statusGeneralError)
	}
}

// HandleDownload streams the files stored for a connection, either directly
// or as a zip archive when the folder holds more than one file.
func (h *DatasourceHandlers) HandleDownload(w http.ResponseWriter, r *http.Request) {
	timer := startOp("download")
	reqID := requestID(w, r)
	caller := h.gate(w, r, "download", reqID)
	if caller == nil {
		timer.done("denied")
		return
	}

	id := mux.Vars(r)["id"]
	entries, err := h.service.SchemaFiles(r.Context(), id)
	if err != nil {
		timer.done("error")
		h.log.ErrorWithCode("", reqID, "Failed to collect datasource files", http.StatusInternalServerError, err, map[string]interface{}{
			"datasource": id,
		})
		writeJSONError(w, http.StatusInternalServerError, "failed to collect datasource files")
		return
	}
	h.log.Debug(caller.ID, reqID, "Collected datasource files", map[string]interface{}{
		"datasource": id,
		"entries":    len(entries),
	})
	if len(entries) == 0 {
		timer.done("error")
		writeJSONError(w, http.StatusInternalServerError, "no files stored for datasource")
		return
	}

	if err := writeDownload(w, h.log, id, entries); err != nil {
		// Headers may already be out; log rather than rewrite the response.
		timer.done("error")
		h.log.Error("", reqID, "Failed to stream datasource files", map[string]interface{}{
			"datasource": id,
			"error":      err.Error(),
		})
		return
	}
	timer.done("success")
}

// parseUploadForm reads the multipart postSchema form. A missing file part
// leaves Data nil so validation can report the missing field; any other
// parse failure is terminal.
func parseUploadForm(r *http.Request) (*UploadRequest, error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil, err
	}
	req := &UploadRequest{
		Name:       r.FormValue("name"),
		ClassName:  r.FormValue("className"),
		URL:        r.FormValue("url"),
		User:       r.FormValue("user"),
		Password:   r.FormValue("password"),
		Overwrite:  r.FormValue("overwrite"),
		Parameters: r.FormValue("parameters"),
	}
	file, _, err := r.FormFile("upload")
	if err == nil {
		req.Data = file
	} else if err != http.ErrMissingFile {
		return nil, err
	}
	return req, nil
}

func writeSentinel(w http.ResponseWriter, status string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(status))
}

func writeJSONError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeNegotiated renders xmlBody when the Accept header asks for XML and
// jsonBody otherwise. JSON is the default representation.
func writeNegotiated(w http.ResponseWriter, r *http.Request, xmlBody, jsonBody interface{}) {
	if strings.Contains(r.Header.Get("Accept"), "xml") {
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(xml.Header))
		xml.NewEncoder(w).Encode(xmlBody)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(jsonBody)
}

type idListView struct {
	XMLName xml.Name `xml:"ids"`
	IDs     []string `xml:"id"`
}

type xmlProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type infoView struct {
	XMLName    xml.Name      `xml:"olap4jServerInfo"`
	Name       string        `xml:"name"`
	ClassName  string        `xml:"className"`
	URL        string        `xml:"url"`
	User       string        `xml:"user,omitempty"`
	Properties []xmlProperty `xml:"properties>property,omitempty"`
}

func serverInfoView(info *registry.ServerInfo) infoView {
	view := infoView{
		Name:      info.Name,
		ClassName: info.ClassName,
		URL:       info.URL,
		User:      info.User,
	}
	keys := make([]string, 0, len(info.Properties))
	for k := range info.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		view.Properties = append(view.Properties, xmlProperty{Name: k, Value: info.Properties[k]})
	}
	return view
}

// opTimer instruments one operation with a duration histogram and an
// outcome-labelled counter.
type opTimer struct {
	operation string
	start     time.Time
}

func startOp(operation string) *opTimer {
	return &opTimer{operation: operation, start: time.Now()}
}

func (t *opTimer) done(status string) {
	datasourceOpsTotal.WithLabelValues(t.operation, status).Inc()
	datasourceOpDuration.WithLabelValues(t.operation).Observe(time.Since(t.start).Seconds())
}
