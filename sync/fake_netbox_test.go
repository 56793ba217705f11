package sync

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	gosync "sync"
	"testing"
)

const testToken = "0123456789abcdef"

// fakeNetBox is an in-memory NetBox API covering the list, filter,
// create and update behaviour the sync package relies on.
type fakeNetBox struct {
	mu       gosync.Mutex
	server   *httptest.Server
	objects  map[string][]map[string]interface{} // list path -> objects
	nextID   int
	requests []string
	// reject makes create/update fail with 400 for objects with these names.
	reject map[string]bool
	// duplicateFirst repeats the first object of every page after the first.
	duplicateFirst bool
	// revokeAfterCreates answers 403 to every request once this many
	// objects have been created.
	revokeAfterCreates int
	created            int
}

func newFakeNetBox(t *testing.T) *fakeNetBox {
	f := &fakeNetBox{
		objects: make(map[string][]map[string]interface{}),
		nextID:  100,
		reject:  make(map[string]bool),
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeNetBox) instance() Instance {
	return Instance{URL: f.server.URL, Token: testToken}
}

// seed adds object to the list at path, e.g. "/api/extras/config-contexts/".
func (f *fakeNetBox) seed(path string, object map[string]interface{}) map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := object["id"]; !ok {
		f.nextID++
		object["id"] = float64(f.nextID)
	}
	f.objects[path] = append(f.objects[path], object)
	return object
}

func (f *fakeNetBox) list(path string) []map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]interface{}(nil), f.objects[path]...)
}

func (f *fakeNetBox) requestLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func (f *fakeNetBox) countRequests(method string) int {
	n := 0
	for _, r := range f.requestLog() {
		if strings.HasPrefix(r, method+" ") {
			n++
		}
	}
	return n
}

func (f *fakeNetBox) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.RequestURI())

	revoked := f.revokeAfterCreates > 0 && f.created >= f.revokeAfterCreates
	if revoked || r.Header.Get("Authorization") != "Token "+testToken {
		writeJSON(w, http.StatusForbidden, map[string]interface{}{"detail": "Invalid token"})
		return
	}

	if !strings.HasPrefix(r.URL.Path, "/api/") {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"detail": "Not found."})
		return
	}

	listPath, id, isDetail := splitPath(r.URL.Path)
	switch {
	case r.Method == http.MethodGet && !isDetail:
		f.handleList(w, r, listPath)
	case r.Method == http.MethodGet && isDetail:
		if obj := f.find(listPath, id); obj != nil {
			writeJSON(w, http.StatusOK, obj)
			return
		}
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"detail": "Not found."})
	case r.Method == http.MethodPost && !isDetail:
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"detail": err.Error()})
			return
		}
		if name, _ := body["name"].(string); f.reject[name] {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"data": []string{"invalid"}})
			return
		}
		f.nextID++
		f.created++
		body["id"] = float64(f.nextID)
		f.objects[listPath] = append(f.objects[listPath], body)
		writeJSON(w, http.StatusCreated, body)
	case r.Method == http.MethodPatch && isDetail:
		obj := f.find(listPath, id)
		if obj == nil {
			writeJSON(w, http.StatusNotFound, map[string]interface{}{"detail": "Not found."})
			return
		}
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"detail": err.Error()})
			return
		}
		if name, _ := obj["name"].(string); f.reject[name] {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"data": []string{"invalid"}})
			return
		}
		for k, v := range body {
			obj[k] = v
		}
		writeJSON(w, http.StatusOK, obj)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]interface{}{"detail": "not allowed"})
	}
}

func (f *fakeNetBox) handleList(w http.ResponseWriter, r *http.Request, listPath string) {
	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 {
		limit = 50
	}
	offset, _ := strconv.Atoi(query.Get("offset"))

	var matched []map[string]interface{}
	for _, obj := range f.objects[listPath] {
		ok := true
		for key, values := range query {
			// NetBox ignores empty filter values
			if key == "limit" || key == "offset" || values[0] == "" {
				continue
			}
			if fmt.Sprint(obj[key]) != values[0] {
				ok = false
				break
			}
		}
		if ok {
			matched = append(matched, obj)
		}
	}

	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	var page []map[string]interface{}
	if offset < len(matched) {
		page = append(page, matched[offset:end]...)
	}
	if f.duplicateFirst && offset > 0 && len(matched) > 0 {
		page = append([]map[string]interface{}{matched[0]}, page...)
	}
	var next interface{}
	if end < len(matched) {
		q := r.URL.Query()
		q.Set("limit", strconv.Itoa(limit))
		q.Set("offset", strconv.Itoa(end))
		next = f.server.URL + listPath + "?" + q.Encode()
	}
	if page == nil {
		page = []map[string]interface{}{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(matched),
		"next":     next,
		"previous": nil,
		"results":  page,
	})
}

func (f *fakeNetBox) find(listPath string, id int) map[string]interface{} {
	for _, obj := range f.objects[listPath] {
		if v, ok := obj["id"].(float64); ok && int(v) == id {
			return obj
		}
	}
	return nil
}

// splitPath splits "/api/dcim/devices/7/" into ("/api/dcim/devices/", 7, true).
func splitPath(p string) (string, int, bool) {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	if len(parts) == 4 {
		if id, err := strconv.Atoi(parts[3]); err == nil {
			return "/" + strings.Join(parts[:3], "/") + "/", id, true
		}
	}
	return "/" + strings.Join(parts, "/") + "/", 0, false
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// newTestClient returns a client for instance with the embedded defaults.
func newTestClient(t *testing.T, instance Instance, label string) *NetBoxClient {
	t.Helper()
	config, err := YAMLConfigUnmarshaler{}.Unmarshal(mustDefaults(t))
	if err != nil {
		t.Fatalf("failed to load defaults: %v", err)
	}
	return NewNetBoxClient(&SyncContext{Config: config, RunID: "test"}, instance, label)
}

func mustDefaults(t *testing.T) ConfigFile {
	t.Helper()
	f, err := DefaultEmbeddedConfig.MustFindDefaultsConfigFile()
	if err != nil {
		t.Fatalf("failed to read defaults: %v", err)
	}
	return f
}
