package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/carlmjohnson/requests"
	"github.com/tidwall/gjson"
)

const ConfigContextsPath = "api/extras/config-contexts/"

// QueryParam is a single filter passed to a NetBox list endpoint.
type QueryParam struct {
	Key   string
	Value string
}

// NetBoxClient handles all NetBox API operations against one instance.
// It embeds *SyncContext for shared run configuration.
type NetBoxClient struct {
	*SyncContext
	Instance Instance
	// Label names the instance in logs and recordings, e.g. "source".
	Label string
}

func NewNetBoxClient(sc *SyncContext, instance Instance, label string) *NetBoxClient {
	return &NetBoxClient{SyncContext: sc, Instance: instance, Label: label}
}

// BaseURL returns the instance URL with a trailing slash so relative API
// paths resolve below any path prefix NetBox is served from.
func (c *NetBoxClient) BaseURL() string {
	return strings.TrimRight(c.Instance.URL, "/") + "/"
}

func (c *NetBoxClient) authorization() string {
	scheme := c.Instance.AuthScheme
	if scheme == "" {
		scheme = "Token"
	}
	return scheme + " " + c.Instance.Token
}

func (c *NetBoxClient) pageSize() int {
	if c.SyncContext == nil || c.Config.PageSize < 1 {
		return DefaultPageSize
	}
	return c.Config.PageSize
}

// APIBuilder returns a new requests.Builder for rawURL configured with the
// instance credentials.
func (c *NetBoxClient) APIBuilder(rawURL string) *requests.Builder {
	result := requests.
		URL(rawURL).
		Client(&http.Client{Timeout: HTTPRequestTimeout}).
		Header("Authorization", c.authorization()).
		Accept("application/json").
		AddValidator(checkNetBoxStatus)
	if c.SyncContext != nil && c.RecordRequests != "" {
		result = result.Transport(requests.Record(nil, filepath.Join(c.RecordRequests, c.Label)))
	}
	return result
}

func (c *NetBoxClient) resolve(path string) string {
	return c.BaseURL() + strings.TrimLeft(path, "/")
}

// DetailPath returns the detail path of object id below list path.
func DetailPath(path string, id int64) string {
	return strings.TrimRight(path, "/") + "/" + strconv.FormatInt(id, 10) + "/"
}

func (c *NetBoxClient) getJSON(ctx context.Context, rawURL string, params []QueryParam) (gjson.Result, error) {
	var body string
	b := c.APIBuilder(rawURL)
	for _, p := range params {
		b = b.Param(p.Key, p.Value)
	}
	err := b.ToString(&body).Fetch(ctx)
	if err != nil {
		return gjson.Result{}, classifyError(http.MethodGet, rawURL, err)
	}
	if !gjson.Valid(body) {
		log.Printf("NetBox Error: invalid json response from %s", rawURL)
		return gjson.Result{}, &APIError{Method: http.MethodGet, URL: rawURL, Err: errors.New("invalid json response")}
	}
	return gjson.Parse(body), nil
}

// List pages through a NetBox list endpoint, following the next link
// until it is exhausted, and calls visit for every result in order.
func (c *NetBoxClient) List(ctx context.Context, path string, params []QueryParam, visit func(gjson.Result) error) error {
	next := c.resolve(path)
	params = append([]QueryParam{{Key: "limit", Value: strconv.Itoa(c.pageSize())}}, params...)
	for page := 1; next != ""; page++ {
		c.debugf("%s GET %s (page %d)", c.Label, next, page)
		data, err := c.getJSON(ctx, next, params)
		if err != nil {
			return err
		}
		for _, result := range data.Get("results").Array() {
			if err := visit(result); err != nil {
				return err
			}
		}
		next = data.Get("next").String()
		// the next link carries its own query
		params = nil
	}
	return nil
}

// FindFirst returns the first object on path whose fields equal every
// query param.
func (c *NetBoxClient) FindFirst(ctx context.Context, path string, query []QueryParam) (gjson.Result, bool, error) {
	rawURL := c.resolve(path)
	data, err := c.getJSON(ctx, rawURL, query)
	if err != nil {
		return gjson.Result{}, false, err
	}
	for _, result := range data.Get("results").Array() {
		if matchesQuery(result, query) {
			return result, true, nil
		}
	}
	return gjson.Result{}, false, nil
}

func matchesQuery(object gjson.Result, query []QueryParam) bool {
	for _, p := range query {
		if object.Get(p.Key).String() != p.Value {
			return false
		}
	}
	return true
}

// Get fetches a single object. A missing object is reported as found=false.
func (c *NetBoxClient) Get(ctx context.Context, path string) (gjson.Result, bool, error) {
	data, err := c.getJSON(ctx, c.resolve(path), nil)
	if IsNotFound(err) {
		return gjson.Result{}, false, nil
	}
	if err != nil {
		return gjson.Result{}, false, err
	}
	return data, true, nil
}

// Create posts payload to the list endpoint at path and returns the new object.
func (c *NetBoxClient) Create(ctx context.Context, path string, payload string) (gjson.Result, error) {
	return c.send(ctx, http.MethodPost, c.resolve(path), payload)
}

// Update patches the object at detail path with payload.
func (c *NetBoxClient) Update(ctx context.Context, path string, payload string) (gjson.Result, error) {
	return c.send(ctx, http.MethodPatch, c.resolve(path), payload)
}

func (c *NetBoxClient) send(ctx context.Context, method string, rawURL string, payload string) (gjson.Result, error) {
	var body string
	c.debugf("%s %s %s %s", c.Label, method, rawURL, payload)
	err := c.APIBuilder(rawURL).
		Method(method).
		BodyBytes([]byte(payload)).
		ContentType("application/json").
		ToString(&body).
		Fetch(ctx)
	if err != nil {
		return gjson.Result{}, classifyError(method, rawURL, err)
	}
	return gjson.Parse(body), nil
}

// Ping checks the instance is reachable and accepts the token.
func (c *NetBoxClient) Ping(ctx context.Context) error {
	rawURL := c.resolve(ConfigContextsPath)
	_, err := c.getJSON(ctx, rawURL, []QueryParam{{Key: "limit", Value: "1"}})
	if err != nil {
		return fmt.Errorf("failed to connect to %s netbox: %w", c.Label, err)
	}
	return nil
}
