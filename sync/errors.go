package sync

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// AuthError is returned when NetBox rejects the API token (401/403).
type AuthError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("netbox rejected credentials for %s: status %d", e.URL, e.StatusCode)
}

// NetworkError is returned when a NetBox instance cannot be reached.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("failed to reach netbox at %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// APIError is returned for any other unexpected NetBox response.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("netbox %s %s failed: %v", e.Method, e.URL, e.Err)
	}
	return fmt.Sprintf("netbox %s %s failed: status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error { return e.Err }

// FormatError is returned when a record file cannot be read or does not
// hold a JSON array of records.
type FormatError struct {
	Path string
	Err  error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid record file %s: %v", e.Path, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// ValidationError is returned when the destination rejects a single record.
type ValidationError struct {
	Key        string
	StatusCode int
	Body       string
	Err        error
}

func (e *ValidationError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("record %q rejected: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("record %q rejected: status %d: %s", e.Key, e.StatusCode, e.Body)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ErrObjectNotFound is returned when the destination has no object a
// local context record can be applied to.
var ErrObjectNotFound = errors.New("object not found on destination")

// IsFatal reports whether err must abort the whole run.
func IsFatal(err error) bool {
	var authErr *AuthError
	var networkErr *NetworkError
	var formatErr *FormatError
	return errors.As(err, &authErr) || errors.As(err, &networkErr) || errors.As(err, &formatErr)
}

// IsNotFound reports whether err is a 404 from NetBox.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// checkNetBoxStatus is the response validator used for every NetBox request.
func checkNetBoxStatus(res *http.Response) error {
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
	u := res.Request.URL.Redacted()
	if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
		return &AuthError{URL: u, StatusCode: res.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return &APIError{
		Method:     res.Request.Method,
		URL:        u,
		StatusCode: res.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}

// classifyError maps an error returned by a requests builder onto the
// error taxonomy.
func classifyError(method, rawURL string, err error) error {
	if err == nil {
		return nil
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &NetworkError{URL: rawURL, Err: urlErr.Err}
	}
	return &APIError{Method: method, URL: rawURL, Err: err}
}

// asValidationError converts a non fatal per record failure into a
// ValidationError carrying the record key.
func asValidationError(key string, err error) error {
	if err == nil || IsFatal(err) {
		return err
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
		return &ValidationError{Key: key, StatusCode: apiErr.StatusCode, Body: apiErr.Body, Err: apiErr}
	}
	return &ValidationError{Key: key, Err: err}
}
