package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

const (
	contentTypeJSON = "application/json"
	contentTypeForm = "application/x-www-form-urlencoded"
)

var absoluteURLPattern = regexp.MustCompile(`^https?://`)

// RequestOptions describes a single call before normalization.
//
// Data wins over Body when both are set. A nil interface means "no payload";
// any non-nil value (including an empty map or a typed nil pointer) is sent.
// A url.Values payload is sent form-encoded instead of as JSON.
type RequestOptions struct {
	URL     string
	Method  string
	Body    any
	Data    any
	Headers map[string]string
	Params  map[string]any
}

// NormalizedRequest is the fully resolved request handed to the transport.
type NormalizedRequest struct {
	URL     string
	Method  string
	Headers http.Header
	Payload []byte
	HasBody bool
	Form    bool
}

// Normalize resolves the URL against baseURL, serializes query params, and
// encodes the payload. Headers only carry what the caller supplied; auth and
// content negotiation are added by the client.
func Normalize(baseURL string, opts RequestOptions) (*NormalizedRequest, error) {
	method := strings.ToUpper(strings.TrimSpace(opts.Method))
	if method == "" {
		method = http.MethodGet
	}

	fullURL := opts.URL
	if !absoluteURLPattern.MatchString(fullURL) {
		fullURL = baseURL + fullURL
	}
	if query := EncodeParams(opts.Params); query != "" {
		fullURL += "?" + query
	}

	norm := &NormalizedRequest{
		URL:     fullURL,
		Method:  method,
		Headers: http.Header{},
	}
	for k, v := range opts.Headers {
		norm.Headers.Set(k, v)
	}

	payload := opts.Body
	if opts.Data != nil {
		payload = opts.Data
	}
	if payload == nil {
		return norm, nil
	}

	switch form := payload.(type) {
	case url.Values:
		norm.Payload = []byte(form.Encode())
		norm.HasBody = true
		norm.Form = true
		return norm, nil
	case *url.Values:
		if form != nil {
			norm.Payload = []byte(form.Encode())
		}
		norm.HasBody = true
		norm.Form = true
		return norm, nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	norm.Payload = data
	norm.HasBody = true
	return norm, nil
}

// EncodeParams converts params to a URL-encoded query string. Nil values and
// nil pointers are dropped; keys are emitted in sorted order.
func EncodeParams(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}
	values := url.Values{}
	for key, raw := range params {
		s, ok := paramString(raw)
		if !ok {
			continue
		}
		values.Set(key, s)
	}
	return values.Encode()
}

func paramString(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return "", false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), true
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), true
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 32), true
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), true
	}
	if s, ok := rv.Interface().(fmt.Stringer); ok {
		return s.String(), true
	}
	return fmt.Sprint(rv.Interface()), true
}
