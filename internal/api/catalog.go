package api

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/itemsapp/itemctl/internal/resolve"
)

// CatalogAPIVersion is the backend OpenAPI version the catalog was written against.
const CatalogAPIVersion = "0.1.0"

// Endpoint is one entry of the typed endpoint catalog.
type Endpoint struct {
	Name        string   `json:"name"`
	Method      string   `json:"method"`
	Path        string   `json:"path"`
	Form        bool     `json:"form,omitempty"`
	PathParams  []string `json:"path_params,omitempty"`
	QueryParams []string `json:"query_params,omitempty"`
	Summary     string   `json:"summary"`
}

// Expand substitutes {name} placeholders with path-escaped values.
func (e Endpoint) Expand(params map[string]string) (string, error) {
	path := e.Path
	for _, name := range e.PathParams {
		value, ok := params[name]
		if !ok || strings.TrimSpace(value) == "" {
			return "", &MissingPathParamError{Endpoint: e.Name, Param: name}
		}
		path = strings.ReplaceAll(path, "{"+name+"}", url.PathEscape(value))
	}
	return path, nil
}

// Options builds RequestOptions for this endpoint.
func (e Endpoint) Options(pathParams map[string]string, query map[string]any, body any) (RequestOptions, error) {
	path, err := e.Expand(pathParams)
	if err != nil {
		return RequestOptions{}, err
	}
	return RequestOptions{
		Method: e.Method,
		URL:    path,
		Params: query,
		Data:   body,
	}, nil
}

// UnknownEndpointError is returned by Lookup for names not in the catalog.
type UnknownEndpointError struct {
	Name        string
	Suggestions []string
}

func (e *UnknownEndpointError) Error() string {
	msg := fmt.Sprintf("unknown endpoint %q", e.Name)
	if len(e.Suggestions) > 0 {
		msg += "\n\nDid you mean?\n  " + strings.Join(e.Suggestions, "\n  ")
	}
	return msg
}

// MissingPathParamError is returned by Expand when a {name} placeholder has
// no value.
type MissingPathParamError struct {
	Endpoint string
	Param    string
}

func (e *MissingPathParamError) Error() string {
	return fmt.Sprintf("endpoint %s: missing path parameter %q", e.Endpoint, e.Param)
}

// EndpointCatalog is a table of endpoints keyed by name.
type EndpointCatalog []Endpoint

// Names returns the endpoint names in sorted order.
func (c EndpointCatalog) Names() []string {
	names := make([]string, len(c))
	for i, e := range c {
		names[i] = e.Name
	}
	sort.Strings(names)
	return names
}

// Lookup finds an endpoint by exact (case-insensitive) name.
func (c EndpointCatalog) Lookup(name string) (Endpoint, error) {
	for _, e := range c {
		if strings.EqualFold(e.Name, strings.TrimSpace(name)) {
			return e, nil
		}
	}
	return Endpoint{}, &UnknownEndpointError{
		Name:        name,
		Suggestions: resolve.Suggest(name, c.Names(), 3),
	}
}

func (c EndpointCatalog) mustLookup(name string) Endpoint {
	e, err := c.Lookup(name)
	if err != nil {
		panic(err)
	}
	return e
}

const (
	EndpointLoginAccessToken      = "login_access_token"
	EndpointLoginTestToken        = "login_test_token"
	EndpointUsersReadMe           = "users_read_me"
	EndpointUsersUpdateMe         = "users_update_me"
	EndpointUsersUpdatePasswordMe = "users_update_password_me"
	EndpointUsersRegister         = "users_register"
	EndpointItemsRead             = "items_read"
	EndpointItemsCreate           = "items_create"
	EndpointItemsReadOne          = "items_read_one"
	EndpointItemsUpdate           = "items_update"
	EndpointItemsDelete           = "items_delete"
	EndpointUtilsHealthCheck      = "utils_health_check"
)

// Catalog lists every endpoint the client knows how to call.
var Catalog = EndpointCatalog{
	{Name: EndpointLoginAccessToken, Method: http.MethodPost, Path: "/api/v1/login/access-token", Form: true, Summary: "OAuth2 password login, returns an access token"},
	{Name: EndpointLoginTestToken, Method: http.MethodPost, Path: "/api/v1/login/test-token", Summary: "Validate the current access token"},
	{Name: EndpointUsersReadMe, Method: http.MethodGet, Path: "/api/v1/users/me", Summary: "Get the current user"},
	{Name: EndpointUsersUpdateMe, Method: http.MethodPatch, Path: "/api/v1/users/me", Summary: "Update the current user"},
	{Name: EndpointUsersUpdatePasswordMe, Method: http.MethodPatch, Path: "/api/v1/users/me/password", Summary: "Change the current user's password"},
	{Name: EndpointUsersRegister, Method: http.MethodPost, Path: "/api/v1/users/signup", Summary: "Create a new user without login"},
	{Name: EndpointItemsRead, Method: http.MethodGet, Path: "/api/v1/items/", QueryParams: []string{"skip", "limit"}, Summary: "List items"},
	{Name: EndpointItemsCreate, Method: http.MethodPost, Path: "/api/v1/items/", Summary: "Create an item"},
	{Name: EndpointItemsReadOne, Method: http.MethodGet, Path: "/api/v1/items/{id}", PathParams: []string{"id"}, Summary: "Get an item by ID"},
	{Name: EndpointItemsUpdate, Method: http.MethodPut, Path: "/api/v1/items/{id}", PathParams: []string{"id"}, Summary: "Update an item"},
	{Name: EndpointItemsDelete, Method: http.MethodDelete, Path: "/api/v1/items/{id}", PathParams: []string{"id"}, Summary: "Delete an item"},
	{Name: EndpointUtilsHealthCheck, Method: http.MethodGet, Path: "/api/v1/utils/health-check/", Summary: "Backend health check"},
}
