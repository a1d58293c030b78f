// Package compat compares the backend's advertised API version with the
// version the endpoint catalog was written against.
package compat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/mod/semver"

	"github.com/itemsapp/itemctl/internal/api"
)

const (
	OpenAPIPath  = "/api/v1/openapi.json"
	CheckTimeout = 5 * time.Second
)

// Result describes how the backend version relates to the catalog.
type Result struct {
	CatalogVersion string `json:"catalog_version"`
	ServerVersion  string `json:"server_version"`
	Compatible     bool   `json:"compatible"`
	// ServerNewer is set when the backend is ahead of the catalog.
	ServerNewer bool   `json:"server_newer"`
	Note        string `json:"note,omitempty"`
}

// Check fetches the backend OpenAPI document through the authenticated
// pipeline and compares its info.version with api.CatalogAPIVersion.
func Check(ctx context.Context, r api.Requester) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, CheckTimeout)
	defer cancel()

	body, _, err := r.Do(ctx, api.RequestOptions{Method: http.MethodGet, URL: OpenAPIPath})
	if err != nil {
		return nil, fmt.Errorf("fetch API schema: %w", err)
	}
	version := gjson.GetBytes(body, "info.version")
	if !version.Exists() || strings.TrimSpace(version.String()) == "" {
		return nil, errors.New("API schema has no info.version")
	}
	return Compare(api.CatalogAPIVersion, version.String()), nil
}

// Compare reports whether a server version is compatible with the catalog
// version. Versions must share a major version; below v1 the minor version
// must match as well.
func Compare(catalogVersion, serverVersion string) *Result {
	res := &Result{
		CatalogVersion: strings.TrimPrefix(catalogVersion, "v"),
		ServerVersion:  strings.TrimPrefix(serverVersion, "v"),
	}
	catalog := normalizeVersion(catalogVersion)
	server := normalizeVersion(serverVersion)
	if !semver.IsValid(catalog) || !semver.IsValid(server) {
		res.Note = "version is not semantic; compatibility unknown"
		return res
	}

	res.ServerNewer = semver.Compare(server, catalog) > 0
	if semver.Major(catalog) == "v0" {
		res.Compatible = semver.MajorMinor(catalog) == semver.MajorMinor(server)
	} else {
		res.Compatible = semver.Major(catalog) == semver.Major(server)
	}
	if !res.Compatible {
		res.Note = fmt.Sprintf("client was built for API %s", res.CatalogVersion)
	}
	return res
}

func normalizeVersion(v string) string {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "v") {
		return "v" + v
	}
	return v
}
