package handlers

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
)

//go:embed openapi.json
var openAPISpec []byte

// apiDocument is the embedded OpenAPI document with its servers list pointed
// at the public base URL, plus a strong ETag over the result.
type apiDocument struct {
	once sync.Once
	body []byte
	etag string
}

func (d *apiDocument) load(publicBaseURL string) ([]byte, string) {
	d.once.Do(func() {
		d.body = openAPISpec
		if base := strings.TrimRight(publicBaseURL, "/"); base != "" {
			var doc map[string]any
			if err := json.Unmarshal(openAPISpec, &doc); err == nil {
				doc["servers"] = []map[string]string{{"url": base}}
				if b, err := json.MarshalIndent(doc, "", "  "); err == nil {
					d.body = b
				}
			}
		}
		sum := sha256.Sum256(d.body)
		d.etag = `"` + hex.EncodeToString(sum[:8]) + `"`
	})
	return d.body, d.etag
}

// OpenAPIJSON serves the API description. Clients that send the current ETag
// get 304.
func (a *App) OpenAPIJSON(w http.ResponseWriter, r *http.Request) {
	body, etag := a.apiDoc.load(a.Config.PublicBaseURL)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, max-age=300")
	if match := r.Header.Get("If-None-Match"); match != "" && strings.Contains(match, etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

const apiDocsPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>WooVideo API</title>
<style>body{margin:0}redoc{display:block;height:100vh}</style>
</head>
<body>
<redoc spec-url="/v1/openapi.json" hide-download-button></redoc>
<script src="https://cdn.jsdelivr.net/npm/redoc@2.2.0/bundles/redoc.standalone.js"></script>
</body>
</html>`

// OpenAPIDocs renders the API description in the browser.
func (a *App) OpenAPIDocs(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(apiDocsPage))
}
