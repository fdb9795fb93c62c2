package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the search service.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>ocrsearch - Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "ocrsearch", "version": "v0.1.0" },
  "paths": {
    "/api/upload": {
      "post": {
        "summary": "Upload a PDF and OCR its pages",
        "parameters": [ { "name": "async", "in": "query", "schema": { "type": "boolean" }, "description": "return 202 and process in the background" } ],
        "requestBody": { "content": { "multipart/form-data": { "schema": { "type": "object", "properties": { "pdf": { "type": "string", "format": "binary" } }, "required": ["pdf"] } } } },
        "responses": {
          "200": { "description": "ingested", "content": { "application/json": { "schema": { "type": "object", "properties": { "document_id": {"type":"integer"}, "pages_processed": {"type":"integer"}, "page_ids": {"type":"array","items":{"type":"integer"}}, "seconds": {"type":"number"} } } } } },
          "202": { "description": "accepted; poll status_url" },
          "400": { "description": "missing part, empty filename, not a PDF or too large" },
          "500": { "description": "ingestion failed; body carries a stage code" }
        }
      }
    },
    "/api/search": {
      "get": {
        "summary": "Search recognized page text",
        "parameters": [ { "name": "q", "in": "query", "schema": { "type": "string" } } ],
        "responses": { "200": { "description": "used_fulltext flag and up to 100 results with snippet and match count" } }
      }
    },
    "/api/recent": { "get": { "summary": "Most recently stored pages", "responses": { "200": { "description": "total page count and up to 50 previews" } } } },
    "/api/list/documents": { "get": { "summary": "List documents, newest first", "responses": { "200": { "description": "documents with page counts and status" } } } },
    "/api/page/{id}": {
      "get": {
        "summary": "Page detail",
        "parameters": [ { "name": "id", "in": "path", "required": true, "schema": { "type": "integer" } } ],
        "responses": { "200": { "description": "page text and image URLs" }, "404": { "description": "Not found" } }
      }
    },
    "/api/documents/{id}/status": {
      "get": {
        "summary": "Processing state of a document",
        "parameters": [ { "name": "id", "in": "path", "required": true, "schema": { "type": "integer" } } ],
        "responses": { "200": { "description": "pending, running, failed, indexed or unindexed" }, "404": { "description": "Not found" } }
      }
    },
    "/api/documents/{id}": {
      "delete": {
        "summary": "Delete a document, its pages and files",
        "parameters": [ { "name": "id", "in": "path", "required": true, "schema": { "type": "integer" } } ],
        "responses": { "204": { "description": "deleted" }, "404": { "description": "Not found" }, "409": { "description": "still processing" } }
      }
    },
    "/page-image/{id}": {
      "get": {
        "summary": "Regular page rendition",
        "parameters": [ { "name": "id", "in": "path", "required": true, "schema": { "type": "integer" } } ],
        "responses": { "200": { "description": "PNG", "content": { "image/png": {} } }, "302": { "description": "archive redirect" }, "404": { "description": "Not found" } }
      }
    },
    "/page-zoom-image/{id}": {
      "get": {
        "summary": "Zoomed page rendition",
        "parameters": [ { "name": "id", "in": "path", "required": true, "schema": { "type": "integer" } } ],
        "responses": { "200": { "description": "PNG", "content": { "image/png": {} } }, "302": { "description": "archive redirect" }, "404": { "description": "Not found" } }
      }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "text exposition" } } } }
  }
}`
