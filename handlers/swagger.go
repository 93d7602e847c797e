package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the docstore service.
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
    <title>jobboard-docstore Swagger</title>
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
  "info": { "title": "jobboard-docstore", "version": "v0.1.0" },
  "paths": {
    "/api/collections/{name}/documents/{id}": {
      "get": { "summary": "Get one document by _id", "responses": { "200": { "description": "document" }, "404": { "description": "not found" } } }
    },
    "/api/collections/{name}/find": {
      "post": {
        "summary": "Find documents",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"filter":{"type":"object"},"sort":{"type":"object"},"skip":{"type":"integer"},"limit":{"type":"integer"},"projection":{"type":"object"}}}}}},
        "responses": { "200": { "description": "matching documents" }, "400": { "description": "bad request" } }
      }
    },
    "/api/collections/{name}/count": {
      "post": { "summary": "Count documents", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"filter":{"type":"object"}}}}}}, "responses": { "200": { "description": "count" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check (store ping)", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "metrics" } } } }
  }
}`
