// Package docs holds the OpenAPI document served at /swagger/index.html.
// Regenerate with: swag init -g cmd/api/main.go -o internal/docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/auth/register": {"post": {"tags": ["auth"], "summary": "Register a new investor", "responses": {"201": {"description": "Profile registered and token generated"}, "400": {"description": "Invalid input"}, "409": {"description": "Email already registered"}}}},
        "/auth/login": {"post": {"tags": ["auth"], "summary": "Login", "responses": {"200": {"description": "Authenticated"}, "401": {"description": "Invalid credentials"}}}},
        "/profile": {"get": {"security": [{"BearerAuth": []}], "tags": ["profile"], "summary": "Get profile", "responses": {"200": {"description": "Profile"}}}},
        "/positions": {"get": {"security": [{"BearerAuth": []}], "tags": ["positions"], "summary": "List positions", "parameters": [{"type": "integer", "name": "page", "in": "query"}, {"type": "integer", "name": "page_size", "in": "query"}], "responses": {"200": {"description": "Paginated positions"}}}},
        "/positions/summary": {"get": {"security": [{"BearerAuth": []}], "tags": ["positions"], "summary": "Portfolio summary", "responses": {"200": {"description": "Summary"}}}},
        "/positions/{id}": {"get": {"security": [{"BearerAuth": []}], "tags": ["positions"], "summary": "Get position", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "Position"}, "404": {"description": "Position not found"}}}},
        "/admin/positions": {"post": {"security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "Create position", "responses": {"201": {"description": "Position created"}, "400": {"description": "Invalid input"}, "403": {"description": "Admin access required"}}}},
        "/admin/positions/{id}": {"put": {"security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "Update position", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "Position updated"}, "409": {"description": "Version conflict or invalid transition"}}}},
        "/admin/positions/{id}/close": {"post": {"security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "Close position", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "Position closed"}, "409": {"description": "Position is not Live"}}}},
        "/admin/positions/{id}/archive": {"post": {"security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "Archive position", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "Position archived"}}}},
        "/admin/positions/{id}/visibility": {"put": {"security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "Change visibility", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "Visibility changed"}}}},
        "/admin/positions/{id}/price": {"put": {"security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "Update market price", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "Price updated"}, "409": {"description": "Position is closed or archived"}}}},
        "/admin/audit-logs": {"get": {"security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "List audit log", "parameters": [{"type": "string", "name": "position_id", "in": "query"}, {"type": "integer", "name": "page", "in": "query"}, {"type": "integer", "name": "page_size", "in": "query"}], "responses": {"200": {"description": "Paginated audit entries"}}}},
        "/admin/profiles/{id}/role": {"put": {"security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "Set profile role", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "Role changed"}}}},
        "/pipeline/positions": {"get": {"security": [{"ApiKeyAuth": []}], "tags": ["pipeline"], "summary": "Pricing targets", "responses": {"200": {"description": "Targets"}, "401": {"description": "Invalid API key"}, "503": {"description": "Pipeline not configured"}}}},
        "/pipeline/prices": {"post": {"security": [{"ApiKeyAuth": []}], "tags": ["pipeline"], "summary": "Record market prices", "responses": {"200": {"description": "Batch outcome"}, "400": {"description": "Invalid input"}}}}
    },
    "securityDefinitions": {
        "ApiKeyAuth": {"type": "apiKey", "name": "X-API-Key", "in": "header"},
        "BearerAuth": {"description": "Type \"Bearer\" followed by a space and JWT token.", "type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Investor Portal API",
	Description:      "Position ledger, portfolio analytics and audit trail for the investor portal.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
