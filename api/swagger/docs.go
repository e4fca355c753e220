// Package swagger holds the OpenAPI document served under /swagger.
// Regenerate with: swag init -g cmd/api/main.go -o api/swagger
package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Login",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/service.LoginUserRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/api/logout": {
            "post": {"tags": ["auth"], "summary": "Logout", "responses": {"200": {"description": "OK"}}}
        },
        "/api/me": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["auth"], "summary": "Current principal", "responses": {"200": {"description": "OK"}}}
        },
        "/api/me/refresh": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["auth"], "summary": "Reload permissions", "responses": {"200": {"description": "OK"}}}
        },
        "/api/entities": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["records"], "summary": "Editable tables", "responses": {"200": {"description": "OK"}}}
        },
        "/api/records/{entity}": {
            "get": {
                "security": [{"BearerAuth": []}], "tags": ["records"], "summary": "Load a table",
                "parameters": [
                    {"type": "string", "name": "entity", "in": "path", "required": true},
                    {"type": "boolean", "name": "include_inactive", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}
            },
            "put": {
                "security": [{"BearerAuth": []}], "tags": ["records"], "summary": "Save edited rows",
                "parameters": [{"type": "string", "name": "entity", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}
            },
            "post": {
                "security": [{"BearerAuth": []}], "tags": ["records"], "summary": "Create a row",
                "parameters": [{"type": "string", "name": "entity", "in": "path", "required": true}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "409": {"description": "Conflict"}}
            }
        },
        "/api/records/{entity}/diff": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["records"], "summary": "Preview changes", "parameters": [{"type": "string", "name": "entity", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/records/{entity}/schema": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["records"], "summary": "Table layout", "parameters": [{"type": "string", "name": "entity", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/records/{entity}/options/{column}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["records"], "summary": "Dropdown values", "parameters": [{"type": "string", "name": "entity", "in": "path", "required": true}, {"type": "string", "name": "column", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/records/{entity}/export": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["records"], "summary": "Export a table", "produces": ["application/octet-stream"], "parameters": [{"type": "string", "name": "entity", "in": "path", "required": true}, {"type": "string", "name": "format", "in": "query"}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/records/{entity}/{id}/deactivate": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["records"], "summary": "Deactivate a row", "parameters": [{"type": "string", "name": "entity", "in": "path", "required": true}, {"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/records/{entity}/{id}/reactivate": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["records"], "summary": "Reactivate a row", "parameters": [{"type": "string", "name": "entity", "in": "path", "required": true}, {"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/users": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["users"], "summary": "List users", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["users"], "summary": "Create a user", "responses": {"201": {"description": "Created"}}}
        },
        "/api/roles": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["roles"], "summary": "List roles", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["roles"], "summary": "Create a role", "responses": {"201": {"description": "Created"}}}
        },
        "/api/roles/{id}/permissions": {
            "put": {"security": [{"BearerAuth": []}], "tags": ["roles"], "summary": "Replace a role's permissions", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/page-groups": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["roles"], "summary": "List page groups", "responses": {"200": {"description": "OK"}}}
        },
        "/api/audit-logs": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["audit"], "summary": "Activity log", "responses": {"200": {"description": "OK"}}}
        },
        "/api/stock/summary": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["stock"], "summary": "Stock summary", "responses": {"200": {"description": "OK"}}}
        }
    },
    "definitions": {
        "response.Response": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "status_code": {"type": "integer"},
                "data": {},
                "error": {"type": "string"},
                "fields": {"type": "array", "items": {"type": "string"}}
            }
        },
        "service.LoginUserRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "POMI API",
	Description:      "Reference data, lots and access administration for the Culture Pom produce back office.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
