// Package docs holds the OpenAPI description served at /docs.
// Regenerate with: swag init -g cmd/gagwatch/main.go
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {"name": "gagwatch"},
        "license": {"name": "MIT"},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "tags": ["health"],
                "summary": "Health check",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"type": "object"}}}
            }
        },
        "/health/cache": {
            "get": {
                "tags": ["health"],
                "summary": "Cache health check",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"type": "object"}}}
            }
        },
        "/health/db": {
            "get": {
                "tags": ["health"],
                "summary": "Database health check",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "503": {"description": "Service Unavailable", "schema": {"type": "object"}}
                }
            }
        },
        "/api/v1/stock": {
            "get": {
                "tags": ["query"],
                "summary": "Current stock",
                "description": "Fetches stock and restock countdowns and returns the rendered message. Never mentions the watch-list.",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/notifications.Message"}},
                    "304": {"description": "Not Modified"},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/respond.ErrorResponse"}}
                }
            }
        },
        "/api/v1/weather": {
            "get": {
                "tags": ["query"],
                "summary": "Active weather and events",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/notifications.Message"}},
                    "304": {"description": "Not Modified"},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/respond.ErrorResponse"}}
                }
            }
        },
        "/api/v1/history": {
            "get": {
                "tags": ["history"],
                "summary": "Delivery history",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "integer", "default": 20, "description": "Maximum rows (1-200)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/respond.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/respond.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "notifications.Section": {
            "type": "object",
            "properties": {
                "header": {"type": "string"},
                "text": {"type": "string"}
            }
        },
        "notifications.Message": {
            "type": "object",
            "properties": {
                "kind": {"type": "string", "enum": ["stock", "events", "failure"]},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "sections": {"type": "array", "items": {"$ref": "#/definitions/notifications.Section"}},
                "mention": {"type": "string"},
                "footer": {"type": "string"},
                "timestamp": {"type": "string", "format": "date-time"},
                "color": {"type": "integer"}
            }
        },
        "respond.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {
                    "type": "object",
                    "properties": {
                        "code": {"type": "string"},
                        "message": {"type": "string"},
                        "detail": {"type": "string"}
                    }
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8000",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "gagwatch API",
	Description:      "On-demand Grow a Garden stock and weather queries, delivery history and health checks.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
