// Package swagger holds the generated-style OpenAPI document served at
// /docs. Regenerate with `swag init -g cmd/api/main.go -o api/swagger`
// after changing handler annotations.
package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{escape .Description}}",
        "version": "{{.Version}}"
    },
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["auth"],
                "summary": "Register a new account",
                "parameters": [
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Bad Request"},
                    "409": {"description": "Conflict"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Authenticate",
                "parameters": [
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/auth/change-password": {
            "post": {
                "tags": ["auth"],
                "summary": "Change password",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "No Content"},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["auth"],
                "summary": "Current user",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/therapists": {
            "get": {
                "tags": ["therapists"],
                "summary": "List therapists",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "specialization", "in": "query", "type": "string"},
                    {"name": "available", "in": "query", "type": "boolean"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/therapists/{id}": {
            "get": {
                "tags": ["therapists"],
                "summary": "Get a therapist",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/therapists/{id}/profile": {
            "put": {
                "tags": ["therapists"],
                "summary": "Create or update a therapist profile",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Forbidden"}
                }
            }
        },
        "/therapists/{id}/availability": {
            "get": {
                "tags": ["availability"],
                "summary": "List availability windows",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/therapists/{id}/slots": {
            "get": {
                "tags": ["availability"],
                "summary": "Bookable slots for a date",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "date", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request"}
                }
            }
        },
        "/availability": {
            "post": {
                "tags": ["availability"],
                "summary": "Create an availability window",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created"},
                    "403": {"description": "Forbidden"}
                }
            }
        },
        "/availability/{id}": {
            "put": {
                "tags": ["availability"],
                "summary": "Update an availability window",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found"}
                }
            },
            "delete": {
                "tags": ["availability"],
                "summary": "Delete an availability window",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/appointments": {
            "post": {
                "tags": ["appointments"],
                "summary": "Book an appointment",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Conflict"}
                }
            },
            "get": {
                "tags": ["appointments"],
                "summary": "List appointments",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "date", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/appointments/{id}": {
            "get": {
                "tags": ["appointments"],
                "summary": "Get an appointment",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Forbidden"},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/appointments/{id}/status": {
            "patch": {
                "tags": ["appointments"],
                "summary": "Update appointment status",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Conflict"}
                }
            }
        },
        "/appointments/{id}/audit": {
            "get": {
                "tags": ["dashboard"],
                "summary": "Appointment audit trail",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Forbidden"}
                }
            }
        },
        "/notifications": {
            "get": {
                "tags": ["notifications"],
                "summary": "List notifications",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "unread", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/notifications/unread-count": {
            "get": {
                "tags": ["notifications"],
                "summary": "Unread notification count",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/notifications/{id}/read": {
            "post": {
                "tags": ["notifications"],
                "summary": "Mark a notification read",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/dashboard/summary": {
            "get": {
                "tags": ["dashboard"],
                "summary": "Dashboard summary",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/exports/appointments": {
            "get": {
                "tags": ["exports"],
                "summary": "Export appointments",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "format", "in": "query", "required": true, "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "date", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Forbidden"}
                }
            }
        }
    },
    "definitions": {
        "RegisterRequest": {
            "type": "object",
            "required": ["email", "password", "full_name"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"},
                "full_name": {"type": "string"},
                "phone": {"type": "string"},
                "role": {"type": "string", "enum": ["patient", "therapist"]}
            }
        },
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Fisiohome API",
	Description:      "Booking backend for home physiotherapy visits.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
