// Package docs registers the OpenAPI document served under /swagger.
// Regenerate with: swag init -g cmd/api/main.go -o docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "TailAid Support",
            "email": "support@tailaid.app"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/users": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Users"],
                "summary": "Find a user by email",
                "parameters": [
                    {"type": "string", "description": "Email address", "name": "email", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.UserDTO"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/domain.APIError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/domain.APIError"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Users"],
                "summary": "Sign up",
                "parameters": [
                    {"description": "Account", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.SignupRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.AuthResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/domain.APIError"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/domain.APIError"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Log in",
                "parameters": [
                    {"description": "Credentials", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.AuthResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/domain.APIError"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/domain.APIError"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Current user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.UserDTO"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/domain.APIError"}}
                }
            }
        },
        "/alerts": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Alerts"],
                "summary": "List alerts",
                "parameters": [
                    {"type": "string", "description": "Reporter id or email", "name": "userId", "in": "query"},
                    {"enum": ["pending", "accepted", "resolved"], "type": "string", "description": "Status", "name": "status", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.AlertDTO"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/domain.APIError"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Alerts"],
                "summary": "Report an emergency",
                "parameters": [
                    {"description": "Alert", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.CreateAlertRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.AlertDTO"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/domain.APIError"}},
                    "413": {"description": "Payload Too Large", "schema": {"$ref": "#/definitions/domain.APIError"}}
                }
            }
        },
        "/alerts/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Alerts"],
                "summary": "Get an alert",
                "parameters": [
                    {"type": "string", "description": "Alert ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.AlertDTO"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/domain.APIError"}}
                }
            },
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Alerts"],
                "summary": "Update an alert",
                "parameters": [
                    {"type": "string", "description": "Alert ID", "name": "id", "in": "path", "required": true},
                    {"description": "Fields to change", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.UpdateAlertRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.AlertDTO"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/domain.APIError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/domain.APIError"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}, {"ApiKeyAuth": []}],
                "tags": ["Alerts"],
                "summary": "Delete an alert",
                "parameters": [
                    {"type": "string", "description": "Alert ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/domain.APIError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/domain.APIError"}}
                }
            }
        },
        "/alerts/{id}/accept": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Alerts"],
                "summary": "Accept an alert",
                "parameters": [
                    {"type": "string", "description": "Alert ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.AlertDTO"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/domain.APIError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/domain.APIError"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/domain.APIError"}}
                }
            }
        },
        "/alerts/{id}/photo": {
            "get": {
                "produces": ["image/*"],
                "tags": ["Alerts"],
                "summary": "Download the alert photo",
                "parameters": [
                    {"type": "string", "description": "Alert ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/domain.APIError"}}
                }
            }
        },
        "/notes": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Notes"],
                "summary": "List notes for an alert",
                "parameters": [
                    {"type": "string", "description": "Alert ID", "name": "alertId", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.NoteDTO"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/domain.APIError"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Notes"],
                "summary": "Add a note to an alert",
                "parameters": [
                    {"description": "Note", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.CreateNoteRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.NoteDTO"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/domain.APIError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/domain.APIError"}}
                }
            }
        },
        "/facilities": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Facilities"],
                "summary": "List hospitals and rescue centers",
                "parameters": [
                    {"type": "string", "description": "Hospital, Rescue Center, hospital, rescue_center or rescue", "name": "type", "in": "query"},
                    {"type": "string", "description": "Name contains", "name": "q", "in": "query"},
                    {"type": "number", "description": "Origin latitude", "name": "lat", "in": "query"},
                    {"type": "number", "description": "Origin longitude", "name": "lng", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.FacilityDTO"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/domain.APIError"}}
                }
            }
        }
    },
    "definitions": {
        "domain.APIError": {
            "type": "object",
            "properties": {
                "type": {"type": "string"},
                "title": {"type": "string"},
                "status": {"type": "integer"},
                "detail": {"type": "string"},
                "errors": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "domain.UserDTO": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "email": {"type": "string"},
                "phone": {"type": "string"},
                "role": {"type": "string", "enum": ["user", "hospital", "rescue_center", "admin"]},
                "roleLabel": {"type": "string"},
                "address": {"type": "string"},
                "lat": {"type": "number"},
                "lng": {"type": "number"},
                "createdAt": {"type": "string"},
                "updatedAt": {"type": "string"}
            }
        },
        "domain.AuthResponse": {
            "type": "object",
            "properties": {
                "user": {"$ref": "#/definitions/domain.UserDTO"},
                "token": {"type": "string"},
                "expiresAt": {"type": "string"}
            }
        },
        "domain.SignupRequest": {
            "type": "object",
            "required": ["name", "email", "password", "phone"],
            "properties": {
                "name": {"type": "string", "maxLength": 200},
                "email": {"type": "string"},
                "password": {"type": "string", "minLength": 6, "maxLength": 72},
                "phone": {"type": "string"},
                "role": {"type": "string", "enum": ["user", "hospital", "rescue", "rescue_center"]},
                "address": {"type": "string"},
                "lat": {"type": "number", "minimum": -90, "maximum": 90},
                "lng": {"type": "number", "minimum": -180, "maximum": 180}
            }
        },
        "domain.LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "domain.AlertDTO": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "userId": {"type": "string"},
                "type": {"type": "string", "enum": ["injury", "medical", "mistreatment"]},
                "description": {"type": "string"},
                "photo": {"type": "string"},
                "status": {"type": "string", "enum": ["pending", "accepted", "resolved"]},
                "acceptedBy": {"type": "string"},
                "acceptedByName": {"type": "string"},
                "acceptedByRole": {"type": "string"},
                "acceptedAt": {"type": "string"},
                "customNote": {"type": "string"},
                "eta": {"type": "string"},
                "instructions": {"type": "string"},
                "escalated": {"type": "boolean"},
                "escalatedAt": {"type": "string"},
                "timestamp": {"type": "string"},
                "createdAt": {"type": "string"},
                "updatedAt": {"type": "string"}
            }
        },
        "domain.CreateAlertRequest": {
            "type": "object",
            "required": ["description"],
            "properties": {
                "userId": {"type": "string"},
                "type": {"type": "string", "enum": ["injury", "medical", "mistreatment"]},
                "description": {"type": "string", "maxLength": 5000},
                "photo": {"type": "string"},
                "status": {"type": "string", "enum": ["pending"]}
            }
        },
        "domain.UpdateAlertRequest": {
            "type": "object",
            "properties": {
                "type": {"type": "string", "enum": ["injury", "medical", "mistreatment"]},
                "description": {"type": "string"},
                "status": {"type": "string", "enum": ["pending", "accepted", "resolved"]},
                "acceptedBy": {"type": "string"},
                "acceptedByName": {"type": "string"},
                "acceptedByRole": {"type": "string"},
                "customNote": {"type": "string"},
                "eta": {"type": "string"},
                "instructions": {"type": "string"}
            }
        },
        "domain.NoteDTO": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "alertId": {"type": "string"},
                "authorId": {"type": "string"},
                "text": {"type": "string"},
                "eta": {"type": "string"},
                "instructions": {"type": "string"},
                "createdAt": {"type": "string"}
            }
        },
        "domain.CreateNoteRequest": {
            "type": "object",
            "required": ["alertId"],
            "properties": {
                "alertId": {"type": "string"},
                "text": {"type": "string"},
                "eta": {"type": "string"},
                "instructions": {"type": "string"}
            }
        },
        "domain.FacilityDTO": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "type": {"type": "string"},
                "role": {"type": "string"},
                "email": {"type": "string"},
                "phone": {"type": "string"},
                "address": {"type": "string"},
                "lat": {"type": "number"},
                "lng": {"type": "number"},
                "distanceKm": {"type": "number"}
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {
            "description": "API key for system operations",
            "type": "apiKey",
            "name": "x-api-key",
            "in": "header"
        },
        "BearerAuth": {
            "description": "JWT Bearer token",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "TailAid API",
	Description:      "Injured animal emergency alerts for reporters, hospitals and rescue centers",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
