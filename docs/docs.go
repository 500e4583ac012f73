// Package docs registers the OpenAPI document served at /swagger.
// Regenerate with: swag init -g cmd/obispado/main.go -o docs
package docs

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
        "/availability/days": {
            "get": {
                "produces": ["application/json"],
                "tags": ["availability"],
                "summary": "List upcoming bookable days",
                "parameters": [
                    {"type": "integer", "description": "Horizon in days (1-90)", "name": "days", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.AvailableDaysResponse"}}
                }
            }
        },
        "/availability/slots": {
            "get": {
                "produces": ["application/json"],
                "tags": ["availability"],
                "summary": "Slots of a date",
                "parameters": [
                    {"type": "string", "description": "YYYY-MM-DD", "name": "date", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.DaySlots"}},
                    "304": {"description": "Not Modified"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/availability/check": {
            "get": {
                "produces": ["application/json"],
                "tags": ["availability"],
                "summary": "Check one slot",
                "parameters": [
                    {"type": "string", "description": "YYYY-MM-DD", "name": "date", "in": "query", "required": true},
                    {"type": "string", "description": "HH:MM", "name": "time", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.Availability"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/services.Availability"}}
                }
            }
        },
        "/appointments": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["appointments"],
                "summary": "Request an appointment",
                "parameters": [
                    {"type": "string", "description": "Client supplied key for safe retries", "name": "Idempotency-Key", "in": "header"},
                    {"description": "Booking form", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.CreateAppointmentRequest"}}
                ],
                "responses": {
                    "200": {"description": "Replayed", "schema": {"$ref": "#/definitions/domain.Appointment"}},
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Appointment"}},
                    "409": {"description": "Slot taken", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "422": {"description": "Invalid form or slot", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "503": {"description": "Store unavailable", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/admin/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Sign in",
                "parameters": [
                    {"description": "Credentials", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.Login"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/admin/logout": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "Sign out",
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/admin/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Current session",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/session.Session"}}}
            }
        },
        "/admin/appointments": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "List appointments",
                "parameters": [
                    {"type": "string", "description": "YYYY-MM-DD", "name": "date", "in": "query"},
                    {"type": "string", "description": "pending, confirmed, cancelled or all", "name": "status", "in": "query"},
                    {"type": "string", "description": "Name, phone or email search", "name": "q", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListAppointmentsResponse"}}}
            }
        },
        "/admin/appointments/refresh": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Reload appointments",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListAppointmentsResponse"}}}
            }
        },
        "/admin/appointments/purge": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Delete past appointments",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.PurgeResponse"}}}
            }
        },
        "/admin/appointments/{id}/status": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Change appointment status",
                "parameters": [
                    {"type": "integer", "description": "Appointment ID", "name": "id", "in": "path", "required": true},
                    {"description": "New status", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.UpdateStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.StatusChange"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Transition not allowed", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/admin/appointments/{id}": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "Delete an appointment",
                "parameters": [
                    {"type": "integer", "description": "Appointment ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/admin/digest": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Send the weekly digest",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.DigestResult"}},
                    "503": {"description": "Not configured", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/admin/access-logs": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Recent sign-in activity",
                "parameters": [
                    {"type": "integer", "description": "Max entries (1-500)", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.AccessLogResponse"}}}
            }
        }
    },
    "definitions": {
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string"},
                "code": {"type": "string"},
                "message": {"type": "string"},
                "fields": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "handlers.AvailableDaysResponse": {
            "type": "object",
            "properties": {
                "days": {"type": "array", "items": {"$ref": "#/definitions/schedule.DayAvailability"}}
            }
        },
        "schedule.DayAvailability": {
            "type": "object",
            "properties": {
                "date": {"type": "string", "example": "2026-10-20"},
                "weekday": {"type": "integer"},
                "day_name": {"type": "string", "example": "Martes"},
                "slots": {"type": "array", "items": {"type": "string", "example": "20:00"}}
            }
        },
        "services.Availability": {
            "type": "object",
            "properties": {
                "available": {"type": "boolean"},
                "reason": {"type": "string"},
                "kind": {"type": "string", "enum": ["slot_not_allowed", "slot_taken", "system_error"]}
            }
        },
        "services.SlotStatus": {
            "type": "object",
            "properties": {
                "time": {"type": "string"},
                "available": {"type": "boolean"}
            }
        },
        "services.DaySlots": {
            "type": "object",
            "properties": {
                "date": {"type": "string"},
                "day_name": {"type": "string"},
                "bookable": {"type": "boolean"},
                "reason": {"type": "string"},
                "slots": {"type": "array", "items": {"$ref": "#/definitions/services.SlotStatus"}}
            }
        },
        "handlers.CreateAppointmentRequest": {
            "type": "object",
            "required": ["nombre", "telefono", "fecha", "hora", "motivo"],
            "properties": {
                "nombre": {"type": "string"},
                "telefono": {"type": "string"},
                "email": {"type": "string"},
                "fecha": {"type": "string", "example": "2026-10-20"},
                "hora": {"type": "string", "example": "20:00"},
                "motivo": {"type": "string"},
                "comentarios": {"type": "string"}
            }
        },
        "domain.Appointment": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "nombre": {"type": "string"},
                "telefono": {"type": "string"},
                "email": {"type": "string"},
                "fecha": {"type": "string"},
                "hora": {"type": "string"},
                "motivo": {"type": "string"},
                "comentarios": {"type": "string"},
                "estado": {"type": "string", "enum": ["pending", "confirmed", "cancelled"]},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "handlers.LoginRequest": {
            "type": "object",
            "required": ["username", "password"],
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "services.Login": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "expires_at": {"type": "string"},
                "username": {"type": "string"},
                "role": {"type": "string"}
            }
        },
        "session.Session": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "username": {"type": "string"},
                "role": {"type": "string"},
                "created_at": {"type": "string"},
                "expires_at": {"type": "string"}
            }
        },
        "services.Stats": {
            "type": "object",
            "properties": {
                "total": {"type": "integer"},
                "pending": {"type": "integer"},
                "confirmed": {"type": "integer"},
                "cancelled": {"type": "integer"},
                "today": {"type": "integer"}
            }
        },
        "handlers.ListAppointmentsResponse": {
            "type": "object",
            "properties": {
                "appointments": {"type": "array", "items": {"$ref": "#/definitions/domain.Appointment"}},
                "stats": {"$ref": "#/definitions/services.Stats"},
                "loaded_at": {"type": "string"}
            }
        },
        "handlers.UpdateStatusRequest": {
            "type": "object",
            "required": ["estado"],
            "properties": {
                "estado": {"type": "string", "enum": ["pending", "confirmed", "cancelled"]}
            }
        },
        "services.StatusChange": {
            "type": "object",
            "properties": {
                "appointment": {"$ref": "#/definitions/domain.Appointment"},
                "notified": {"type": "boolean"},
                "warning": {"type": "string"}
            }
        },
        "handlers.PurgeResponse": {
            "type": "object",
            "properties": {
                "deleted": {"type": "integer"}
            }
        },
        "services.DigestResult": {
            "type": "object",
            "properties": {
                "to": {"type": "string"},
                "from": {"type": "string"},
                "until": {"type": "string"},
                "appointments": {"type": "integer"}
            }
        },
        "domain.AccessLog": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "username": {"type": "string"},
                "action": {"type": "string"},
                "ip": {"type": "string"},
                "user_agent": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "handlers.AccessLogResponse": {
            "type": "object",
            "properties": {
                "entries": {"type": "array", "items": {"$ref": "#/definitions/domain.AccessLog"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Obispado Citas API",
	Description:      "Appointment booking for the bishop's office.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
