package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Appeals API",
        "description": "Citizen appeal management backend for municipal organizations",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Auth", "description": "Login and session management"},
        {"name": "Users", "description": "Staff account administration"},
        {"name": "Organizations", "description": "Organization directory"},
        {"name": "Regions", "description": "Sectors and mahallas"},
        {"name": "Appeals", "description": "Appeal workflow"},
        {"name": "Intake", "description": "Bot-facing citizen intake"},
        {"name": "Statistics", "description": "Aggregated appeal statistics"},
        {"name": "Files", "description": "Evidence uploads and signed downloads"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate with username and password",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Rotate a refresh token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RefreshRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Auth"],
                "summary": "Revoke the caller's refresh token",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RefreshRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Current account profile",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/users": {
            "get": {
                "tags": ["Users"],
                "summary": "List staff accounts",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "role", "in": "query", "type": "string"},
                    {"name": "orgId", "in": "query", "type": "integer"},
                    {"name": "active", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Users"],
                "summary": "Create staff account",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateUserRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/users/{id}": {
            "get": {
                "tags": ["Users"],
                "summary": "Get staff account",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "patch": {
                "tags": ["Users"],
                "summary": "Update staff account",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateUserRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Users"],
                "summary": "Deactivate staff account",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/organizations": {
            "get": {
                "tags": ["Organizations"],
                "summary": "List organizations",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Organizations"],
                "summary": "Create organization",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateOrganizationRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/appeals": {
            "get": {
                "tags": ["Appeals"],
                "summary": "List appeals",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "orgId", "in": "query", "type": "integer"},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Appeals"],
                "summary": "Register an appeal",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateAppealRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/appeals/{id}/answer": {
            "post": {
                "tags": ["Appeals"],
                "summary": "Submit an organization answer transition",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitAnswerRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Concurrent status change", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/appeals/{id}/review": {
            "post": {
                "tags": ["Appeals"],
                "summary": "Record an authority verdict",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReviewRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/appeals/{id}/pdf": {
            "get": {
                "tags": ["Appeals"],
                "summary": "Download an appeal report as PDF",
                "security": [{"BearerAuth": []}],
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "PDF document"}
                }
            }
        },
        "/appeals/export": {
            "get": {
                "tags": ["Appeals"],
                "summary": "Export filtered appeals as CSV",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv"],
                "responses": {
                    "200": {"description": "CSV document"}
                }
            }
        },
        "/intake/users": {
            "post": {
                "tags": ["Intake"],
                "summary": "Register a citizen from the bot",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterIntakeUserRequest"}}
                ],
                "responses": {
                    "200": {"description": "Already registered", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/intake/appeals": {
            "post": {
                "tags": ["Intake"],
                "summary": "Submit an appeal from the bot",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "chat_id", "in": "formData", "required": true, "type": "integer"},
                    {"name": "full_name", "in": "formData", "required": true, "type": "string"},
                    {"name": "phone", "in": "formData", "required": true, "type": "string"},
                    {"name": "text", "in": "formData", "required": true, "type": "string"},
                    {"name": "file", "in": "formData", "type": "file"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "413": {"description": "Attachment too large", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/statistics": {
            "get": {
                "tags": ["Statistics"],
                "summary": "Appeal statistics summary",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/files": {
            "post": {
                "tags": ["Files"],
                "summary": "Upload an evidence file",
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["username", "password"]
        },
        "RefreshRequest": {
            "type": "object",
            "properties": {
                "refresh_token": {"type": "string"}
            },
            "required": ["refresh_token"]
        },
        "CreateUserRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"},
                "full_name": {"type": "string"},
                "role": {"type": "string"},
                "org_id": {"type": "integer"}
            },
            "required": ["username", "password", "full_name", "role"]
        },
        "UpdateUserRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"},
                "full_name": {"type": "string"},
                "role": {"type": "string"},
                "org_id": {"type": "integer"},
                "active": {"type": "boolean"}
            }
        },
        "CreateOrganizationRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "staff_ids": {"type": "array", "items": {"type": "integer"}}
            },
            "required": ["name"]
        },
        "CreateAppealRequest": {
            "type": "object",
            "properties": {
                "full_name": {"type": "string"},
                "gender": {"type": "string"},
                "phone": {"type": "string"},
                "birthday": {"type": "string"},
                "address": {"type": "string"},
                "mahalla_id": {"type": "integer"},
                "org_id": {"type": "integer"},
                "text": {"type": "string"},
                "deadline": {"type": "string"},
                "intake_id": {"type": "integer"}
            },
            "required": ["full_name", "phone", "org_id", "text"]
        },
        "SubmitAnswerRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "answer": {"type": "string"},
                "evidence_file": {"type": "string"}
            },
            "required": ["status"]
        },
        "ReviewRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "comment": {"type": "string"},
                "deadline": {"type": "string"}
            },
            "required": ["status"]
        },
        "RegisterIntakeUserRequest": {
            "type": "object",
            "properties": {
                "chat_id": {"type": "integer"},
                "phone": {"type": "string"}
            },
            "required": ["chat_id", "phone"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
