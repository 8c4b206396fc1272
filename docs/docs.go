// Package docs is generated by swag from the handler annotations. Regenerate with:
//
//	swag init -g cmd/api/main.go -o docs
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
        "/documents": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["documents"],
                "summary": "List documents",
                "parameters": [
                    {"type": "integer", "default": 10, "description": "page size", "name": "limit", "in": "query"},
                    {"type": "integer", "default": 0, "description": "offset", "name": "offset", "in": "query"},
                    {"type": "string", "description": "filter by document type (admin only)", "name": "document_type", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.DocumentListResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["documents"],
                "summary": "Upload a document",
                "parameters": [
                    {"type": "file", "description": "document", "name": "file", "in": "formData", "required": true},
                    {"type": "string", "description": "owner reference", "name": "owner_ref", "in": "formData", "required": true},
                    {"type": "string", "default": "General", "description": "declared document type", "name": "document_type", "in": "formData"},
                    {"type": "string", "description": "description", "name": "description", "in": "formData"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/service.UploadResult"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/service.UploadResult"}}
                }
            }
        },
        "/documents/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["documents"],
                "summary": "Get document",
                "parameters": [{"type": "string", "description": "document id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Document"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["documents"],
                "summary": "Delete document",
                "parameters": [{"type": "string", "description": "document id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/documents/{id}/download": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/octet-stream"],
                "tags": ["documents"],
                "summary": "Download document content",
                "parameters": [
                    {"type": "string", "description": "document id", "name": "id", "in": "path", "required": true},
                    {"type": "boolean", "description": "return a presigned URL", "name": "presign", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/documents/{id}/verify": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["documents"],
                "summary": "Verify document integrity",
                "parameters": [{"type": "string", "description": "document id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.integrityResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {}}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/healthz": {
            "get": {
                "tags": ["health"],
                "summary": "Liveness probe",
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
        "handler.errorEnvelope": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "handler.errorPayload": {
            "type": "object",
            "properties": {
                "error": {"$ref": "#/definitions/handler.errorEnvelope"},
                "request_id": {"type": "string"}
            }
        },
        "handler.integrityResponse": {
            "type": "object",
            "properties": {
                "valid": {"type": "boolean"},
                "document_id": {"type": "string"},
                "content_hash": {"type": "string"},
                "hash_matches": {"type": "boolean"},
                "blob_missing": {"type": "boolean"},
                "anchor_checked": {"type": "boolean"},
                "anchor_verified": {"type": "boolean"},
                "anchor_guaranteed": {"type": "boolean"},
                "anchor_error": {"type": "string"}
            }
        },
        "model.Document": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "original_name": {"type": "string"},
                "content_hash": {"type": "string"},
                "byte_size": {"type": "integer"},
                "mime_type": {"type": "string"},
                "page_count": {"type": "integer"},
                "owner_ref": {"type": "string"},
                "document_type": {"type": "string"},
                "description": {"type": "string"},
                "uploaded_at": {"type": "string"},
                "anchor_ref": {"type": "string"},
                "detected_type": {"type": "string"},
                "verification_decision": {"$ref": "#/definitions/model.Decision"},
                "verification_confidence": {"type": "number"}
            }
        },
        "model.Decision": {
            "type": "string",
            "enum": [
                "ACCEPTED",
                "REJECTED_TYPE_MISMATCH",
                "REJECTED_LOW_CONFIDENCE",
                "REJECTED_INVALID",
                "REJECTED_UNSUPPORTED_FILE",
                "INDETERMINATE_ACCEPTED",
                "ERROR"
            ]
        },
        "model.VerificationOutcome": {
            "type": "object",
            "properties": {
                "decision": {"$ref": "#/definitions/model.Decision"},
                "detected_type": {"type": "string"},
                "confidence": {"type": "number"},
                "reason": {"type": "string"},
                "degraded": {"type": "boolean"}
            }
        },
        "service.DocumentListResult": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"$ref": "#/definitions/model.Document"}},
                "total": {"type": "integer"}
            }
        },
        "service.UploadResult": {
            "type": "object",
            "properties": {
                "document": {"$ref": "#/definitions/model.Document"},
                "verification": {"$ref": "#/definitions/model.VerificationOutcome"}
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
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Document Custody API",
	Description:      "Verified document intake with content hashing and anchoring.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
