// Package swagger carries the static OpenAPI document served at /docs.
package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Ash Behavior Tracker API",
        "description": "Privacy-first ABC behavior tracking for caregivers",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Children", "description": "Pseudonymous child profiles"},
        {"name": "Incidents", "description": "ABC incident log"},
        {"name": "Templates", "description": "Curated behavior templates"},
        {"name": "Insights", "description": "Derived behavior statistics"},
        {"name": "Exports", "description": "CSV/PDF export generation and download"}
    ],
    "paths": {
        "/children": {
            "get": {
                "tags": ["Children"],
                "summary": "List child profiles",
                "parameters": [
                    {"name": "includeArchived", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Children"],
                "summary": "Create child profile (pseudonym assigned server-side)",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error"}
                }
            }
        },
        "/children/{id}": {
            "get": {
                "tags": ["Children"],
                "summary": "Get child profile",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Children"],
                "summary": "Update child profile",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Profile archived"}
                }
            }
        },
        "/children/{id}/archive": {
            "post": {
                "tags": ["Children"],
                "summary": "Archive child profile",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/children/{id}/unarchive": {
            "post": {
                "tags": ["Children"],
                "summary": "Restore archived child profile",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/children/{id}/insights": {
            "get": {
                "tags": ["Insights"],
                "summary": "Behavior insights over a rolling window",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "days", "in": "query", "type": "integer", "description": "7, 30 or 90"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Unsupported window"}
                }
            }
        },
        "/children/{id}/export/summary": {
            "get": {
                "tags": ["Exports"],
                "summary": "Preview export contents",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/children/{id}/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Generate an export file",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/exports/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a generated export via signed token",
                "produces": ["application/octet-stream"],
                "parameters": [{"name": "token", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "File"},
                    "404": {"description": "Invalid or expired link"}
                }
            }
        },
        "/incidents": {
            "get": {
                "tags": ["Incidents"],
                "summary": "List behavior incidents",
                "parameters": [
                    {"name": "childId", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"},
                    {"name": "types", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Incidents"],
                "summary": "Log a behavior incident",
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Child archived"}
                }
            }
        },
        "/incidents/{id}": {
            "get": {
                "tags": ["Incidents"],
                "summary": "Get incident detail",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            },
            "put": {
                "tags": ["Incidents"],
                "summary": "Update incident",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "tags": ["Incidents"],
                "summary": "Delete incident",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "No content"}}
            }
        },
        "/templates": {
            "get": {
                "tags": ["Templates"],
                "summary": "List behavior templates",
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
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
