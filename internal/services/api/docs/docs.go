// Package docs registers the OpenAPI document for the echokit API with swag
// Import it for side effects from the binary that serves /api/docs
package docs

import "github.com/swaggo/swag/v2"

const docTemplate = `{
  "openapi": "3.0.3",
  "info": {
    "title": "{{.Title}}",
    "description": "{{escape .Description}}",
    "version": "{{.Version}}"
  },
  "paths": {
    "/meta/health": {
      "get": {
        "tags": ["meta"],
        "summary": "Health check",
        "responses": {"200": {"description": "ok", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Envelope"}}}}}
      }
    },
    "/meta/ready": {
      "get": {
        "tags": ["meta"],
        "summary": "Readiness probe with store checks",
        "responses": {
          "200": {"description": "ok", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Envelope"}}}},
          "503": {"description": "a store ping failed", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Envelope"}}}}
        }
      }
    },
    "/meta/version": {
      "get": {
        "tags": ["meta"],
        "summary": "Build and version info",
        "responses": {"200": {"description": "ok", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Envelope"}}}}}
      }
    },
    "/meta/service": {
      "get": {
        "tags": ["meta"],
        "summary": "Service info and uptime",
        "responses": {"200": {"description": "ok", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Envelope"}}}}}
      }
    },
    "/programs": {
      "get": {
        "tags": ["programs"],
        "summary": "List ECHO programs",
        "responses": {"200": {"description": "ok", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Envelope"}}}}}
      }
    },
    "/programs/{name}/last-modified": {
      "get": {
        "tags": ["programs"],
        "summary": "Upstream refresh date of a program's base table",
        "parameters": [{"name": "name", "in": "path", "required": true, "schema": {"type": "string"}, "example": "RCRA Violations"}],
        "responses": {
          "200": {"description": "ok", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Envelope"}}}},
          "404": {"description": "unknown program or no date published", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Envelope"}}}}
        }
      }
    },
    "/retrievals": {
      "post": {
        "tags": ["retrievals"],
        "summary": "Retrieve program records for a region",
        "requestBody": {"required": true, "content": {"application/json": {"schema": {"$ref": "#/components/schemas/RetrieveInput"}}}},
        "responses": {"200": {"description": "ok", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Envelope"}}}}}
      },
      "get": {
        "tags": ["retrievals"],
        "summary": "Recent retrievals from the audit log",
        "parameters": [{"name": "limit", "in": "query", "schema": {"type": "integer", "minimum": 1, "maximum": 200}}],
        "responses": {
          "200": {"description": "ok", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Envelope"}}}},
          "503": {"description": "audit store disabled", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Envelope"}}}}
        }
      }
    },
    "/facilities/active": {
      "post": {
        "tags": ["facilities"],
        "summary": "Active facilities in a region",
        "requestBody": {"required": true, "content": {"application/json": {"schema": {"$ref": "#/components/schemas/ActiveInput"}}}},
        "responses": {"200": {"description": "ok", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Envelope"}}}}}
      }
    },
    "/facilities/top-violators": {
      "post": {
        "tags": ["facilities"],
        "summary": "Facilities with the most noncompliant quarters",
        "requestBody": {"required": true, "content": {"application/json": {"schema": {"$ref": "#/components/schemas/TopViolatorsInput"}}}},
        "responses": {"200": {"description": "ok", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Envelope"}}}}}
      }
    }
  },
  "components": {
    "schemas": {
      "Envelope": {
        "type": "object",
        "properties": {
          "status_code": {"type": "integer"},
          "status": {"type": "string"},
          "code": {"type": "integer"},
          "error": {"type": "string"},
          "field": {"type": "string"},
          "request_id": {"type": "string"},
          "data": {}
        }
      },
      "Region": {
        "type": "object",
        "required": ["kind"],
        "properties": {
          "kind": {"type": "string", "enum": ["state", "county", "congressional_district", "zip_code", "watershed", "huc12", "census_tract", "neighborhood", "ids"]},
          "values": {"type": "array", "items": {"type": "string"}},
          "state": {"type": "string", "example": "NY"},
          "polygon": {"type": "object", "description": "GeoJSON Polygon for neighborhood regions"}
        }
      },
      "RetrieveInput": {
        "type": "object",
        "required": ["program", "region"],
        "properties": {
          "program": {"type": "string", "example": "Greenhouse Gas Emissions"},
          "region": {"$ref": "#/components/schemas/Region"},
          "batch_size": {"type": "integer", "minimum": 1, "maximum": 1000},
          "include_totals": {"type": "boolean"},
          "include_facilities": {"type": "boolean"},
          "include_others": {"type": "boolean"}
        }
      },
      "ActiveInput": {
        "type": "object",
        "required": ["region"],
        "properties": {"region": {"$ref": "#/components/schemas/Region"}}
      },
      "TopViolatorsInput": {
        "type": "object",
        "required": ["program", "region"],
        "properties": {
          "program": {"type": "string", "example": "RCRA Violations"},
          "region": {"$ref": "#/components/schemas/Region"},
          "limit": {"type": "integer", "minimum": 1, "maximum": 500}
        }
      }
    }
  }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Title:            "echokit API",
	Description:      "Batched retrieval of EPA ECHO facility and program records by region",
	InfoInstanceName: "api",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
