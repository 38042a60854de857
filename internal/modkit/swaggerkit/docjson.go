package swaggerkit

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/swaggo/swag/v2"
)

// InstanceName is the swag registry name the api doc registers under
const InstanceName = "api"

// SpecMutator lets modules tweak the parsed doc before it is served
type SpecMutator func(map[string]any)

var mutators []SpecMutator

// docReader is a seam so tests can inject documents
var docReader = func() (string, error) { return swag.ReadDoc(InstanceName) }

// TitleSuffix is appended to info.title when set, e.g. "(staging)"
var TitleSuffix string

// Register adds a spec mutator; call it from wiring code before Mount
func Register(m SpecMutator) {
	if m != nil {
		mutators = append(mutators, m)
	}
}

func serveDocJSON() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := docReader()
		if err != nil {
			http.Error(w, "spec not registered", http.StatusNotFound)
			return
		}
		var spec map[string]any
		if err := json.Unmarshal([]byte(raw), &spec); err != nil {
			http.Error(w, "spec parse error", http.StatusInternalServerError)
			return
		}

		ensureServers(spec, "/api/v1")
		if TitleSuffix != "" {
			if info, ok := spec["info"].(map[string]any); ok {
				if title, ok := info["title"].(string); ok {
					info["title"] = title + " " + TitleSuffix
				}
			}
		}
		ensureErrorResponseDefinition(spec)
		addDefaultResponse(spec, "500", errorResponse("Internal Server Error", 500, 1, "panic recovered"))
		addDefaultResponse(spec, "422", errorResponse("Unprocessable Entity", 422, 8, "state must be a two letter US state code"))
		addDefaultResponse(spec, "502", errorResponse("Bad Gateway", 502, 15, "echo query failed: 500 Internal Server Error"))

		for _, m := range mutators {
			m(spec)
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(spec)
	}
}

// ensureServers lifts swagger 2 and 3.1 documents to 3.0.3, which the UI renders, and sets servers
func ensureServers(spec map[string]any, url string) {
	if _, ok := spec["swagger"]; ok {
		delete(spec, "swagger")
	}
	if v, ok := spec["openapi"].(string); !ok || strings.HasPrefix(v, "3.1") {
		spec["openapi"] = "3.0.3"
	}
	if _, ok := spec["servers"]; !ok {
		spec["servers"] = []any{map[string]any{"url": url}}
	}
}

// ensureErrorResponseDefinition adds the error envelope schema if missing
// it mirrors pnet.Envelope so the doc does not drift from the wire
func ensureErrorResponseDefinition(spec map[string]any) {
	comps, ok := spec["components"].(map[string]any)
	if !ok {
		comps = map[string]any{}
		spec["components"] = comps
	}
	schemas, ok := comps["schemas"].(map[string]any)
	if !ok {
		schemas = map[string]any{}
		comps["schemas"] = schemas
	}
	if _, ok := schemas["ErrorResponse"]; ok {
		return
	}
	schemas["ErrorResponse"] = map[string]any{
		"type":        "object",
		"description": "Standard error response",
		"properties": map[string]any{
			"status_code": map[string]any{"type": "integer", "format": "int32"},
			"status":      map[string]any{"type": "string"},
			"code":        map[string]any{"type": "integer", "format": "int32"},
			"error":       map[string]any{"type": "string"},
			"field":       map[string]any{"type": "string"},
			"request_id":  map[string]any{"type": "string"},
		},
		"required": []any{"status_code", "status"},
	}
}

func errorResponse(desc string, status, code int, msg string) map[string]any {
	return map[string]any{
		"description": desc,
		"content": map[string]any{
			"application/json": map[string]any{
				"schema": map[string]any{"$ref": "#/components/schemas/ErrorResponse"},
				"example": map[string]any{
					"status_code": status,
					"status":      desc,
					"code":        code,
					"error":       msg,
					"request_id":  "579f33bf50b1/abc-000001",
				},
			},
		},
	}
}

// addDefaultResponse injects resp under status on every operation that lacks one
func addDefaultResponse(spec map[string]any, status string, resp map[string]any) {
	paths, ok := spec["paths"].(map[string]any)
	if !ok {
		return
	}
	for _, p := range paths {
		node, ok := p.(map[string]any)
		if !ok {
			continue
		}
		for _, opAny := range node {
			op, ok := opAny.(map[string]any)
			if !ok {
				continue
			}
			resps, ok := op["responses"].(map[string]any)
			if !ok {
				resps = map[string]any{}
				op["responses"] = resps
			}
			if _, exists := resps[status]; !exists {
				resps[status] = resp
			}
		}
	}
}
