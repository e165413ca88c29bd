// Package openapi provides reflective OpenAPI 3.0 specification generation.
// Routes are registered with their request and response models; schemas are
// derived from the models' JSON tags.
package openapi

import (
	"encoding/json"
	"net/http"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
)

// =============================================================================
// Generator
// =============================================================================

// Generator produces OpenAPI 3.0 specifications by reflecting on registered routes.
type Generator struct {
	title       string
	version     string
	description string
	servers     []string
	routes      []Route
	mu          sync.RWMutex
	cachedSpec  *openapi3.T
}

// Route describes one HTTP operation.
type Route struct {
	Method      string
	Path        string // chi pattern, e.g. /api/v1/deployments/{id}
	OperationID string
	Summary     string
	Tag         string
	Query       []string
	Request     any // body model, nil for none
	Response    any // success body model, nil for none
	Status      int // success status, defaults to 200
}

// Option configures the generator.
type Option func(*Generator)

// WithTitle sets the API title.
func WithTitle(title string) Option {
	return func(g *Generator) {
		g.title = title
	}
}

// WithVersion sets the API version.
func WithVersion(version string) Option {
	return func(g *Generator) {
		g.version = version
	}
}

// WithDescription sets the API description.
func WithDescription(description string) Option {
	return func(g *Generator) {
		g.description = description
	}
}

// WithServer adds a server URL.
func WithServer(url string) Option {
	return func(g *Generator) {
		g.servers = append(g.servers, url)
	}
}

// NewGenerator creates a new OpenAPI generator.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		title:       "Muster API",
		version:     "1.0.0",
		description: "Deployment workflow engine API",
		routes:      make([]Route, 0),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// AddRoute registers an operation for spec generation.
func (g *Generator) AddRoute(r Route) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.routes = append(g.routes, r)
	g.cachedSpec = nil // Invalidate cache
}

// Generate produces the complete OpenAPI 3.0 specification.
func (g *Generator) Generate() *openapi3.T {
	g.mu.RLock()
	if g.cachedSpec != nil {
		spec := g.cachedSpec
		g.mu.RUnlock()
		return spec
	}
	g.mu.RUnlock()

	g.mu.Lock()
	defer g.mu.Unlock()

	// Double-check after acquiring write lock
	if g.cachedSpec != nil {
		return g.cachedSpec
	}

	spec := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       g.title,
			Version:     g.version,
			Description: g.description,
		},
		Servers: make(openapi3.Servers, 0, len(g.servers)),
		Paths:   &openapi3.Paths{},
		Components: &openapi3.Components{
			Schemas: make(openapi3.Schemas),
		},
	}

	for _, url := range g.servers {
		spec.Servers = append(spec.Servers, &openapi3.Server{URL: url})
	}

	g.addCommonSchemas(spec)

	for _, r := range g.routes {
		g.addRouteToSpec(spec, r)
	}

	g.cachedSpec = spec
	return spec
}

// Handler returns an HTTP handler that serves the OpenAPI specification.
func (g *Generator) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spec := g.Generate()

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")

		if err := json.NewEncoder(w).Encode(spec); err != nil {
			http.Error(w, "Failed to encode OpenAPI spec", http.StatusInternalServerError)
		}
	}
}

// =============================================================================
// Paths
// =============================================================================

var pathParam = regexp.MustCompile(`\{([^}/]+)\}`)

func (g *Generator) addRouteToSpec(spec *openapi3.T, r Route) {
	op := &openapi3.Operation{
		OperationID: r.OperationID,
		Summary:     r.Summary,
		Responses:   &openapi3.Responses{},
	}
	if r.Tag != "" {
		op.Tags = []string{r.Tag}
	}

	for _, m := range pathParam.FindAllStringSubmatch(r.Path, -1) {
		op.Parameters = append(op.Parameters, &openapi3.ParameterRef{
			Value: openapi3.NewPathParameter(m[1]).WithSchema(openapi3.NewStringSchema()),
		})
	}
	for _, q := range r.Query {
		schema := openapi3.NewStringSchema()
		if q == "limit" || q == "offset" {
			schema = openapi3.NewIntegerSchema()
		}
		op.Parameters = append(op.Parameters, &openapi3.ParameterRef{
			Value: openapi3.NewQueryParameter(q).WithSchema(schema),
		})
	}

	if r.Request != nil {
		op.RequestBody = &openapi3.RequestBodyRef{
			Value: openapi3.NewRequestBody().
				WithRequired(true).
				WithJSONSchemaRef(g.schemaFor(spec, reflect.TypeOf(r.Request))),
		}
	}

	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}
	success := openapi3.NewResponse().WithDescription(http.StatusText(status))
	if r.Response != nil {
		success = success.WithJSONSchemaRef(g.schemaFor(spec, reflect.TypeOf(r.Response)))
	}
	op.Responses.Set(strconv.Itoa(status), &openapi3.ResponseRef{Value: success})
	op.Responses.Set("default", &openapi3.ResponseRef{
		Value: openapi3.NewResponse().
			WithDescription("Error").
			WithJSONSchemaRef(&openapi3.SchemaRef{Ref: "#/components/schemas/Error"}),
	})

	item := spec.Paths.Value(r.Path)
	if item == nil {
		item = &openapi3.PathItem{}
		spec.Paths.Set(r.Path, item)
	}
	item.SetOperation(strings.ToUpper(r.Method), op)
}

// =============================================================================
// Schema Generation
// =============================================================================

// addCommonSchemas adds the error envelope shared by every operation.
func (g *Generator) addCommonSchemas(spec *openapi3.T) {
	spec.Components.Schemas["Error"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"error": &openapi3.SchemaRef{
					Value: &openapi3.Schema{Type: &openapi3.Types{"string"}},
				},
				"code": &openapi3.SchemaRef{
					Value: &openapi3.Schema{Type: &openapi3.Types{"string"}},
				},
			},
			Required: []string{"error", "code"},
		},
	}
}

var (
	timeType      = reflect.TypeOf(time.Time{})
	marshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
)

// schemaFor returns a schema for t. Named structs are placed under
// components and referenced.
func (g *Generator) schemaFor(spec *openapi3.T, t reflect.Type) *openapi3.SchemaRef {
	if t.Kind() == reflect.Ptr {
		elem := g.schemaFor(spec, t.Elem())
		if elem.Ref == "" && elem.Value != nil {
			elem.Value.Nullable = true
		}
		return elem
	}
	if t.Kind() != reflect.Struct || t == timeType || t.Name() == "" || implementsMarshaler(t) {
		return g.goTypeToSchema(spec, t)
	}

	name := t.Name()
	ref := &openapi3.SchemaRef{Ref: "#/components/schemas/" + name}
	if _, ok := spec.Components.Schemas[name]; ok {
		return ref
	}
	// Placeholder first so self-referencing types terminate.
	spec.Components.Schemas[name] = &openapi3.SchemaRef{Value: &openapi3.Schema{}}
	spec.Components.Schemas[name] = g.extractSchema(spec, t)
	return ref
}

// extractSchema extracts an OpenAPI schema from a Go struct.
func (g *Generator) extractSchema(spec *openapi3.T, t reflect.Type) *openapi3.SchemaRef {
	schema := &openapi3.Schema{
		Type:       &openapi3.Types{"object"},
		Properties: make(openapi3.Schemas),
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}

		name := field.Name
		omitempty := false
		if jsonTag != "" {
			parts := strings.Split(jsonTag, ",")
			if parts[0] != "" {
				name = parts[0]
			}
			for _, opt := range parts[1:] {
				if opt == "omitempty" {
					omitempty = true
				}
			}
		}

		if propSchema := g.schemaFor(spec, field.Type); propSchema != nil {
			schema.Properties[name] = propSchema
		}
		if !omitempty && field.Type.Kind() != reflect.Ptr {
			schema.Required = append(schema.Required, name)
		}
	}

	return &openapi3.SchemaRef{Value: schema}
}

// goTypeToSchema converts a Go type to an OpenAPI schema.
func (g *Generator) goTypeToSchema(spec *openapi3.T, t reflect.Type) *openapi3.SchemaRef {
	if t == timeType {
		return &openapi3.SchemaRef{
			Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "date-time"},
		}
	}
	// Custom JSON encodings are described as free-form values.
	if t.Kind() != reflect.Ptr && implementsMarshaler(t) {
		return &openapi3.SchemaRef{Value: &openapi3.Schema{}}
	}

	switch t.Kind() {
	case reflect.String:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}}

	case reflect.Int64:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int64"}}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}}}

	case reflect.Float32:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"number"}, Format: "float"}}

	case reflect.Float64:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"number"}, Format: "double"}}

	case reflect.Bool:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}}

	case reflect.Slice, reflect.Array:
		return &openapi3.SchemaRef{
			Value: &openapi3.Schema{
				Type:  &openapi3.Types{"array"},
				Items: g.schemaFor(spec, t.Elem()),
			},
		}

	case reflect.Map:
		return &openapi3.SchemaRef{
			Value: &openapi3.Schema{
				Type:                 &openapi3.Types{"object"},
				AdditionalProperties: openapi3.AdditionalProperties{Schema: g.schemaFor(spec, t.Elem())},
			},
		}

	case reflect.Ptr:
		return g.schemaFor(spec, t)

	case reflect.Struct:
		return g.extractSchema(spec, t)

	default:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}}
	}
}

// =============================================================================
// Helpers
// =============================================================================

func implementsMarshaler(t reflect.Type) bool {
	return t.Implements(marshalerType) || reflect.PointerTo(t).Implements(marshalerType)
}
