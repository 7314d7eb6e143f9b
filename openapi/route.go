package openapi

import (
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

type RouteBuilder struct {
	openapi   *OpenAPI
	method    string
	path      string
	operation *openapi3.Operation
}

func (rb *RouteBuilder) addPathParams() {
	for _, part := range strings.Split(rb.path, "/") {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			name := strings.TrimSuffix(strings.TrimPrefix(part, "{"), "}")
			rb.operation.AddParameter(openapi3.NewPathParameter(name).WithSchema(openapi3.NewStringSchema()))
		}
	}
}

func (rb *RouteBuilder) Summary(summary string) *RouteBuilder {
	rb.operation.Summary = summary
	return rb
}

func (rb *RouteBuilder) Description(description string) *RouteBuilder {
	rb.operation.Description = description
	return rb
}

func (rb *RouteBuilder) OperationID(id string) *RouteBuilder {
	rb.operation.OperationID = id
	return rb
}

func (rb *RouteBuilder) Tags(tags ...string) *RouteBuilder {
	rb.operation.Tags = append(rb.operation.Tags, tags...)
	return rb
}

func (rb *RouteBuilder) QueryParam(name, description string, required bool, schema *openapi3.Schema) *RouteBuilder {
	param := openapi3.NewQueryParameter(name).WithDescription(description).WithSchema(schema)
	param.Required = required
	rb.operation.AddParameter(param)
	return rb
}

func (rb *RouteBuilder) Body(example any, description string) *RouteBuilder {
	rb.operation.RequestBody = &openapi3.RequestBodyRef{
		Value: openapi3.NewRequestBody().
			WithDescription(description).
			WithRequired(true).
			WithJSONSchemaRef(rb.openapi.schemaFor(example)),
	}
	return rb
}

// Response documents a JSON response. A nil example documents an empty body.
func (rb *RouteBuilder) Response(statusCode int, example any, description string) *RouteBuilder {
	resp := openapi3.NewResponse().WithDescription(description)
	if example != nil {
		resp.WithJSONSchemaRef(rb.openapi.schemaFor(example))
	}
	rb.operation.Responses.Set(strconv.Itoa(statusCode), &openapi3.ResponseRef{Value: resp})
	return rb
}

func (rb *RouteBuilder) ResponseBinary(statusCode int, contentType, description string) *RouteBuilder {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	schema := openapi3.NewStringSchema()
	schema.Format = "binary"

	resp := openapi3.NewResponse().WithDescription(description).
		WithContent(openapi3.NewContentWithSchema(schema, []string{contentType}))
	rb.operation.Responses.Set(strconv.Itoa(statusCode), &openapi3.ResponseRef{Value: resp})
	return rb
}

func (rb *RouteBuilder) Build() {
	rb.openapi.addOperation(rb.method, rb.path, rb.operation)
}
