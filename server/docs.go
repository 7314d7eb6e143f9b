package server

import (
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/tech-arch1tect/onetime/config"
	"github.com/tech-arch1tect/onetime/openapi"
)

func NewTokenAPIDocs(cfg *config.Config) *openapi.OpenAPI {
	api := openapi.New(cfg.App.Name, "1.0.0").
		Description("Issue, validate and consume one-time codes bound to an identity.").
		Server(cfg.App.URL, "").
		Tag("tokens", "One-time token lifecycle")

	api.Document(http.MethodPost, "/tokens").
		Summary("Generate a code").
		Description("Replaces any outstanding code for the identity. The plaintext code is only returned here.").
		OperationID("generateToken").
		Tags("tokens").
		Body(GenerateRequest{}, "Identity fields and optional validity, digits and QR URL prefix").
		Response(http.StatusCreated, GenerateResponse{}, "Code issued").
		Response(http.StatusBadRequest, ErrorResponse{}, "Invalid input").
		Response(http.StatusInternalServerError, ErrorResponse{}, "Storage failure").
		Build()

	api.Document(http.MethodPost, "/tokens/validate").
		Summary("Validate a code").
		Description("Records an attempt. The code stays usable until consumed, expired or attempts are exhausted.").
		OperationID("validateToken").
		Tags("tokens").
		Body(ValidateRequest{}, "Identity fields and candidate code").
		Response(http.StatusOK, ValidateResponse{}, "Validation result").
		Response(http.StatusInternalServerError, ErrorResponse{}, "Storage failure").
		Build()

	api.Document(http.MethodPost, "/tokens/consume-validate").
		Summary("Validate and consume a code").
		OperationID("consumeAndValidateToken").
		Tags("tokens").
		Body(ValidateRequest{}, "Identity fields and candidate code").
		Response(http.StatusOK, ValidateResponse{}, "Validation result; the code is gone either way").
		Response(http.StatusInternalServerError, ErrorResponse{}, "Storage failure").
		Build()

	for _, method := range []string{http.MethodPost, http.MethodDelete} {
		path := "/tokens/consume"
		id := "consumeToken"
		if method == http.MethodDelete {
			path = "/tokens"
			id = "deleteToken"
		}

		api.Document(method, path).
			Summary("Consume a code").
			OperationID(id).
			Tags("tokens").
			Body(ConsumeRequest{}, "Identity fields").
			Response(http.StatusNoContent, nil, "Consumed, or nothing was outstanding").
			Response(http.StatusBadRequest, ErrorResponse{}, "Identity missing").
			Response(http.StatusInternalServerError, ErrorResponse{}, "Storage failure").
			Build()
	}

	api.Document(http.MethodGet, "/tokens/qr").
		Summary("Render a QR code").
		OperationID("renderTokenQRCode").
		Tags("tokens").
		QueryParam("data", "Content to encode, usually the qr_url of a generated code", true, openapi3.NewStringSchema()).
		QueryParam("size", "Image width and height in pixels", false, openapi3.NewIntegerSchema().WithMin(64).WithMax(1024)).
		ResponseBinary(http.StatusOK, "image/png", "PNG image").
		Response(http.StatusBadRequest, ErrorResponse{}, "Invalid data or size").
		Build()

	return api
}

func RegisterDocs(s *Server, api *openapi.OpenAPI) {
	s.Get("/openapi.json", api.JSONHandler())
	s.Get("/openapi.yaml", api.YAMLHandler())
}
