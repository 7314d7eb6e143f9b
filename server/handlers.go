package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/onetime/config"
	"github.com/tech-arch1tect/onetime/services/logging"
	"github.com/tech-arch1tect/onetime/services/qrcode"
	"github.com/tech-arch1tect/onetime/services/token"
	"go.uber.org/zap"
)

type GenerateRequest struct {
	Identity  []string `json:"identity"`
	LogID     string   `json:"log_id"`
	Validity  string   `json:"validity"`
	Digits    *int     `json:"digits"`
	URLPrefix *string  `json:"url_prefix"`
}

type GenerateResponse struct {
	Code      string `json:"code"`
	QRCodeURL string `json:"qr_url"`
	ExpiresIn int64  `json:"expires_in"`
}

type ValidateRequest struct {
	Identity []string `json:"identity"`
	Code     string   `json:"code"`
}

type ConsumeRequest struct {
	Identity []string `json:"identity"`
}

type ValidateResponse struct {
	Valid bool `json:"valid"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type TokenHandler struct {
	tokens token.TokenService
	qr     *qrcode.Service
	cfg    *config.Config
	logger *logging.Service
}

func NewTokenHandler(cfg *config.Config, tokens token.TokenService, qr *qrcode.Service, logger *logging.Service) *TokenHandler {
	return &TokenHandler{
		tokens: tokens,
		qr:     qr,
		cfg:    cfg,
		logger: logger.Named("http"),
	}
}

func (h *TokenHandler) Register(s *Server) {
	g := s.Group("/tokens")
	g.POST("", h.Generate)
	g.DELETE("", h.Consume)
	g.POST("/validate", h.Validate)
	g.POST("/consume", h.Consume)
	g.POST("/consume-validate", h.ConsumeAndValidate)
	g.GET("/qr", h.QRCode)
}

func (h *TokenHandler) Generate(c echo.Context) error {
	var req GenerateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	validity := h.cfg.Token.DefaultValidity
	if req.Validity != "" {
		d, err := time.ParseDuration(req.Validity)
		if err != nil {
			return badRequest(c, "invalid validity duration")
		}
		validity = d
	}

	digits := h.cfg.Token.DefaultDigits
	if req.Digits != nil {
		digits = *req.Digits
	}

	prefix := h.cfg.Token.QRURLPrefix
	if req.URLPrefix != nil {
		prefix = *req.URLPrefix
	}

	generated, err := h.tokens.GenerateCode(c.Request().Context(), req.LogID, token.NewKey(req.Identity...), validity, prefix, digits)
	if err != nil {
		return h.serviceError(c, err)
	}

	return c.JSON(http.StatusCreated, GenerateResponse{
		Code:      generated.Code,
		QRCodeURL: generated.QRCodeURL,
		ExpiresIn: int64(validity / time.Second),
	})
}

func (h *TokenHandler) Validate(c echo.Context) error {
	var req ValidateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	valid, err := h.tokens.Validate(c.Request().Context(), token.NewKey(req.Identity...), req.Code)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(http.StatusOK, ValidateResponse{Valid: valid})
}

func (h *TokenHandler) Consume(c echo.Context) error {
	var req ConsumeRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if len(req.Identity) == 0 {
		return badRequest(c, "identity is required")
	}

	if err := h.tokens.Consume(c.Request().Context(), token.NewKey(req.Identity...)); err != nil {
		return h.serviceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *TokenHandler) ConsumeAndValidate(c echo.Context) error {
	var req ValidateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	valid, err := h.tokens.ConsumeAndValidate(c.Request().Context(), token.NewKey(req.Identity...), req.Code)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(http.StatusOK, ValidateResponse{Valid: valid})
}

func (h *TokenHandler) QRCode(c echo.Context) error {
	size := 0
	if raw := c.QueryParam("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return badRequest(c, "invalid size")
		}
		size = n
	}

	png, err := h.qr.Render(c.QueryParam("data"), size)
	if err != nil {
		switch {
		case errors.Is(err, qrcode.ErrEmptyContent), errors.Is(err, qrcode.ErrInvalidSize):
			return badRequest(c, err.Error())
		case errors.Is(err, qrcode.ErrContentTooLong):
			return badRequest(c, qrcode.ErrContentTooLong.Error())
		case errors.Is(err, qrcode.ErrSizeTooSmall):
			return badRequest(c, qrcode.ErrSizeTooSmall.Error())
		}
		return h.serviceError(c, err)
	}

	c.Response().Header().Set("Cache-Control", "no-store")
	return c.Blob(http.StatusOK, "image/png", png)
}

func (h *TokenHandler) serviceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, token.ErrEmptyKey),
		errors.Is(err, token.ErrInvalidValidity),
		errors.Is(err, token.ErrInvalidDigitCount):
		return badRequest(c, err.Error())
	}

	if h.logger != nil {
		h.logger.Error("token request failed",
			zap.Error(err),
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()))
	}
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}
