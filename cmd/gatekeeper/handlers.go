package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/boardpost/gatekeeper/moderation"

	"github.com/carlmjohnson/versioninfo"
	"github.com/labstack/echo/v4"
)

type GenericStatus struct {
	Status  string `json:"status"`
	Daemon  string `json:"daemon"`
	Message string `json:"msg,omitempty"`
}

func (srv *Server) errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	var errorMessage string

	var he *echo.HTTPError
	var verr *moderation.ValidationError
	switch {
	case errors.As(err, &he):
		code = he.Code
		errorMessage = fmt.Sprintf("%s", he.Message)
	case errors.As(err, &verr):
		code = http.StatusBadRequest
		errorMessage = verr.Error()
	case errors.Is(err, moderation.ErrNotFound):
		code = http.StatusNotFound
		errorMessage = "not found"
	case errors.Is(err, moderation.ErrInvalidAsset):
		code = http.StatusBadRequest
		errorMessage = err.Error()
	case errors.Is(err, moderation.ErrConflict):
		// retries exhausted under concurrent writes; the caller should retry
		code = http.StatusServiceUnavailable
		errorMessage = "temporarily unable to persist, retry"
	}

	if code >= 500 {
		slog.Warn("gatekeeper-http-internal-error", "err", err, "path", c.Path())
	}
	c.JSON(code, GenericStatus{Status: "error", Daemon: "gatekeeper", Message: errorMessage})
}

func (srv *Server) HandleHealthCheck(c echo.Context) error {
	return c.JSON(200, GenericStatus{Status: "ok", Daemon: "gatekeeper", Message: versioninfo.Short()})
}

// HandleSubmitContent accepts a new submission and runs it through the
// pipeline. The response always carries the reference identifier; for async
// media the status is AWAITING_MEDIA and the final outcome arrives via the
// record later.
func (srv *Server) HandleSubmitContent(c echo.Context) error {
	var req moderation.SubmitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	rec, err := srv.engine.SubmitContent(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, rec)
}

type analyzeTextRequest struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	Language string `json:"language,omitempty"`
}

type analyzeTextResponse struct {
	Blocked bool                  `json:"blocked"`
	Result  moderation.TextResult `json:"result"`
}

// HandleAnalyzeText is the stateless scoring preview: no record is created
// and no alerts are emitted.
func (srv *Server) HandleAnalyzeText(c echo.Context) error {
	var req analyzeTextRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, blocked := srv.engine.AnalyzeText(c.Request().Context(), req.Title, req.Body, req.Language)
	return c.JSON(200, analyzeTextResponse{Blocked: blocked, Result: result})
}

func (srv *Server) HandleGetContent(c echo.Context) error {
	refID := c.Param("referenceId")
	if refID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing reference identifier")
	}

	rec, err := srv.engine.GetContent(c.Request().Context(), refID)
	if err != nil {
		return err
	}
	return c.JSON(200, rec)
}

// HandleJobCallback receives job-status notifications from the media
// backend. Always returns 200 for deliveries that cannot be acted on
// (unknown job, redelivery, already-finalized record) so the backend stops
// retrying them.
func (srv *Server) HandleJobCallback(c echo.Context) error {
	var msg moderation.JobStatusMessage
	if err := c.Bind(&msg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid callback body")
	}

	if err := srv.engine.HandleJobUpdate(c.Request().Context(), msg); err != nil {
		return err
	}
	return c.JSON(200, GenericStatus{Status: "ok", Daemon: "gatekeeper"})
}
