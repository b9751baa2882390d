package main

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

const defaultAlertListLimit = 100

// HandleListAlerts returns recent admin alerts, newest first. Supports
// ?acknowledged=true|false and ?limit=N.
func (srv *Server) HandleListAlerts(c echo.Context) error {
	var acknowledged *bool
	if raw := c.QueryParam("acknowledged"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid acknowledged param")
		}
		acknowledged = &v
	}

	limit := defaultAlertListLimit
	if raw := c.QueryParam("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit param")
		}
		limit = v
	}

	alerts, err := srv.engine.Records.ListAlerts(c.Request().Context(), acknowledged, limit)
	if err != nil {
		return err
	}
	return c.JSON(200, alerts)
}

func (srv *Server) HandleAckAlert(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid alert id")
	}

	if err := srv.engine.Records.AckAlert(c.Request().Context(), uint(id)); err != nil {
		return err
	}
	return c.JSON(200, GenericStatus{Status: "ok", Daemon: "gatekeeper"})
}
