package gateway

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/referral/referral/internal/dashboard"
	"github.com/referral/referral/internal/domain"
	"github.com/referral/referral/internal/platform/apiclient"
)

// httpError maps dashboard, validation and backend errors onto HTTP errors.
func httpError(err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	if domain.IsValidation(err) {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	switch {
	case errors.Is(err, dashboard.ErrReadOnly):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, dashboard.ErrUnsupported):
		return echo.NewHTTPError(http.StatusMethodNotAllowed, err.Error())
	case errors.Is(err, dashboard.ErrUnknownRole),
		errors.Is(err, dashboard.ErrNoHospital),
		errors.Is(err, dashboard.ErrNoUser):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	}

	var te *apiclient.TransportError
	if errors.As(err, &te) {
		if te.Timeout() {
			return echo.NewHTTPError(http.StatusGatewayTimeout, "backend timed out").SetInternal(err)
		}
		msg := te.Message
		if msg == "" {
			msg = "backend request failed"
		}
		if te.StatusCode >= 400 && te.StatusCode < 600 {
			return echo.NewHTTPError(te.StatusCode, msg).SetInternal(err)
		}
		return echo.NewHTTPError(http.StatusBadGateway, msg).SetInternal(err)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
}
