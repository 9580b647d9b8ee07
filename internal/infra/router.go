package infra

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	echoSwagger "github.com/swaggo/echo-swagger"
	_ "github.com/umalmyha/customer-records/docs" // swagger spec
	"github.com/umalmyha/customer-records/internal/config"
	"github.com/umalmyha/customer-records/internal/handlers"
	"github.com/umalmyha/customer-records/internal/middleware"
	"github.com/umalmyha/customer-records/internal/service"
	"github.com/umalmyha/customer-records/internal/validation"
)

const healthMessage = "ALL GOOD!!!!"

// Router builds echo application serving customer endpoints under cfg.BasePath
func Router(cfg config.HTTPCfg, customerSvc service.CustomerService, reg *prometheus.Registry, logger *logrus.Logger) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.HTTPErrorHandler = func(err error, c echo.Context) {
		logErr(logger, err, c)
		e.DefaultHTTPErrorHandler(err, c)
	}

	v, err := validation.English()
	if err != nil {
		return nil, err
	}
	e.Validator = v

	e.Pre(echoMiddleware.RemoveTrailingSlash())
	e.Use(echoMiddleware.RequestIDWithConfig(echoMiddleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.Logger(logger))

	if cfg.MetricsEnabled {
		httpMetrics, err := middleware.NewHTTPMetrics(reg)
		if err != nil {
			return nil, err
		}
		e.Use(httpMetrics.Middleware())
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	if cfg.SwaggerEnabled {
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"message": healthMessage})
	})

	customerHandler := handlers.NewCustomerHTTPHandler(customerSvc)

	customers := e.Group(cfg.BasePath)
	customers.POST("/create", customerHandler.Create)
	customers.GET("", customerHandler.GetAll)
	customers.PATCH("/:id", customerHandler.Patch)
	customers.DELETE("/:id", customerHandler.DeleteByID)

	return e, nil
}

func logErr(logger *logrus.Logger, err error, c echo.Context) {
	entry := logger.WithFields(logrus.Fields{
		"method": c.Request().Method,
		"uri":    c.Request().RequestURI,
	})

	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) {
		entry.Errorf("unexpected error occurred on request processing - %v", err)
		return
	}

	if httpErr.Internal != nil {
		entry = entry.WithError(httpErr.Internal)
	}

	if httpErr.Code >= http.StatusInternalServerError {
		entry.Errorf("request processing failed - %v", httpErr.Message)
		return
	}
	entry.Debugf("request rejected - %v", httpErr.Message)
}
