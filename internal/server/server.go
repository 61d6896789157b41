package server

import (
	"context"
	"net/http"

	"pharmacy-portal/internal/config"
	"pharmacy-portal/internal/handler"
	appmw "pharmacy-portal/internal/middleware"
	"pharmacy-portal/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Services struct {
	Cart     service.CartService
	Checkout service.CheckoutService
	Order    service.OrderService
	Product  service.ProductService
	Form     service.FormService
	Admin    service.AdminService
	Provider service.ProviderService
}

type Server struct {
	echo            *echo.Echo
	cfg             *config.Config
	gatherer        prometheus.Gatherer
	cartHandler     *handler.CartHandler
	paymentHandler  *handler.PaymentHandler
	orderHandler    *handler.OrderHandler
	productHandler  *handler.ProductHandler
	formHandler     *handler.FormHandler
	adminHandler    *handler.AdminHandler
	providerHandler *handler.ProviderHandler
}

func NewServer(cfg *config.Config, services Services, gatherer prometheus.Gatherer, log *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestID())
	e.Use(appmw.RequestContext(log))
	e.Use(appmw.RequestLogger(log))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.BodyLimit("2M"))

	s := &Server{
		echo:            e,
		cfg:             cfg,
		gatherer:        gatherer,
		cartHandler:     handler.NewCartHandler(services.Cart),
		paymentHandler:  handler.NewPaymentHandler(services.Checkout),
		orderHandler:    handler.NewOrderHandler(services.Order),
		productHandler:  handler.NewProductHandler(services.Product),
		formHandler:     handler.NewFormHandler(services.Form),
		adminHandler:    handler.NewAdminHandler(services.Admin),
		providerHandler: handler.NewProviderHandler(services.Provider),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	if s.gatherer != nil {
		s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// -------- public --------
	api.GET("/products", s.productHandler.List)
	api.GET("/products/:id", s.productHandler.Get)
	api.POST("/providers", s.providerHandler.Signup)

	// -------- webhooks / callbacks --------
	api.POST("/webhooks/payment", s.paymentHandler.Webhook)
	api.POST("/webhooks/esign", s.providerHandler.ESignWebhook)

	// -------- signed-in shoppers --------
	authed := api.Group("", appmw.Session(s.cfg.Session))
	authed.GET("/cart", s.cartHandler.Get)
	authed.POST("/cart", s.cartHandler.Add)
	authed.DELETE("/cart", s.cartHandler.Clear)
	authed.PUT("/cart/:id", s.cartHandler.Update)
	authed.DELETE("/cart/:id", s.cartHandler.Remove)

	authed.POST("/checkout/intent", s.paymentHandler.CreateIntent)

	authed.GET("/orders", s.orderHandler.List)
	authed.POST("/orders", s.orderHandler.Create)
	authed.GET("/orders/:id", s.orderHandler.Get)

	authed.POST("/forms", s.formHandler.Submit)

	// -------- admin --------
	admin := api.Group("/admin", appmw.AdminGate(s.cfg.Admin))
	admin.GET("/products", s.productHandler.AdminList)
	admin.POST("/products", s.productHandler.Create)
	admin.PUT("/products/:id", s.productHandler.Update)
	admin.DELETE("/products/:id", s.productHandler.Delete)

	admin.GET("/submissions", s.adminHandler.ListSubmissions)
	admin.GET("/submissions/stats", s.adminHandler.SubmissionStats)
	admin.PUT("/submissions/:id/status", s.adminHandler.UpdateSubmissionStatus)

	admin.GET("/orders", s.adminHandler.ListOrders)

	admin.PUT("/providers/:id/status", s.providerHandler.SetStatus)
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
