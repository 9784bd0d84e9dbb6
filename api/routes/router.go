package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hoangpvhe170186/Group5-WDP301-sub000/api/controllers"
	ordercontrollers "github.com/hoangpvhe170186/Group5-WDP301-sub000/api/controllers/orders"
	settlementcontrollers "github.com/hoangpvhe170186/Group5-WDP301-sub000/api/controllers/settlement"
	webhookcontrollers "github.com/hoangpvhe170186/Group5-WDP301-sub000/api/controllers/webhooks"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/api/middleware"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/internal/dispatch"
	internalsettlement "github.com/hoangpvhe170186/Group5-WDP301-sub000/internal/settlement"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/internal/tracking"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/config"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/db"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/logger"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/payos"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	dispatchService dispatch.Service,
	trackingService tracking.Service,
	settlementService internalsettlement.Service,
	gateway payos.Gateway,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	// Gateway notifications authenticate with the payload signature, not a
	// carrier token.
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/payos", webhookcontrollers.PayOSWebhook(settlementService, gateway, logg))
	})

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Use(middleware.CarrierAuth(cfg.JWT, logg))

		r.Get("/{orderId}", ordercontrollers.Detail(dispatchService, logg))
		r.Post("/{orderId}/accept", ordercontrollers.Accept(dispatchService, logg))
		r.Post("/{orderId}/decline", ordercontrollers.Decline(dispatchService, logg))
		r.Post("/{orderId}/confirm", ordercontrollers.ConfirmContract(dispatchService, logg))
		r.Post("/{orderId}/progress", ordercontrollers.Progress(dispatchService, logg))
		r.Post("/{orderId}/complete", ordercontrollers.ConfirmDelivery(dispatchService, logg))
		r.Get("/{orderId}/trackings", ordercontrollers.ListTrackings(trackingService, logg))
		r.Post("/{orderId}/trackings", ordercontrollers.AddTracking(dispatchService, logg))
	})

	r.Route("/api/v1/settlement", func(r chi.Router) {
		r.Use(middleware.CarrierAuth(cfg.JWT, logg))

		r.Get("/debts", settlementcontrollers.ListDebts(settlementService, logg))
		r.Post("/debts", settlementcontrollers.CreateDebt(settlementService, logg))
		r.Post("/debts/{debtId}/payments", settlementcontrollers.InitiatePayment(settlementService, logg))
	})

	return r
}
