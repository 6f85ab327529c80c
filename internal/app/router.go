package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mostrador/mostrador/internal/catalog"
	"github.com/mostrador/mostrador/internal/credit"
	"github.com/mostrador/mostrador/internal/purchases"
	"github.com/mostrador/mostrador/internal/reservations"
	"github.com/mostrador/mostrador/internal/returns"
	"github.com/mostrador/mostrador/internal/sales"
	"github.com/mostrador/mostrador/internal/sequence"
	"github.com/mostrador/mostrador/internal/stock"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger              *slog.Logger
	Config              *Config
	Pool                *pgxpool.Pool
	CatalogHandler      *catalog.Handler
	SequenceHandler     *sequence.Handler
	StockHandler        *stock.Handler
	SalesHandler        *sales.Handler
	ReservationsHandler *reservations.Handler
	ReturnsHandler      *returns.Handler
	PurchasesHandler    *purchases.Handler
	CreditHandler       *credit.Handler
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if params.Pool != nil {
			if err := params.Pool.Ping(r.Context()); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded"}`))
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(APIKeyMiddleware(params.Config, params.Logger))

		api.Route("/products", params.CatalogHandler.MountRoutes)
		api.Route("/series", params.SequenceHandler.MountRoutes)
		api.Route("/stock", params.StockHandler.MountRoutes)
		api.Route("/sales", params.SalesHandler.MountRoutes)
		api.Route("/reservations", params.ReservationsHandler.MountRoutes)
		api.Route("/returns", params.ReturnsHandler.MountRoutes)
		api.Route("/purchases", params.PurchasesHandler.MountRoutes)
		api.Route("/credit", params.CreditHandler.MountRoutes)
	})

	return r
}
