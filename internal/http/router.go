package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Deps struct {
	Handler          *Handler
	Logger           *zap.Logger
	Metrics          http.Handler
	CORSAllowOrigins []string
}

func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := d.Handler

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(CorrelationID)
	r.Use(RequestLogger(logger))
	r.Use(Recover(logger))
	r.Use(CORS(d.CORSAllowOrigins))

	r.Get("/health", h.Health)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", h.OpenSession)
		r.Route("/{sessionId}", func(r chi.Router) {
			r.Delete("/", h.CloseSession)
			r.Put("/currency", h.SetCurrency)
			r.Post("/signals", h.PostSignal)
			r.Get("/datalayer", h.GetDataLayer)
		})
	})

	return r
}
