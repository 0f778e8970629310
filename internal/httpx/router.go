package httpx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AngelCh415/adboard/internal/ingest"
	"github.com/AngelCh415/adboard/internal/metrics"
	"github.com/AngelCh415/adboard/internal/utils"
)

type Options struct {
	PublicDir      string
	MaxUploadBytes int64
	Gatherer       prometheus.Gatherer
	// Ready reports whether backing services are reachable. Nil means always ready.
	Ready func(ctx context.Context) error
}

func NewRouter(log *slog.Logger, pipe *ingest.Pipeline, mSvc *metrics.Service, opts Options) http.Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 32 << 20
	}
	h := &handlers{
		log:       log.With(slog.String("component", "http")),
		pipe:      pipe,
		svc:       mSvc,
		maxUpload: opts.MaxUploadBytes,
	}

	mux := chi.NewRouter()
	mux.Use(middleware.RealIP)
	mux.Use(utils.RequestID)
	mux.Use(utils.Logger(log))
	mux.Use(middleware.Recoverer)

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
	mux.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if opts.Ready != nil {
			if err := opts.Ready(r.Context()); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(200)
		w.Write([]byte("ready"))
	})
	if opts.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	if opts.PublicDir != "" {
		mux.Handle("/public/*", http.StripPrefix("/public/", http.FileServer(http.Dir(opts.PublicDir))))
	}

	mux.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/profiles", h.listProfiles)

		r.Route("/upload/{profile}", func(r chi.Router) {
			r.Use(h.profileCtx)
			r.Post("/", h.upload)
		})
		r.Route("/data/{profile}", func(r chi.Router) {
			r.Use(h.profileCtx)
			r.Get("/", h.current)
			r.Get("/daily", h.daily)
			r.Delete("/", h.clear)
			r.Post("/clear", h.clear)
		})
	})

	return mux
}
