// rtnews backend
// ==============
// JSON-file-backed REST API for the news site: login, article CRUD and
// media uploads. State lives in a single JSON document plus a flat
// uploads directory.
//
// Boot the server:
// ----------------
// $ go run .
//
// Client requests:
// ----------------
// $ curl http://localhost:5000/api/health
// {"status":"ok","timestamp":"..."}
//
// $ curl http://localhost:5000/api/articles
// []
//
// $ curl -X POST -d '{"username":"admin","password":"..."}' http://localhost:5000/api/auth/login
// {"success":true,"token":"...","user":{"id":"1","username":"admin","role":"admin"}}
//
// Passing -routes prints the generated route docs instead of serving.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/docgen"
	"github.com/go-chi/httprate"
	"github.com/go-chi/render"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/global"
	export "go.opentelemetry.io/otel/sdk/export/metric"
	"go.opentelemetry.io/otel/sdk/metric/aggregator/histogram"
	controller "go.opentelemetry.io/otel/sdk/metric/controller/basic"
	processor "go.opentelemetry.io/otel/sdk/metric/processor/basic"
	selector "go.opentelemetry.io/otel/sdk/metric/selector/simple"

	"github.com/rtnews/backend/internal/article"
	"github.com/rtnews/backend/internal/auth"
	"github.com/rtnews/backend/internal/config"
	"github.com/rtnews/backend/internal/errresponse"
	"github.com/rtnews/backend/internal/store"
	"github.com/rtnews/backend/internal/upload"
)

const ServiceName = "rtnews"

type CtxKey int8

const (
	CtxKeyLogger CtxKey = iota
)

// App ties the handlers, config and logger together for route setup.
type App struct {
	sugarLogger *zap.SugaredLogger
	config      *config.Config
	auth        *auth.Handler
	articles    *article.Handler
	requests    *metric.BoundInt64Counter
}

func main() {
	var (
		routes   = flag.Bool("routes", false, "Generate router documentation")
		cfgPath  = flag.String("config", "", "optional YAML config file")
		addr     = flag.String("addr", "", "listen address (overrides config)")
		diagAddr = flag.String("diag_addr", "", "diag listen address (overrides config)")
	)
	flag.Parse()

	// .env is optional; the environment itself always wins.
	_ = godotenv.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync() // flushes buffer, if any
	sugar := logger.Sugar()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		sugar.Fatalw("load config", "err", err)
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *diagAddr != "" {
		cfg.DiagAddr = *diagAddr
	}

	a, err := newApp(cfg, sugar)
	if err != nil {
		sugar.Fatalw("init app", "err", err)
	}

	promCfg := prometheus.Config{}
	c := controller.New(
		processor.New(
			selector.NewWithHistogramDistribution(
				histogram.WithExplicitBoundaries(promCfg.DefaultHistogramBoundaries),
			),
			export.CumulativeExportKindSelector(),
			processor.WithMemory(true),
		),
	)
	exporter, err := prometheus.New(promCfg, c)
	if err != nil {
		sugar.Panicf("failed to initialize prometheus exporter %v", err)
	}
	global.SetMeterProvider(exporter.MeterProvider())

	meter := global.Meter(ServiceName)
	labels := []attribute.KeyValue{
		attribute.String("service", ServiceName),
	}
	completed := metric.Must(meter).NewInt64Counter(
		"http/server/completed_count",
		metric.WithDescription("Count of completed HTTP requests"),
	).Bind(labels...)
	defer completed.Unbind()
	a.requests = &completed

	r := a.Router()

	diagRouter := chi.NewRouter()
	diagRouter.Get("/metrics", exporter.ServeHTTP)

	if *routes {
		// nolint
		fmt.Println(docgen.MarkdownRoutesDoc(r, docgen.MarkdownOpts{
			ProjectPath: "github.com/rtnews/backend",
			Intro:       "rtnews backend generated route docs.",
		}))

		return
	}

	sugar.Infow("backend running", "addr", cfg.ListenAddr, "data_file", cfg.DataFile)
	if cfg.InsecureSecret() {
		sugar.Warnw("JWT_SECRET is the shipped default, change it in production")
	}

	go func() {
		if err := http.ListenAndServe(cfg.ListenAddr, r); err != nil {
			a.sugarLogger.Errorw(err.Error())
		}
	}()

	if err := http.ListenAndServe(cfg.DiagAddr, diagRouter); err != nil {
		a.sugarLogger.Errorw(err.Error())
	}
}

// newApp builds the store, seeds the admin account and wires the
// handlers.
func newApp(cfg *config.Config, sugar *zap.SugaredLogger) (*App, error) {
	st := store.New(cfg.DataFile)
	hash, err := auth.HashPassword(cfg.Seed.Password)
	if err != nil {
		return nil, err
	}
	if err := st.Init(cfg.Seed.Username, hash, cfg.Seed.Email); err != nil {
		return nil, err
	}

	saver, err := upload.NewSaver(cfg.UploadDir, cfg.MaxUploadBytes)
	if err != nil {
		return nil, err
	}

	return &App{
		sugarLogger: sugar,
		config:      cfg,
		auth:        auth.NewHandler(cfg.JWT, st, sugar),
		articles:    article.NewHandler(article.NewService(st), saver, sugar),
	}, nil
}

// Router assembles the public route table.
func (a *App) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(a.Logger)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.URLFormat)
	r.Use(a.CountCompleted)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{a.config.CORSOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}))
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/api/health", a.Health)

	r.Route("/api/auth", func(r chi.Router) {
		r.With(httprate.Limit(
			a.config.Login.MaxAttempts,
			a.config.Login.Window,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				_ = render.Render(w, r, errresponse.ErrTooManyRequests)
			}),
		)).Post("/login", a.auth.Login)
	})

	// RESTy routes for the "articles" resource. Reads are public,
	// writes sit behind the bearer token gate.
	r.Route("/api/articles", func(r chi.Router) {
		r.Get("/", a.articles.ListArticles)
		r.With(auth.Verifier(a.config.JWT)).Post("/", a.articles.CreateArticle)

		r.Route("/{articleID}", func(r chi.Router) {
			r.Use(a.articles.Ctx) // Load the *Article on the request context
			r.Get("/", a.articles.GetArticle)
			r.With(auth.Verifier(a.config.JWT)).Put("/", a.articles.UpdateArticle)
			r.With(auth.Verifier(a.config.JWT)).Delete("/", a.articles.DeleteArticle)
		})
	})

	FileServer(r, "/uploads", http.Dir(a.config.UploadDir))

	return r
}

// Health is the liveness probe.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, render.M{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Logger puts the sugared logger on the request context so handlers
// deep in the chain can log with it.
func (a *App) Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), CtxKeyLogger, a.sugarLogger)))
	})
}

// CountCompleted bumps the completed-request counter once the handler
// chain returns.
func (a *App) CountCompleted(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		if a.requests != nil {
			a.requests.Add(r.Context(), 1)
		}
	})
}

// FileServer mounts a static file tree under path. Used to serve the
// raw upload binaries referenced by article records.
func FileServer(r chi.Router, path string, root http.FileSystem) {
	if strings.ContainsAny(path, "{}*") {
		panic("FileServer does not permit any URL parameters.")
	}

	if path != "/" && path[len(path)-1] != '/' {
		r.Get(path, http.RedirectHandler(path+"/", http.StatusMovedPermanently).ServeHTTP)
		path += "/"
	}
	path += "*"

	r.Get(path, func(w http.ResponseWriter, r *http.Request) {
		rctx := chi.RouteContext(r.Context())
		pathPrefix := strings.TrimSuffix(rctx.RoutePattern(), "/*")
		fs := http.StripPrefix(pathPrefix, http.FileServer(root))
		fs.ServeHTTP(w, r)
	})
}
