package router

import (
	"database/sql"
	"net/http"
	"time"

	_ "family-locator/internal/docs"

	mem "family-locator/internal/adapters/storage/memory"
	pg "family-locator/internal/adapters/storage/postgres"
	"family-locator/internal/domain/families"
	"family-locator/internal/domain/geofences"
	"family-locator/internal/domain/tracking"
	"family-locator/internal/domain/zoneevents"
	"family-locator/internal/middleware"
	"family-locator/internal/platform/cache"
	"family-locator/internal/platform/keylock"
	"family-locator/internal/platform/logger"
	"family-locator/internal/platform/metrics"
	"family-locator/internal/ports/auth"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)

	// Opcional: si viene, usa Postgres. Si no, in-memory.
	DB *sql.DB

	Logger  logger.Logger
	Metrics *metrics.Metrics

	// Cache de geocercas activas por familia. nil = sin cache.
	Cache    cache.Cacher
	CacheTTL time.Duration

	// Locker serializa evaluaciones del mismo hijo. nil = lock en memoria.
	Locker keylock.Locker

	// Zona horaria de los horarios de geocercas. nil = time.Local.
	Location *time.Location

	// Límite de evaluaciones por usuario. PerSecond <= 0 lo desactiva.
	RatePerSecond float64
	RateBurst     int

	CORSOrigins []string

	// TrustProxy habilita chi RealIP. Sin proxy delante, esos headers los
	// controla el cliente y rotarían la key del rate limit por IP.
	TrustProxy bool
}

func NewRouter(opts Options) http.Handler {
	lg := opts.Logger
	if lg == nil {
		lg = logger.Nop()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	if opts.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.DebugUserHeader},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.AuthContext(opts.AuthVerifier, lg))
	r.Use(middleware.RequestLogger(lg, "/health", "/metrics"))
	r.Use(middleware.Recover(lg))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	var (
		familyRepo   families.Repository
		geofenceRepo geofences.Repository
		eventRepo    zoneevents.Repository
	)

	if opts.DB != nil {
		familyRepo = pg.NewFamiliesRepo(opts.DB)
		geofenceRepo = pg.NewGeofencesRepo(opts.DB)
		eventRepo = pg.NewZoneEventsRepo(opts.DB)
	} else {
		familyRepo = mem.NewFamilyRepo()
		geofenceRepo = mem.NewGeofenceRepo()
		eventRepo = mem.NewZoneEventRepo()
	}

	// Services por módulo
	familiesSvc := families.NewService(familyRepo)
	eventsSvc := zoneevents.NewService(eventRepo, familiesSvc, geofenceRepo)
	geofencesSvc := geofences.NewService(geofenceRepo, familiesSvc, geofences.Options{
		Cache:    opts.Cache,
		CacheTTL: opts.CacheTTL,
		Purger:   eventsSvc,
		Logger:   lg.With(map[string]any{"module": "geofences"}),
		Observer: m,
	})
	engine := tracking.NewEngine(familiesSvc, geofencesSvc, eventsSvc, tracking.Options{
		Locker:   opts.Locker,
		Logger:   lg.With(map[string]any{"module": "tracking"}),
		Recorder: m,
		Location: opts.Location,
	})

	// Rutas por módulo
	families.RegisterRoutes(r, familiesSvc)
	geofences.RegisterRoutes(r, geofencesSvc)
	zoneevents.RegisterRoutes(r, eventsSvc)

	limiter := middleware.NewRateLimiter(opts.RatePerSecond, opts.RateBurst)
	r.Group(func(lr chi.Router) {
		lr.Use(limiter.Middleware)
		tracking.RegisterRoutes(lr, engine)
	})

	return r
}
