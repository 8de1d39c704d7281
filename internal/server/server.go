package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hongminglow/therapy-console/internal/api"
	"github.com/hongminglow/therapy-console/internal/auth"
	"github.com/hongminglow/therapy-console/internal/config"
	"github.com/hongminglow/therapy-console/internal/http/handlers"
	"github.com/hongminglow/therapy-console/internal/middleware"
	"github.com/hongminglow/therapy-console/internal/mock"
	"github.com/hongminglow/therapy-console/internal/models"
	"github.com/hongminglow/therapy-console/internal/storage"
	"github.com/hongminglow/therapy-console/internal/storage/blob"
)

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// Stores bundles the persistence the server needs.
// Blobs is optional; without it the file endpoints are not mounted.
type Stores struct {
	Users   storage.UserStore
	Records storage.RecordStore
	Blobs   *blob.Store
}

// New wires up middleware, routes, and returns a ready server.
func New(cfg config.ServerConfig, stores Stores, logger *slog.Logger) *Server {
	// No WriteTimeout: video streams and downloads last as long as the client reads.
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           Handler(cfg, stores, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       2 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer}
}

// Handler builds the routed handler without binding a listener.
func Handler(cfg config.ServerConfig, stores Stores, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(chimw.RequestID)
	r.Use(middleware.Logging(logger))
	r.Use(chimw.Recoverer)

	tokenManager := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	authHandler := handlers.NewAuthHandler(stores.Users, tokenManager, logger)

	handlers.NewHealthHandler(time.Now()).Routes(r)
	authHandler.Routes(r)

	var files *handlers.FileHandler
	if stores.Blobs != nil {
		files = handlers.NewFileHandler(stores.Records, stores.Blobs, logger)
		files.PublicRoutes(r)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(authHandler))
		authHandler.ProtectedRoutes(r)
		if files != nil {
			files.Routes(r)
		}

		records := stores.Records
		r.Route(api.PathDevice, handlers.NewDeviceHandler(records, logger).Routes)
		r.Route(api.PathSysConfig, handlers.NewSysConfigHandler(mock.SysConfig()).Routes)
		r.Route(api.PathDictType, handlers.NewResourceHandler(storage.KindDictType, records,
			handlers.Int64ID(func(d *models.DictType) *int64 { return &d.DictID }), logger).Routes)
		r.Route(api.PathDictData, handlers.NewResourceHandler(storage.KindDictData, records,
			handlers.Int64ID(func(d *models.DictData) *int64 { return &d.DictCode }), logger).Routes)
		r.Route(api.PathReport, handlers.NewResourceHandler(storage.KindReport, records,
			handlers.StringID(func(rep *models.Report) *string { return &rep.ID }), logger).Routes)
		r.Route(api.PathVisitRecord, handlers.NewResourceHandler(storage.KindVisitRecord, records,
			handlers.Int64ID(func(v *models.VisitRecord) *int64 { return &v.ID }), logger).Routes)
		r.Route(api.PathPatient, handlers.NewResourceHandler(storage.KindPatient, records,
			handlers.Int64ID(func(p *models.Patient) *int64 { return &p.ID }), logger).Routes)
		r.Route(api.PathVideo, handlers.NewResourceHandler(storage.KindVideo, records,
			handlers.StringID(func(v *models.Video) *string { return &v.ID }), logger).Routes)
	})

	return r
}

// SeedMockData fills an empty record store with generated sample data.
func SeedMockData(ctx context.Context, records storage.RecordStore, seed uint64) error {
	_, total, err := records.List(ctx, storage.KindDevice, storage.Query{})
	if err != nil {
		return err
	}
	if total > 0 {
		return nil
	}

	gen := mock.New(seed, time.Now())
	itoa := func(id int64) string { return strconv.FormatInt(id, 10) }
	steps := []func() error{
		func() error {
			return storage.Seed(ctx, records, storage.KindDevice, mock.Devices(), func(d models.Device) string { return itoa(d.ID) })
		},
		func() error {
			return storage.Seed(ctx, records, storage.KindDictType, mock.DictTypes(), func(d models.DictType) string { return itoa(d.DictID) })
		},
		func() error {
			return storage.Seed(ctx, records, storage.KindDictData, mock.DictData(), func(d models.DictData) string { return itoa(d.DictCode) })
		},
		func() error {
			return storage.Seed(ctx, records, storage.KindVisitRecord, gen.VisitRecords(50), func(v models.VisitRecord) string { return itoa(v.ID) })
		},
		func() error {
			return storage.Seed(ctx, records, storage.KindReport, gen.Reports(20), func(r models.Report) string { return r.ID })
		},
		func() error {
			return storage.Seed(ctx, records, storage.KindPatient, gen.Patients(), func(p models.Patient) string { return itoa(p.ID) })
		},
		func() error {
			return storage.Seed(ctx, records, storage.KindVideo, gen.Videos(12), func(v models.Video) string { return v.ID })
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// EnsureAdmin creates the super admin account when it does not exist yet.
func EnsureAdmin(ctx context.Context, users storage.UserStore, password string) (models.User, error) {
	if existing, err := users.FindByUsername(ctx, models.SuperAdmin); err == nil {
		return existing, nil
	}
	hash, err := handlers.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}
	return users.CreateUser(ctx, models.User{
		UserName:     models.SuperAdmin,
		NickName:     "系统管理员",
		Role:         models.SuperAdmin,
		PasswordHash: hash,
	})
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
