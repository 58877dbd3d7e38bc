package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jacksonlee411/assetdesk/internal/backup"
	"github.com/jacksonlee411/assetdesk/internal/routing"
	"github.com/jacksonlee411/assetdesk/modules/asset/presentation/controllers"
	"github.com/jacksonlee411/assetdesk/pkg/authz"
	"github.com/jacksonlee411/assetdesk/pkg/dict"
	"github.com/jacksonlee411/assetdesk/pkg/logger"
)

const entrypoint = "server"

type HandlerOptions struct {
	Config   Config
	Stores   *Stores
	Services *Services
	Backups  *backup.Service
	Logger   logger.Logger
	// Registry defaults to a fresh registry with process and Go collectors.
	Registry   *prometheus.Registry
	Authorizer authorizer
}

func NewHandler(ctx context.Context, cfg Config, stores *Stores, backups *backup.Service, log logger.Logger) (http.Handler, error) {
	return NewHandlerWithOptions(ctx, HandlerOptions{Config: cfg, Stores: stores, Backups: backups, Logger: log})
}

func NewHandlerWithOptions(ctx context.Context, opts HandlerOptions) (http.Handler, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Default()
	}
	if opts.Stores == nil {
		return nil, errors.New("server: stores are required")
	}

	allowlistPath := opts.Config.AllowlistPath
	if allowlistPath == "" {
		p, err := routing.DefaultAllowlistPath()
		if err != nil {
			return nil, err
		}
		allowlistPath = p
	}
	a, err := routing.LoadAllowlist(allowlistPath)
	if err != nil {
		return nil, err
	}
	classifier, err := routing.NewClassifier(a, entrypoint)
	if err != nil {
		return nil, err
	}

	if err := loadErrorCatalog(opts.Config.ErrorCatalogPath, log); err != nil {
		return nil, err
	}
	if err := dict.RegisterResolver(dict.NewStaticResolver()); err != nil {
		return nil, err
	}

	svcs := opts.Services
	if svcs == nil {
		svcs, err = BuildServices(ctx, opts.Config, opts.Stores, log)
		if err != nil {
			return nil, err
		}
	}
	backups := opts.Backups
	if backups == nil {
		backups = backup.NewService(opts.Stores.Assets, opts.Config.BackupDir,
			backup.WithRestorer(opts.Stores.Restorer),
			backup.WithPreviewPurger(opts.Stores.Purger),
			backup.WithLogger(log.With("component", "backup")),
		)
	}

	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	metrics := controllers.NewMetrics(registry)

	authorizer := opts.Authorizer
	if authorizer == nil {
		az, err := loadAuthorizer()
		if err != nil {
			return nil, err
		}
		if az.Mode() != authz.ModeEnforce {
			log.Warn("authz is not enforcing", "mode", az.Mode())
		}
		authorizer = az
	}

	router := routing.NewRouter(classifier)
	registerOpsRoutes(router, registry, backups)
	registerAssetRoutes(router, controllers.AssetsController{Reader: svcs.Read, Writer: svcs.Write, Metrics: metrics})
	registerImportRoutes(router, controllers.ImportsController{Importer: svcs.Import, Metrics: metrics})

	if err := routing.VerifyRoutes(a, entrypoint, router.Routes()); err != nil {
		return nil, err
	}

	return routing.WithRequestLog(classifier, log, withAuthz(classifier, authorizer, router)), nil
}

func loadErrorCatalog(path string, log logger.Logger) error {
	if path == "" {
		p, err := routing.DefaultErrorCatalogPath()
		if err != nil {
			log.Warn("error catalog not found; messages fall back to codes")
			return nil
		}
		path = p
	}
	c, err := routing.LoadErrorCatalog(path)
	if err != nil {
		return err
	}
	routing.SetErrorCatalog(c)
	return nil
}

func registerOpsRoutes(router *routing.Router, registry *prometheus.Registry, backups *backup.Service) {
	health := func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}
	router.HandleFunc(routing.RouteClassOps, http.MethodGet, "/health", health)
	router.HandleFunc(routing.RouteClassOps, http.MethodGet, "/healthz", health)
	router.Handle(routing.RouteClassOps, http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	router.HandleFunc(routing.RouteClassInternalAPI, http.MethodPost, "/ops/api/backups", func(w http.ResponseWriter, r *http.Request) {
		handleRunBackupAPI(w, r, backups)
	})
	router.HandleFunc(routing.RouteClassInternalAPI, http.MethodGet, "/ops/api/backups/latest", func(w http.ResponseWriter, r *http.Request) {
		handleLatestBackupAPI(w, r, backups)
	})
	router.HandleFunc(routing.RouteClassInternalAPI, http.MethodPost, "/ops/api/backups/restore", func(w http.ResponseWriter, r *http.Request) {
		handleRestoreBackupAPI(w, r, backups)
	})
}

func registerAssetRoutes(router *routing.Router, c controllers.AssetsController) {
	api := routing.RouteClassPublicAPI
	router.HandleFunc(api, http.MethodGet, "/api/v1/assets", c.HandleAssetsAPI)
	router.HandleFunc(api, http.MethodPost, "/api/v1/assets", c.HandleAssetsAPI)
	router.HandleFunc(api, http.MethodPost, "/api/v1/assets/update", c.HandleUpdateAPI)
	router.HandleFunc(api, http.MethodPost, "/api/v1/assets/delete", c.HandleDeleteAPI)
	router.HandleFunc(api, http.MethodGet, "/api/v1/assets/export", c.HandleExport)
	router.HandleFunc(api, http.MethodGet, "/api/v1/assets/export/keka", c.HandleKekaExport)
	router.HandleFunc(api, http.MethodGet, "/api/v1/assets/{id}", c.HandleViewAPI)
	router.HandleFunc(api, http.MethodGet, "/api/v1/assets/{id}/edit-form", c.HandleEditFormAPI)

	router.HandleFunc(api, http.MethodGet, "/api/v1/types", c.HandleTypesAPI)
	router.HandleFunc(api, http.MethodPost, "/api/v1/types", c.HandleTypesAPI)
	router.HandleFunc(api, http.MethodGet, "/api/v1/types/{category}/fields", c.HandleTypeFieldsAPI)
	router.HandleFunc(api, http.MethodGet, "/api/v1/master-fields", c.HandleMasterFieldsAPI)
}

func registerImportRoutes(router *routing.Router, c controllers.ImportsController) {
	api := routing.RouteClassPublicAPI
	router.HandleFunc(api, http.MethodPost, "/api/v1/imports", c.HandleUploadAPI)
	router.HandleFunc(api, http.MethodGet, "/api/v1/imports/{id}", c.HandlePreviewAPI)
	router.HandleFunc(api, http.MethodPost, "/api/v1/imports/{id}/confirm", c.HandleConfirmAPI)
	router.HandleFunc(api, http.MethodPost, "/api/v1/imports/{id}/discard", c.HandleDiscardAPI)
	router.HandleFunc(api, http.MethodGet, "/api/v1/imports/{id}/errors", c.HandleErrorReport)
	router.HandleFunc(api, http.MethodGet, "/api/v1/imports/{id}/fixed", c.HandleFixedWorkbook)
}
