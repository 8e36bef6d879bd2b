// Package app is the composition root: every shared object (config,
// store, transport client, error pipeline, entity services) is built
// exactly once here and handed to consumers by reference. There is no
// ambient global state; the registry exists for callers that look
// services up by name.
package app

import (
	"context"

	"github.com/igebriel/taskweave/internal/api"
	"github.com/igebriel/taskweave/internal/config"
	"github.com/igebriel/taskweave/internal/errorhandling"
	"github.com/igebriel/taskweave/internal/registry"
	authservice "github.com/igebriel/taskweave/internal/services/auth"
	projectservice "github.com/igebriel/taskweave/internal/services/project"
	taskservice "github.com/igebriel/taskweave/internal/services/task"
	"github.com/igebriel/taskweave/internal/storage"
)

// Registry names for the shared services.
const (
	ServiceAuth     = "auth"
	ServiceProjects = "projects"
	ServiceTasks    = "tasks"
	ServiceErrors   = "errors"
	ServiceClient   = "client"
)

// App holds all application services and provides dependency injection.
type App struct {
	Config   *config.Config
	Store    *storage.Store
	Client   *api.Client
	Errors   *errorhandling.Handler
	Registry *registry.Registry

	AuthService    authservice.Service
	ProjectService projectservice.Service
	TaskService    taskservice.Service

	cancel context.CancelFunc
}

// New wires the full application from cfg. The error pipeline's drain
// loop is not running yet; call Start.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	store, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		return nil, err
	}

	client := api.NewClient(cfg.API.BaseURL,
		api.WithTimeout(cfg.API.Timeout()),
		api.WithStore(store),
	)

	ehOpts := errorhandling.Options{
		Notifier: options.notifier,
		Reporter: options.reporter,
		Policy: errorhandling.RetryPolicy{
			BaseDelay: cfg.Retry.BaseDelay(),
			MaxDelay:  cfg.Retry.MaxDelay(),
		},
	}
	if cfg.Debug.PersistErrors {
		ehOpts.Store = store
	}
	handler := errorhandling.NewHandler(ehOpts)

	projects := projectservice.NewService(client, store, handler, options.notifier)
	tasks := taskservice.NewService(client, store, handler, options.notifier, projects)
	auth := authservice.NewService(client, store)

	reg := registry.New()
	reg.RegisterInstance(ServiceClient, client)
	reg.RegisterInstance(ServiceErrors, handler)
	reg.RegisterInstance(ServiceAuth, auth)
	reg.RegisterInstance(ServiceProjects, projects)
	reg.RegisterInstance(ServiceTasks, tasks)

	return &App{
		Config:         cfg,
		Store:          store,
		Client:         client,
		Errors:         handler,
		Registry:       reg,
		AuthService:    auth,
		ProjectService: projects,
		TaskService:    tasks,
	}, nil
}

// Start launches the background work: the error report drain loop.
func (a *App) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.Errors.Start(ctx)
}

// Close flushes pending error reports and releases resources.
func (a *App) Close() error {
	if a.cancel != nil {
		a.cancel()
	}
	a.Errors.Drain(context.Background())
	a.Registry.Clear()
	return a.Store.Close()
}
