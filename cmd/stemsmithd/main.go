// Command stemsmithd runs the stem-separation job daemon: an HTTP surface
// for uploading audio, tracking job progress, and downloading results.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"stemsmith/internal/config"
	"stemsmith/internal/diagnostics"
	"stemsmith/internal/domain"
	"stemsmith/internal/fetcher"
	"stemsmith/internal/httpapi"
	"stemsmith/internal/jobmodel"
	"stemsmith/internal/jobrunner"
	"stemsmith/internal/manifest"
	"stemsmith/internal/service"
	"stemsmith/internal/workerpool"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	settings := config.DefaultSettings()

	root := &cobra.Command{
		Use:   "stemsmithd",
		Short: "Local audio stem-separation job daemon",
	}

	root.PersistentFlags().StringVar(&settings.BindAddress, "bind-address", settings.BindAddress, "address to bind the HTTP server to")
	root.PersistentFlags().IntVar(&settings.Port, "port", settings.Port, "port to bind the HTTP server to")
	root.PersistentFlags().StringVar(&settings.CacheRoot, "cache-root", settings.CacheRoot, "directory for cached model weights")
	root.PersistentFlags().StringVar(&settings.OutputRoot, "output-root", settings.OutputRoot, "directory for separated stem output")
	root.PersistentFlags().IntVar(&settings.Workers, "workers", settings.Workers, "number of concurrent separation workers")
	root.PersistentFlags().StringVar(&settings.ManifestPath, "manifest", settings.ManifestPath, "path to a model manifest file (defaults to the built-in manifest)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP job server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(settings)
		},
	}

	doctorCmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check cache/output directories and cached model weights",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(settings)
		},
	}

	root.AddCommand(serveCmd, doctorCmd)
	root.RunE = serveCmd.RunE

	return root
}

func loadManifest(settings domain.Settings) (*manifest.Manifest, error) {
	if settings.ManifestPath == "" {
		return manifest.LoadDefault(), nil
	}
	return manifest.FromFile(settings.ManifestPath)
}

func runServe(settings domain.Settings) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	m, err := loadManifest(settings)
	if err != nil {
		logger.Error("load manifest", "error", err)
		return err
	}

	onEvent := func(descriptor jobmodel.Descriptor, event workerpool.Event) {
		logger.Info("job event",
			"input", descriptor.InputPath,
			"status", event.Status,
			"progress", event.Progress,
			"message", event.Message,
		)
	}

	svc, err := service.Create(service.RuntimeConfig{
		Cache: service.CacheConfig{
			Root:     settings.CacheRoot,
			Fetcher:  fetcher.NewHTTPFetcher(),
			Manifest: m,
		},
		OutputRoot:  settings.OutputRoot,
		WorkerCount: settings.Workers,
		OnJobEvent:  jobrunner.Observer(onEvent),
		// Loader, Writer, ModelLoad and ModelInfer are left unset: the
		// audio codec and the neural separation model are external
		// collaborators this repository only specifies interfaces for.
	}, jobmodel.Overrides{})
	if err != nil {
		logger.Error("create service", "error", err)
		return err
	}

	srv := httpapi.NewServer(httpapi.Config{
		Logger:     logger,
		Service:    svc,
		UploadsDir: settings.CacheRoot + "-uploads",
	})

	addr := fmt.Sprintf("%s:%d", settings.BindAddress, settings.Port)
	httpServer := &http.Server{Addr: addr, Handler: srv.Router()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "address", addr)
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("serve", "error", err)
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		svc.Shutdown()
	}

	return nil
}

func runDoctor(settings domain.Settings) error {
	m, err := loadManifest(settings)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load manifest: %v\n", err)
		return err
	}

	svc, err := service.Create(service.RuntimeConfig{
		Cache: service.CacheConfig{
			Root:     settings.CacheRoot,
			Fetcher:  fetcher.NewHTTPFetcher(),
			Manifest: m,
		},
		OutputRoot: settings.OutputRoot,
	}, jobmodel.Overrides{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "create service: %v\n", err)
		return err
	}
	defer svc.Shutdown()

	statuses := svc.ListModels()
	modelStatuses := make([]diagnostics.ModelStatus, 0, len(statuses))
	for _, st := range statuses {
		detail := "weights not cached"
		if st.Cached {
			detail = "weights cached at " + st.Path
		}
		modelStatuses = append(modelStatuses, diagnostics.ModelStatus{
			ProfileKey: string(st.Profile),
			Label:      string(st.Profile),
			Cached:     st.Cached,
			Detail:     detail,
		})
	}

	report := diagnostics.NewChecker().Run(settings, modelStatuses)
	for _, item := range report.Items {
		fmt.Printf("[%s] %s: %s\n", item.Status, item.Name, item.Message)
		if item.Hint != "" {
			fmt.Printf("      hint: %s\n", item.Hint)
		}
	}

	if report.HasFailures {
		return fmt.Errorf("one or more diagnostic checks failed")
	}
	return nil
}
