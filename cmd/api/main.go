package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/avolkov/pmo-budget/internal/api/handlers"
	"github.com/avolkov/pmo-budget/internal/api/middleware"
	"github.com/avolkov/pmo-budget/internal/baseline"
	"github.com/avolkov/pmo-budget/internal/jobs"
	"github.com/avolkov/pmo-budget/internal/jobs/inmemory"
	"github.com/avolkov/pmo-budget/internal/ledger"
	"github.com/avolkov/pmo-budget/internal/logger"
	"github.com/avolkov/pmo-budget/internal/report"
	"github.com/avolkov/pmo-budget/internal/store"
)

func main() {
	// Parse command-line flags
	var (
		port       = flag.String("port", "8080", "HTTP server port")
		gcpProject = flag.String("gcp-project", os.Getenv("GCP_PROJECT"), "GCP project hosting the record store (or set GCP_PROJECT env)")
		bucket     = flag.String("reports-bucket", os.Getenv("REPORTS_BUCKET"), "GCS bucket for archived reports (or set REPORTS_BUCKET env)")
		model      = flag.String("report-model", "", "Gemini model for report drafting (default "+report.DefaultModelName+")")
	)
	flag.Parse()

	// Initialize logger
	log := logger.New()

	if *bucket == "" {
		log.Warn().Msg("No reports bucket configured - generated reports will not be archived")
	}

	ctx := context.Background()

	// Record store client
	recordStore, err := store.NewClient(ctx, *gcpProject)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create record store client")
	}
	defer recordStore.Close()

	// Baseline store over the record store
	baselineStore := baseline.NewStore(recordStore)

	// Rebuild the ledger arena from persisted versions
	arena := ledger.NewArena()
	versions, err := recordStore.ListAllLineItems(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load line item versions")
	}
	if err := arena.Load(versions); err != nil {
		log.Fatal().Err(err).Msg("Failed to rebuild ledger arena")
	}
	log.Info().Int("versions", len(versions)).Msg("Ledger arena loaded")

	// Job infrastructure for report generation
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	runner := report.NewRunner(
		recordStore, recordStore, baselineStore,
		report.NewGenerator(*model), *bucket,
		logger.WithComponent(log, "report-worker"),
	)

	jobHandler := func(ctx context.Context, job jobs.Job) error {
		reportJob, ok := job.(*jobs.GenerateReportJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", reportJob.JobID).
			Str("project_id", reportJob.ProjectID).
			Msg("Processing report job")

		if err := runner.Run(ctx, reportJob); err != nil {
			log.Error().
				Err(err).
				Str("job_id", reportJob.JobID).
				Str("project_id", reportJob.ProjectID).
				Msg("Report generation failed")
			return err
		}

		return nil
	}

	go func() {
		log.Info().Msg("Starting report worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Report worker stopped with error")
		}
	}()

	// Initialize handlers
	projectsHandler := handlers.NewProjectsHandler(recordStore, baselineStore, log)
	baselinesHandler := handlers.NewBaselinesHandler(recordStore, baselineStore, log)
	scheduleHandler := handlers.NewScheduleHandler(recordStore, recordStore, handlers.NewOverrideSession(), log)
	lineItemsHandler := handlers.NewLineItemsHandler(arena, recordStore, log)
	reportsHandler := handlers.NewReportsHandler(jobQueue, jobStore, log)

	// Create router
	mux := http.NewServeMux()

	mux.HandleFunc("/api/projects", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			projectsHandler.ListProjects(w, r)
		case http.MethodPost:
			projectsHandler.CreateProject(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Project-scoped subresources: /api/projects/{id}[/baselines|/schedule|/forecast]
	mux.HandleFunc("/api/projects/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/projects/")
		projectID, sub, _ := strings.Cut(rest, "/")
		if projectID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Project ID is required")
			return
		}

		switch {
		case sub == "" && r.Method == http.MethodGet:
			projectsHandler.GetProject(w, r, projectID)
		case sub == "baselines" && r.Method == http.MethodGet:
			baselinesHandler.ListBaselines(w, r, projectID)
		case sub == "baselines" && r.Method == http.MethodPost:
			baselinesHandler.CreateBaseline(w, r, projectID)
		case sub == "baselines/revert" && r.Method == http.MethodPost:
			baselinesHandler.RevertBaseline(w, r, projectID)
		case sub == "schedule" && r.Method == http.MethodGet:
			scheduleHandler.GetSchedule(w, r, projectID)
		case sub == "forecast" && r.Method == http.MethodPost:
			scheduleHandler.SaveOverride(w, r, projectID)
		case sub == "forecast" && r.Method == http.MethodDelete:
			scheduleHandler.DiscardOverride(w, r, projectID)
		default:
			middleware.WriteError(w, http.StatusNotFound, "Not found")
		}
	})

	mux.HandleFunc("/api/lineitems", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			lineItemsHandler.ListLineItems(w, r)
		case http.MethodPost:
			lineItemsHandler.CreateLineItem(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/lineitems/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/lineitems/")
		sapID, sub, _ := strings.Cut(rest, "/")
		if sapID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "SAP ID is required")
			return
		}

		switch {
		case sub == "history" && r.Method == http.MethodGet:
			lineItemsHandler.GetHistory(w, r, sapID)
		case sub == "edit" && r.Method == http.MethodPost:
			lineItemsHandler.EditLineItem(w, r, sapID)
		default:
			middleware.WriteError(w, http.StatusNotFound, "Not found")
		}
	})

	mux.HandleFunc("/api/reports", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			reportsHandler.EnqueueReport(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			reportsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			reportsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(
					middleware.Auth(mux),
				),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}
