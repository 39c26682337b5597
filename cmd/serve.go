package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/facegate/facegate/internal/attendance"
	"github.com/facegate/facegate/internal/config"
	"github.com/facegate/facegate/internal/recognition"
	"github.com/facegate/facegate/internal/store/postgres"
	"github.com/facegate/facegate/internal/vision"
	"github.com/facegate/facegate/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the recognition server",
	Long: `Start the Facegate server. The server exposes the scan endpoint for
camera clients plus member enrollment, attendance listings and cache
administration. Matching is initialized with the fallback strategy first;
the accelerated index is best-effort.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Bool("skip-migrate", false, "Skip schema migration on startup")
}

// buildRecognition wires cache, matcher and both strategies into a
// coordinator. The optimized strategy is omitted when disabled.
func buildRecognition(cfg *config.Config, members *postgres.MemberRepository, visionClient *vision.Client) (*recognition.Coordinator, *recognition.EmbeddingCache, *recognition.OptimizedStrategy) {
	cache := recognition.NewEmbeddingCache(members)
	matcher := recognition.NewMatcher(cfg.Match.Threshold)

	fallback := recognition.NewFallbackStrategy(visionClient, visionClient, cache, matcher, members)

	var optimized *recognition.OptimizedStrategy
	if !cfg.Match.OptimizedDisabled {
		optimized = recognition.NewOptimizedStrategy(visionClient, visionClient, cache, matcher, cfg.Match.OptimizedTimeout)
	}

	if optimized == nil {
		return recognition.NewCoordinator(nil, fallback), cache, nil
	}
	return recognition.NewCoordinator(optimized, fallback), cache, optimized
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	fmt.Printf("Connecting to PostgreSQL database...\n")
	pool, err := postgres.NewPool(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	defer pool.Close()

	ctx := context.Background()
	if !mustGetBool(cmd, "skip-migrate") {
		if err := pool.Migrate(ctx, cfg.Embedding.Dim); err != nil {
			return fmt.Errorf("migrating schema: %w", err)
		}
	}

	memberRepo := postgres.NewMemberRepository(pool)
	attendanceRepo := postgres.NewAttendanceRepository(pool)

	visionClient := vision.NewClient(cfg.Vision.URL)
	if err := visionClient.Healthy(ctx); err != nil {
		fmt.Printf("Warning: %v\n", err)
		fmt.Printf("Scan requests with raw images will fail until the inference service is up\n")
	}

	coordinator, cache, optimized := buildRecognition(cfg, memberRepo, visionClient)
	if err := coordinator.Initialize(ctx); err != nil {
		return fmt.Errorf("initializing recognition: %w", err)
	}
	fmt.Printf("Recognition running in %s mode (threshold %.2f)\n", coordinator.Mode(), cfg.Match.Threshold)

	recorder := attendance.NewRecorder(attendanceRepo)

	server := web.NewServer(cfg, web.Deps{
		Coordinator: coordinator,
		Cache:       cache,
		Optimized:   optimized,
		Recorder:    recorder,
		Members:     memberRepo,
		Attendance:  attendanceRepo,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Facegate API on %s\n", cfg.Web.Addr)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		recorder.Wait()
		return fmt.Errorf("starting server: %w", err)
	}
	// Start has returned, so no new scans arrive. Let in-flight attendance
	// writes land before the deferred pool close runs.
	recorder.Wait()
	return nil
}
