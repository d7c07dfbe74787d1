package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tumorexpr/adapters/artifacts"
	"tumorexpr/adapters/postgres"
	"tumorexpr/internal/api"
	"tumorexpr/internal/config"
	"tumorexpr/internal/pipeline"
	"tumorexpr/ports"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
)

func main() {
	cfgFile := flag.String("config", "", "config file (default ./tumorexpr.yaml)")
	writeArtifacts := flag.Bool("artifacts", false, "also write every run's CSV and report files under the output directory")
	flag.Parse()

	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load(*cfgFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	runner, err := pipeline.NewRunner(pipeline.OptionsFromConfig(appConfig))
	if err != nil {
		log.Fatalf("Failed to create pipeline: %v", err)
	}
	if *writeArtifacts {
		runner.WithArtifacts(artifacts.NewWriter(appConfig.Paths.OutputDir))
		log.Printf("Writing artifacts under %s", appConfig.Paths.OutputDir)
	}

	var repository ports.RunRepository
	if appConfig.HasDatabase() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		db, err := postgres.Connect(ctx, appConfig.Database.URL, appConfig.Database.MaxOpenConns)
		cancel()
		if err != nil {
			log.Fatal("Failed to initialize database:", err)
		}
		defer closeDB(db)

		repository = postgres.NewRunRepository(db)
		runner.WithRepository(repository)
	} else {
		log.Println("DATABASE_URL not set, runs will not be stored")
	}

	// Start pprof server for performance profiling
	if appConfig.Profiling.Enabled {
		go func() {
			log.Printf("Profiling server starting on :%s", appConfig.Profiling.Port)
			if err := http.ListenAndServe(":"+appConfig.Profiling.Port, nil); err != nil {
				log.Printf("pprof server failed: %v", err)
			}
		}()
	}

	server := api.NewServer(runner, repository, api.ServerOptions{
		GinMode:     appConfig.Server.GinMode,
		MaxUploadMB: appConfig.Server.MaxUploadMB,
		Sheet:       appConfig.Paths.Sheet,
	})

	httpServer := &http.Server{
		Addr:              ":" + appConfig.Server.Port,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting tumorexpr server on port %s", appConfig.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown failed: %v", err)
	}
}

func closeDB(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("Failed to close database: %v", err)
	}
}
