package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/cleitonlanga/learnfy-plataform/internal/acquire"
	"github.com/cleitonlanga/learnfy-plataform/internal/asr"
	"github.com/cleitonlanga/learnfy-plataform/internal/cleanup"
	"github.com/cleitonlanga/learnfy-plataform/internal/handlers"
	"github.com/cleitonlanga/learnfy-plataform/internal/media"
	"github.com/cleitonlanga/learnfy-plataform/internal/queue"
	"github.com/cleitonlanga/learnfy-plataform/internal/storage"
	"github.com/cleitonlanga/learnfy-plataform/internal/summary"
	"github.com/cleitonlanga/learnfy-plataform/internal/transcribe"
	"github.com/cleitonlanga/learnfy-plataform/internal/types"
	"github.com/cleitonlanga/learnfy-plataform/internal/youtube"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port int    `yaml:"port"`
		Host string `yaml:"host"`
	} `yaml:"server"`

	Storage struct {
		Database   string `yaml:"database"`
		ScratchDir string `yaml:"scratch_dir"`
		AudioDir   string `yaml:"audio_dir"`
	} `yaml:"storage"`

	ASR struct {
		BaseURL             string `yaml:"base_url"`
		PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
		MaxWaitMinutes      int    `yaml:"max_wait_minutes"`
		MaxPolls            int    `yaml:"max_polls"`
	} `yaml:"asr"`

	Summary struct {
		Model string `yaml:"model"`
	} `yaml:"summary"`

	Queue struct {
		Buffer int `yaml:"buffer"`
	} `yaml:"queue"`

	Cleanup struct {
		IntervalMinutes int `yaml:"interval_minutes"`
		MaxAgeHours     int `yaml:"max_age_hours"`
	} `yaml:"cleanup"`

	Limits struct {
		MaxUploadMB int `yaml:"max_upload_mb"`
	} `yaml:"limits"`
}

func main() {
	_ = godotenv.Load()

	config, err := loadConfig("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	asrKey := os.Getenv("ASSEMBLYAI_API_KEY")
	if asrKey == "" {
		log.Fatal("ASSEMBLYAI_API_KEY is not set")
	}
	summaryKey := os.Getenv("GEMINI_API_KEY")
	if summaryKey == "" {
		log.Println("WARNING: GEMINI_API_KEY not set - summaries will stay empty")
	}

	if err := os.MkdirAll(config.Storage.ScratchDir, 0755); err != nil {
		log.Fatalf("Failed to create scratch directory: %v", err)
	}
	if err := os.MkdirAll(config.Storage.AudioDir, 0755); err != nil {
		log.Fatalf("Failed to create audio directory: %v", err)
	}

	log.Println("Initializing components...")

	db, err := storage.Open(config.Storage.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	videos := storage.NewVideoStore(db)
	transcriptions := storage.NewTranscriptionStore(db)

	processor := media.NewProcessor(config.Storage.ScratchDir)

	asrClient := asr.NewClient(asrKey)
	if config.ASR.BaseURL != "" {
		asrClient.BaseURL = config.ASR.BaseURL
	}
	if config.ASR.PollIntervalSeconds > 0 {
		asrClient.PollInterval = time.Duration(config.ASR.PollIntervalSeconds) * time.Second
	}
	if config.ASR.MaxWaitMinutes > 0 {
		asrClient.MaxWait = time.Duration(config.ASR.MaxWaitMinutes) * time.Minute
	}
	if config.ASR.MaxPolls > 0 {
		asrClient.MaxPolls = config.ASR.MaxPolls
	}

	summarizer := summary.NewClient(summaryKey, config.Summary.Model)

	acquirer := acquire.NewWorker(videos, processor, youtube.NewClient(),
		config.Storage.ScratchDir, config.Storage.AudioDir)
	pipeline := transcribe.NewPipeline(videos, transcriptions, processor, asrClient, summarizer)

	// One single-worker queue per category; a failed job's only compensation
	// is the failed status write, there is no automatic retry.
	acquisitionQueue := queue.New("acquisition", config.Queue.Buffer, func(videoID string, err error) {
		if serr := videos.SetStatus(context.Background(), videoID, types.StatusFailed, types.StageAcquisition); serr != nil {
			log.Printf("Compensation failed for video %s: %v", videoID, serr)
		}
	})
	transcriptionQueue := queue.New("transcription", config.Queue.Buffer, func(videoID string, err error) {
		if serr := videos.SetStatus(context.Background(), videoID, types.StatusFailed, types.StageTranscription); serr != nil {
			log.Printf("Compensation failed for video %s: %v", videoID, serr)
		}
	})
	acquisitionQueue.Start()
	transcriptionQueue.Start()
	defer transcriptionQueue.Stop()
	defer acquisitionQueue.Stop()

	sweeper := cleanup.NewSweeper(
		config.Storage.ScratchDir,
		time.Duration(config.Cleanup.IntervalMinutes)*time.Minute,
		time.Duration(config.Cleanup.MaxAgeHours)*time.Hour,
	)
	sweeper.Start()
	defer sweeper.Stop()

	app := fiber.New(fiber.Config{
		BodyLimit: config.Limits.MaxUploadMB * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	videoHandler := handlers.NewVideoHandler(videos, transcriptions,
		acquisitionQueue, transcriptionQueue, acquirer, pipeline,
		config.Storage.ScratchDir, config.Limits.MaxUploadMB)
	eventsHandler := handlers.NewEventsHandler(videos)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	app.Post("/videos", videoHandler.Create)
	app.Get("/videos", videoHandler.List)
	app.Get("/videos/:id", videoHandler.Get)
	app.Delete("/videos/:id", videoHandler.Delete)
	app.Post("/videos/:id/transcriptions", videoHandler.EnqueueTranscription)
	app.Get("/videos/:id/transcriptions", videoHandler.ListTranscriptions)
	app.Get("/ws/videos/:id", websocket.New(eventsHandler.Handle))

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	log.Printf("Server starting on %s", addr)

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down gracefully...")
		app.Shutdown()
	}()

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// loadConfig loads configuration from YAML file
func loadConfig(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	return &config, nil
}
