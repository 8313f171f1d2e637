package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/carelink/triage-router/internal/config"
	celeval "github.com/carelink/triage-router/internal/eval/cel"
	"github.com/carelink/triage-router/internal/handler"
	"github.com/carelink/triage-router/internal/llm"
	"github.com/carelink/triage-router/internal/policy"
	"github.com/carelink/triage-router/internal/records"
	"github.com/carelink/triage-router/internal/records/memstore"
	"github.com/carelink/triage-router/internal/router"
	"github.com/carelink/triage-router/internal/speech"
	"github.com/carelink/triage-router/internal/symptomlog"
	"github.com/carelink/triage-router/internal/symptomlog/pgstore"
	"github.com/carelink/triage-router/internal/turnlog"
	"github.com/carelink/triage-router/internal/worker"
	"github.com/carelink/triage-router/internal/workflow"
)

var (
	// Version is set at build time
	Version = "dev"
	// BuildTime is set at build time
	BuildTime = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting triage router",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)
	logger.Info("configuration loaded", zap.String("config", cfg.String()))

	// Policy document, with every gate compiled up front.
	evaluator := celeval.NewEvaluator()
	pol, err := policy.Load(cfg.PolicyPath, evaluator)
	if err != nil {
		logger.Fatal("failed to load policy", zap.Error(err))
	}

	// Patient records: CSV fixtures when a data dir is configured,
	// built-in demo data otherwise.
	var store records.Store
	if cfg.DataDir != "" {
		ms, err := memstore.LoadDir(cfg.DataDir)
		if err != nil {
			logger.Fatal("failed to load records", zap.String("dir", cfg.DataDir), zap.Error(err))
		}
		store = ms
		logger.Info("records loaded from fixtures", zap.String("dir", cfg.DataDir))
	} else {
		store = memstore.Demo()
		logger.Info("using built-in demo records")
	}

	// Symptom log: Postgres when DATABASE_URL is set, JSONL otherwise.
	var symptoms symptomlog.Store
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		cancel()
		if err != nil {
			logger.Fatal("failed to connect symptom log database", zap.Error(err))
		}
		defer pg.Close()
		symptoms = pg
		logger.Info("symptom log backed by postgres")
	} else {
		fs, err := symptomlog.NewFileStore(cfg.SymptomLogPath)
		if err != nil {
			logger.Fatal("failed to open symptom log", zap.Error(err))
		}
		symptoms = fs
		logger.Info("symptom log backed by file", zap.String("path", cfg.SymptomLogPath))
	}

	// Model invocation chain. Uncredentialed providers stay registered
	// but are skipped per call, so exporting a key later only requires
	// a restart, not a code change.
	providers := []llm.Provider{
		llm.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel),
		llm.NewAnthropic(cfg.AnthropicAPIKey, cfg.AnthropicModel),
		llm.NewGemini(cfg.GoogleAPIKey, cfg.GoogleModel),
	}
	invoker := llm.NewInvoker(providers, cfg.PrimaryProvider, cfg.ProviderOrder, logger)
	if !invoker.Usable() {
		logger.Warn("no provider credentials configured, deterministic paths only")
	}

	// Transcription chain for the :stt command.
	transcriber := speech.NewChain(logger,
		speech.NewWhisper(cfg.OpenAIAPIKey),
		speech.NewWhisperServer(cfg.WhisperServerURL),
		speech.NewGeminiAudio(cfg.GoogleAPIKey, cfg.GoogleModel),
	)

	// Turn recorders: JSONL always, Redis Stream when configured.
	jsonlSink, err := turnlog.NewJSONL(cfg.TurnLogPath)
	if err != nil {
		logger.Fatal("failed to open turn log", zap.Error(err))
	}
	recorders := []workflow.Recorder{jsonlSink}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = redisClient.Ping(ctx).Err()
		cancel()
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()
		recorders = append(recorders, turnlog.NewStream(redisClient, cfg.TurnStream, logger))
		logger.Info("publishing turns to redis stream",
			zap.String("addr", cfg.RedisAddr),
			zap.String("stream", cfg.TurnStream),
		)
	}

	caregiverHandler := handler.NewCaregiver(store, symptoms, pol, logger)
	handlers := map[router.Intent]handler.Handler{
		router.IntentAppointment: handler.NewAppointment(store, pol, evaluator, logger, nil),
		router.IntentFollowup:    handler.NewFollowup(symptoms, invoker, pol, logger, nil),
		router.IntentMedication:  handler.NewMedication(store, invoker, logger),
		router.IntentCaregiver:   caregiverHandler,
		router.IntentHelp:        handler.NewHelp(invoker, logger),
	}

	engine := workflow.NewEngine(router.New(invoker, logger), handlers, logger, recorders...)
	logger.Info("engine ready", zap.String("session_id", engine.SessionID()))

	if cfg.Mode == "worker" {
		runWorker(cfg, redisClient, engine, invoker, logger)
		return
	}
	runREPL(engine, transcriber, caregiverHandler, logger)
}

// runWorker consumes utterances from the request stream instead of
// stdin, with a health endpoint for liveness probes. Blocks until
// SIGINT or SIGTERM.
func runWorker(cfg *config.Config, redisClient *redis.Client, engine *workflow.Engine, invoker *llm.Invoker, logger *zap.Logger) {
	w := worker.New(cfg.WorkerID, redisClient, engine,
		cfg.RequestStream, cfg.ConsumerGroup, cfg.ReplyStream,
		cfg.StreamBlockDur, logger)
	if err := w.Start(); err != nil {
		logger.Fatal("failed to start worker", zap.Error(err))
	}

	redisPing := func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	}
	checks := map[string]worker.Check{
		"redis": redisPing,
		"llm": func(ctx context.Context) error {
			if !invoker.Usable() {
				return fmt.Errorf("no provider credentials configured")
			}
			return nil
		},
	}
	health := worker.NewHealthServer(cfg.HealthPort, redisPing, checks, logger)
	if err := health.Start(); err != nil {
		logger.Fatal("failed to start health server", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	if err := health.Stop(); err != nil {
		logger.Error("failed to stop health server", zap.Error(err))
	}
	if err := w.Stop(); err != nil {
		logger.Error("failed to stop worker", zap.Error(err))
	}
}

// runREPL reads utterances line by line. Turns are strictly
// sequential: each line is fully routed, handled, and logged before
// the next prompt.
func runREPL(engine *workflow.Engine, transcriber *speech.Chain, caregivers *handler.Caregiver, logger *zap.Logger) {
	fmt.Println("Post-discharge care assistant. Type a message, 'pid <id>' to set the patient,")
	fmt.Println("':stt <audio-file>' to transcribe, ':summaries <caregiver-id>' for a batch")
	fmt.Println("recovery report, or 'quit' to exit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "quit" || line == "exit":
			fmt.Println("Take care!")
			return

		case strings.HasPrefix(line, "pid "):
			id := strings.TrimSpace(strings.TrimPrefix(line, "pid "))
			engine.SetPatientID(id)
			fmt.Printf("Patient ID set to %s.\n", id)
			continue

		case strings.HasPrefix(line, ":summaries "):
			id := strings.TrimSpace(strings.TrimPrefix(line, ":summaries "))
			summaries, err := caregivers.SummarizeAll(context.Background(), id)
			if err != nil {
				fmt.Printf("Summaries unavailable: %v\n", err)
				continue
			}
			for pid, text := range summaries {
				fmt.Printf("--- patient %s ---\n%s\n", pid, text)
			}
			continue

		case strings.HasPrefix(line, ":stt "):
			path := strings.TrimSpace(strings.TrimPrefix(line, ":stt "))
			result, err := transcriber.Transcribe(context.Background(), path)
			if err != nil {
				fmt.Printf("Transcription failed: %v\n", err)
				continue
			}
			fmt.Printf("[%s] %q\n", result.Backend, result.Text)
			turn := engine.RunVoiceTurn(context.Background(), result.Text, result.Backend)
			fmt.Println(turn.Response)
			continue

		default:
			turn := engine.RunTurn(context.Background(), line)
			fmt.Println(turn.Response)
		}
	}

	if err := scanner.Err(); err != nil {
		logger.Error("input error", zap.Error(err))
	}
}

// initLogger initializes the logger
func initLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return config.Build()
}
