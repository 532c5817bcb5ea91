package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/localrivet/apschat/internal/aecdm"
	"github.com/localrivet/apschat/internal/apilog"
	"github.com/localrivet/apschat/internal/aps"
	"github.com/localrivet/apschat/internal/assistant"
	"github.com/localrivet/apschat/internal/config"
	"github.com/localrivet/apschat/internal/handlers"
	"github.com/localrivet/apschat/internal/llm"
	"github.com/localrivet/apschat/internal/logx"
)

func main() {
	configPath := flag.String("config", "apschat.yaml", "path to optional YAML config file")
	port := flag.Int("port", 0, "HTTP port (overrides config and APSCHAT_PORT)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	logger := logx.NewDefaultLogger()
	if *debug {
		logger.SetLevel(logx.LevelDebug)
	}

	// Load configuration: defaults, then file, then environment.
	cfg := config.New()
	if err := cfg.LoadFromFile(*configPath); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.LoadFromEnv()
	if *port > 0 {
		cfg.Port = *port
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	// The APS token is pasted in by the user; warn up front if it is
	// already expired rather than failing on the first tool call.
	if info, err := aps.InspectToken(cfg.APSToken); err != nil {
		logger.Warn("Could not inspect APS token: %v", err)
	} else if info.Expired(time.Now()) {
		logger.Warn("APS token expired at %s; API calls will fail until it is refreshed", info.ExpiresAt.Format(time.RFC3339))
	}

	// LLM service with request logging.
	apiLog := apilog.New(apilog.Config{
		Enabled: cfg.LogRequests,
		Dir:     cfg.LogDir,
		Diag:    logger,
	})
	svc := llm.NewService(openai.NewClient(cfg.OpenAIKey), llm.WithLogger(apiLog))

	apsClient := aps.NewClient(cfg.APSToken, aps.WithLogger(logger))
	aecClient := aecdm.NewClient(cfg.APSToken)

	chat := assistant.New(svc, apsClient, aecClient,
		assistant.WithModel(cfg.Model),
		assistant.WithModelConfig(cfg.Temperature, cfg.MaxTokens),
		assistant.WithLogger(logger),
	)

	chatHandler := handlers.NewChatHandler(chat, cfg.TemplatePath, handlers.WithLogger(logger))

	http.HandleFunc("/", chatHandler.IndexHandler)
	http.HandleFunc("/chat", chatHandler.ChatFormHandler)
	http.HandleFunc("/select", chatHandler.SelectHandler)
	http.HandleFunc("/reset", chatHandler.ResetHandler)
	http.HandleFunc("/ws", chatHandler.WSHandler)
	http.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))

	logger.Info("Starting web server on http://localhost:%d", cfg.Port)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
