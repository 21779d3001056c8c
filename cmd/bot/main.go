package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/vitos/trade_signal_levels/internal/domain"
	"github.com/vitos/trade_signal_levels/internal/infrastructure/logger"
	"github.com/vitos/trade_signal_levels/internal/infrastructure/pricefeed"
	"github.com/vitos/trade_signal_levels/internal/infrastructure/rulesource"
	"github.com/vitos/trade_signal_levels/internal/infrastructure/storage"
	"github.com/vitos/trade_signal_levels/internal/telegram"
	"github.com/vitos/trade_signal_levels/internal/usecase"
	"github.com/vitos/trade_signal_levels/internal/web"
)

type Config struct {
	Rules struct {
		Source   string `yaml:"source"` // "file" or "sheet"
		Path     string `yaml:"path"`
		SheetURL string `yaml:"sheet_url"`
		ReloadMs int    `yaml:"reload_ms"`
	} `yaml:"rules"`
	PriceFeed struct {
		RESTEndpoint    string            `yaml:"rest_endpoint"`
		WSEndpoint      string            `yaml:"ws_endpoint"`
		Stream          bool              `yaml:"stream"`
		LookupTimeoutMs int               `yaml:"lookup_timeout_ms"`
		Symbols         map[string]string `yaml:"symbols"`
	} `yaml:"price_feed"`
	Telegram struct {
		ChannelID int64 `yaml:"channel_id"`
	} `yaml:"telegram"`
	Format struct {
		Template  string `yaml:"template"`
		Signature string `yaml:"signature"`
	} `yaml:"format"`
	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
}

func loadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	// Secrets come from the environment; .env is a development convenience.
	_ = godotenv.Load()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logging.Level)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Signal journal
	dbPath := cfg.Storage.Path
	if dbPath == "" {
		dbPath = "signals.db"
	}
	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		log.Fatal("Failed to init sqlite", zap.Error(err))
	}
	defer store.Close()

	// Rule source + store. A bad table must never activate, so the initial
	// load is fatal.
	var source domain.RuleSource
	switch cfg.Rules.Source {
	case "sheet":
		source = rulesource.NewSheetSource(cfg.Rules.SheetURL)
	default:
		source = rulesource.NewFileSource(cfg.Rules.Path)
	}
	rules := usecase.NewRuleStore(source, log)
	if err := rules.Reload(context.Background()); err != nil {
		log.Fatal("Failed to load rules", zap.Error(err))
	}

	// Price feed
	feed := pricefeed.NewBinanceFeed(cfg.PriceFeed.RESTEndpoint, cfg.PriceFeed.WSEndpoint, cfg.PriceFeed.Symbols, log)
	if cfg.PriceFeed.Stream {
		if err := feed.Connect(); err != nil {
			log.Error("Price stream unavailable, falling back to REST lookups", zap.Error(err))
		}
	}
	defer feed.Close()

	// Core pipeline and service
	pipeline := usecase.NewPipeline(rules, feed, time.Duration(cfg.PriceFeed.LookupTimeoutMs)*time.Millisecond, log)
	formatter := usecase.NewSignalFormatter(usecase.Template(cfg.Format.Template), cfg.Format.Signature)
	service := usecase.NewSignalService(pipeline, formatter, store, log)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Rule reload loop
	if cfg.Rules.ReloadMs > 0 {
		go func() {
			ticker := time.NewTicker(time.Duration(cfg.Rules.ReloadMs) * time.Millisecond)
			defer ticker.Stop()

			for {
				select {
				case <-ticker.C:
					if err := rules.Reload(ctx); err != nil {
						// Previous table stays active.
						log.Error("Rule reload failed", zap.Error(err))
					}
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	// Webhook server
	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	server := web.NewServer(port, service, rules, store, os.Getenv("WEBHOOK_SECRET"), log)
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Telegram bot (optional: runs headless without a token)
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		bot, err := telegram.NewBot(token, cfg.Telegram.ChannelID, service, rules, log)
		if err != nil {
			log.Fatal("Failed to init telegram bot", zap.Error(err))
		}
		go func() {
			if err := bot.Run(ctx); err != nil && err != context.Canceled {
				log.Error("Telegram bot stopped", zap.Error(err))
			}
		}()
	} else {
		log.Info("TELEGRAM_BOT_TOKEN not set, running webhook-only")
	}

	<-stop

	log.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)
}
