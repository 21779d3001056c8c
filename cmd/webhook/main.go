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
	"github.com/vitos/trade_signal_levels/internal/usecase"
	"github.com/vitos/trade_signal_levels/internal/web"
)

// Webhook-only deployment: same pipeline, no Telegram polling.

type Config struct {
	Rules struct {
		Source   string `yaml:"source"`
		Path     string `yaml:"path"`
		SheetURL string `yaml:"sheet_url"`
		ReloadMs int    `yaml:"reload_ms"`
	} `yaml:"rules"`
	PriceFeed struct {
		RESTEndpoint    string            `yaml:"rest_endpoint"`
		WSEndpoint      string            `yaml:"ws_endpoint"`
		LookupTimeoutMs int               `yaml:"lookup_timeout_ms"`
		Symbols         map[string]string `yaml:"symbols"`
	} `yaml:"price_feed"`
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

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	_ = godotenv.Load()

	f, err := os.Open(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		f.Close()
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}
	f.Close()

	log, err := logger.NewLogger(cfg.Logging.Level)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	dbPath := cfg.Storage.Path
	if dbPath == "" {
		dbPath = "signals.db"
	}
	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		log.Fatal("Failed to init sqlite", zap.Error(err))
	}
	defer store.Close()

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

	feed := pricefeed.NewBinanceFeed(cfg.PriceFeed.RESTEndpoint, cfg.PriceFeed.WSEndpoint, cfg.PriceFeed.Symbols, log)
	pipeline := usecase.NewPipeline(rules, feed, time.Duration(cfg.PriceFeed.LookupTimeoutMs)*time.Millisecond, log)
	formatter := usecase.NewSignalFormatter(usecase.Template(cfg.Format.Template), cfg.Format.Signature)
	service := usecase.NewSignalService(pipeline, formatter, store, log)

	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	server := web.NewServer(port, service, rules, store, os.Getenv("WEBHOOK_SECRET"), log)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-stop

	log.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	server.Shutdown(ctx)
}
