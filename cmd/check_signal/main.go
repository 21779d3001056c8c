package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/vitos/trade_signal_levels/internal/infrastructure/logger"
	"github.com/vitos/trade_signal_levels/internal/infrastructure/rulesource"
	"github.com/vitos/trade_signal_levels/internal/usecase"
)

// Offline check: run one message through the pipeline against a rules file.
//
//	go run ./cmd/check_signal -rules config/rules.yaml "LONG BTCUSD M5 @65000"
func main() {
	rulesPath := flag.String("rules", "config/rules.yaml", "path to rules file")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Println("usage: check_signal [-rules path] \"LONG BTCUSD M5 @65000\"")
		os.Exit(1)
	}
	message := strings.Join(flag.Args(), " ")

	log, err := logger.NewLogger("error")
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	rules := usecase.NewRuleStore(rulesource.NewFileSource(*rulesPath), log)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rules.Reload(ctx); err != nil {
		fmt.Printf("Failed to load rules: %v\n", err)
		os.Exit(1)
	}

	// No price provider: the message must carry an explicit @price.
	pipeline := usecase.NewPipeline(rules, nil, 0, log)
	result, err := pipeline.Process(ctx, message)
	if err != nil {
		fmt.Printf("Rejected: %v\n", err)
		os.Exit(1)
	}

	formatter := usecase.NewSignalFormatter(usecase.TemplateMinimal, "")
	fmt.Println(formatter.Render(result).Plain)
}
