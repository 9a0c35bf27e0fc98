package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/croissant/croissant-api/internal/tradeclient"
	"github.com/joho/godotenv"
)

type watchConfig struct {
	BaseURL     string        `env:"CROISSANT_API_URL" envDefault:"http://localhost:8080/api"`
	Token       string        `env:"CROISSANT_TOKEN,required"`
	TradeID     string        `env:"TRADE_ID,required"`
	UserID      string        `env:"USER_ID,required"`
	Interval    time.Duration `env:"POLL_INTERVAL" envDefault:"1s"`
	MaxInterval time.Duration `env:"POLL_MAX_INTERVAL" envDefault:"8s"`
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("tradewatch: %v", err)
	}
}

func run() error {
	_ = godotenv.Load()

	var cfg watchConfig
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := tradeclient.NewClient(cfg.Token, tradeclient.WithBaseURL(cfg.BaseURL))
	closed := make(chan *tradeclient.Trade, 1)
	var last string

	panel := tradeclient.NewPanel(tradeclient.PanelConfig{
		TradeID:         cfg.TradeID,
		UserID:          cfg.UserID,
		API:             client,
		PollInterval:    cfg.Interval,
		MaxPollInterval: cfg.MaxInterval,
		ReloadInventory: func() {
			log.Printf("[watch] inventory changed")
		},
		OnSnapshot: func(t *tradeclient.Trade) {
			line := describe(t)
			if line != last {
				log.Printf("[watch] %s", line)
				last = line
			}
		},
		OnClose: func(t *tradeclient.Trade) {
			closed <- t
		},
	})
	panel.Open(ctx)
	defer panel.Close()

	select {
	case t := <-closed:
		log.Printf("[watch] trade=%s finished status=%s", t.ID, t.Status)
	case <-ctx.Done():
		log.Printf("[watch] interrupted; trade left as is")
	}
	return nil
}

func describe(t *tradeclient.Trade) string {
	side := func(items []tradeclient.TradeItem) string {
		parts := make([]string, 0, len(items))
		for _, it := range items {
			label := it.ItemID
			if it.Name != "" {
				label = it.Name
			}
			switch {
			case it.UniqueID() != "":
				label += "#" + it.UniqueID()
			case it.PurchasePrice != nil:
				label += fmt.Sprintf("@%d", *it.PurchasePrice)
			}
			parts = append(parts, fmt.Sprintf("%dx%s", it.Amount, label))
		}
		return "[" + strings.Join(parts, " ") + "]"
	}
	return fmt.Sprintf("trade=%s status=%s from=%s%s ok=%t to=%s%s ok=%t",
		t.ID, t.Status,
		t.FromUserID, side(t.FromUserItems), t.ApprovedFromUser,
		t.ToUserID, side(t.ToUserItems), t.ApprovedToUser,
	)
}
