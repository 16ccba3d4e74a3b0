package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/zoofam/mchili/internal/agent"
	"github.com/zoofam/mchili/internal/config"
	"github.com/zoofam/mchili/internal/history"
	"github.com/zoofam/mchili/internal/llm"
	"github.com/zoofam/mchili/internal/logger"
	"github.com/zoofam/mchili/internal/server"
	"github.com/zoofam/mchili/internal/sms"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.L.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.SetLevel(cfg.Log.Level)

	// Schema creation and connection setup happen here, once, not per
	// request.
	store, err := history.Open(context.Background(), history.OpenConfig{
		Driver: cfg.Store.Driver,
		Path:   cfg.Store.Path,
		DSN:    cfg.Store.DSN,
	})
	if err != nil {
		logger.L.Error("failed to open conversation store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	llmClient, err := llm.New(cfg.LLM)
	if err != nil {
		logger.L.Error("failed to build completion client", "error", err)
		os.Exit(1)
	}

	smsClient := sms.NewClient(cfg.SMS)
	pipeline := agent.New(store, llmClient, smsClient)
	srv := server.New(pipeline)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.L.Info("starting server",
		"address", addr,
		"store", cfg.Store.Driver,
		"llm_provider", cfg.LLM.Provider,
	)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		logger.L.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
