// Command api runs the meta-swap HTTP service.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dexmeta/meta-swap-api/internal/aggregator"
	"github.com/dexmeta/meta-swap-api/internal/api"
	"github.com/dexmeta/meta-swap-api/internal/cache"
	"github.com/dexmeta/meta-swap-api/internal/chainclient"
	"github.com/dexmeta/meta-swap-api/internal/config"
	"github.com/dexmeta/meta-swap-api/internal/gas"
	"github.com/dexmeta/meta-swap-api/internal/limitorders"
	"github.com/dexmeta/meta-swap-api/internal/logger"
	"github.com/dexmeta/meta-swap-api/internal/providers"
	"github.com/dexmeta/meta-swap-api/internal/providers/debridge"
	"github.com/dexmeta/meta-swap-api/internal/providers/kyberswap"
	"github.com/dexmeta/meta-swap-api/internal/providers/oneinch"
	"github.com/dexmeta/meta-swap-api/internal/providers/openocean"
	"github.com/dexmeta/meta-swap-api/internal/providers/paraswap"
	"github.com/dexmeta/meta-swap-api/internal/providers/zerox"
	"github.com/dexmeta/meta-swap-api/internal/tokeninfo"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Logging.Level)
	logger.SetDefault(log)
	defer log.Sync()

	backend := cache.New(cfg.Cache)

	evm := chainclient.NewEVM(cfg)
	defer evm.Close()

	// One pooled HTTP client for every upstream call.
	hc := &http.Client{Timeout: cfg.ProviderTimeout + 2*time.Second}

	tokens := tokeninfo.NewClient(&cfg.Token, hc)
	startupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	chains, err := tokeninfo.LoadCatalog(startupCtx, tokens)
	cancel()
	if err != nil {
		logger.Error("cannot load chain catalog", logger.Fields{"error": err.Error()})
		os.Exit(1)
	}
	decimals := tokeninfo.NewDecimalsResolver(tokens, chains, backend, cfg.NativeToken)

	registry := providers.NewRegistry()
	registry.Register(zerox.New(hc, cfg.ProviderTimeout, backend, decimals), zerox.Descriptor())
	registry.Register(oneinch.New(hc, cfg.ProviderTimeout, backend), oneinch.Descriptor())
	registry.Register(paraswap.New(hc, cfg.ProviderTimeout, backend, cfg.Partner), paraswap.Descriptor())
	registry.Register(openocean.New(hc, cfg.ProviderTimeout, backend), openocean.Descriptor())
	registry.Register(kyberswap.New(hc, cfg.ProviderTimeout, backend, decimals, cfg.Partner), kyberswap.Descriptor())

	crossChain := providers.NewCrossChainRegistry()
	crossChain.Register(debridge.New(hc, cfg.ProviderTimeout, backend), debridge.Descriptor())

	gasService := gas.NewService(evm, chains, backend)
	aggService := aggregator.NewService(registry, crossChain, evm, tokens, decimals, chains, gasService, backend)
	limitService := limitorders.NewService(registry, crossChain, backend)

	handlers := api.NewHandlers(aggService, gasService, limitService, registry, chains)
	router := api.NewRouter(handlers)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("server listening", logger.Fields{"addr": addr, "providers": registry.Names()})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", logger.Fields{"error": err.Error()})
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", logger.Fields{"error": err.Error()})
	}
	if closer, ok := backend.(interface{ Close() error }); ok {
		closer.Close()
	}
}
