// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rapidaai/outbound-dialer/internal/agent"
	"github.com/rapidaai/outbound-dialer/internal/callback"
	"github.com/rapidaai/outbound-dialer/internal/callstate"
	"github.com/rapidaai/outbound-dialer/internal/carrier"
	carriertwilio "github.com/rapidaai/outbound-dialer/internal/carrier/twilio"
	carriervonage "github.com/rapidaai/outbound-dialer/internal/carrier/vonage"
	"github.com/rapidaai/outbound-dialer/internal/commons"
	"github.com/rapidaai/outbound-dialer/internal/config"
	"github.com/rapidaai/outbound-dialer/internal/connectors"
	"github.com/rapidaai/outbound-dialer/internal/crm"
	"github.com/rapidaai/outbound-dialer/internal/httpapi"
	"github.com/rapidaai/outbound-dialer/internal/httpclient"
	"github.com/rapidaai/outbound-dialer/internal/ingress"
	"github.com/rapidaai/outbound-dialer/internal/initiator"
	"github.com/rapidaai/outbound-dialer/internal/notifier"
	"github.com/rapidaai/outbound-dialer/internal/oauthtoken"
	"github.com/rapidaai/outbound-dialer/internal/queueing"
	"github.com/rapidaai/outbound-dialer/internal/retry"
	"github.com/rapidaai/outbound-dialer/internal/store"
)

func main() {
	v, err := config.InitConfig()
	if err != nil {
		log.Fatalf("load configuration: %v", err)
	}
	cfg, err := config.GetApplicationConfig(v)
	if err != nil {
		log.Fatalf("validate configuration: %v", err)
	}

	logger, err := commons.NewApplicationLogger(commons.Options{
		Level:    cfg.LogLevel,
		FilePath: cfg.LogPath,
	})
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer logger.Sync()

	if err := store.Migrate(cfg.DBPath, logger); err != nil {
		logger.Fatalf("apply migrations: %v", err)
	}

	sqliteConn, err := connectors.NewSqliteConnector(cfg.DBPath, logger)
	if err != nil {
		logger.Fatalf("open embedded store: %v", err)
	}
	defer sqliteConn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	queueStore := queueing.NewStore(sqliteConn, logger)
	callStates := callstate.NewRegistry(sqliteConn, logger)

	if reclaimed, err := queueStore.ReclaimStaleInFlight(ctx, cfg.StaleInFlightThreshold()); err != nil {
		logger.Errorf("startup stale in-flight sweep failed: %v", err)
	} else if reclaimed > 0 {
		logger.Warnw("startup sweep reclaimed stale in-flight entries", "count", reclaimed)
	}

	var carrierClient carrier.Client
	switch cfg.CarrierProvider {
	case "vonage":
		carrierClient, err = carriervonage.New(cfg.CarrierAccountID, []byte(cfg.CarrierAuthToken), logger)
		if err != nil {
			logger.Fatalf("build vonage carrier client: %v", err)
		}
	default:
		carrierClient = carriertwilio.New(cfg.CarrierAccountID, cfg.CarrierAuthToken, logger)
	}

	agentHTTP := httpclient.New(httpclient.DefaultOptions(cfg.AgentAPIKey), logger)
	signedURLs := agent.NewSignedURLIssuer(agentHTTP, cfg.AgentID, cfg.AgentAPIKey, cfg.AgentSignedURL, logger)

	tokens := callback.NewSigner(cfg.JWTSigningSecret, cfg.CallTimeLimit+5*time.Minute)

	callInitiator := initiator.New(carrierClient, signedURLs, callStates, tokens, logger, cfg.SourcePhone, cfg.PublicURL, cfg.RoutePrefix, cfg.RingTimeout, cfg.CallTimeLimit)

	// Redis backs the OAuth token cache in front of the CRM integration
	// (spec.md §3.3). It is optional: with no REDIS_ADDR configured the CRM
	// client simply goes out unauthenticated rather than blocking startup.
	var redisClient redis.Cmdable
	if cfg.RedisAddr != "" {
		rc := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rc.Close()
		redisClient = rc
	}

	var crmClient crm.Client
	if cfg.CRMBaseURL != "" {
		crmHTTP := httpclient.New(httpclient.DefaultOptions(cfg.CRMBaseURL), logger)
		if redisClient != nil {
			tokenStore := oauthtoken.NewStore(sqliteConn, redisClient, logger)
			oauthtoken.AttachBearerAuth(crmHTTP, tokenStore, "crm", logger)
		}
		crmClient = crm.New(crmHTTP, cfg.CRMClientID, cfg.CRMClientSecret)
	}

	var notify ingress.Notifier
	if cfg.NotifierWebhookURL != "" {
		notifierHTTP := httpclient.New(httpclient.DefaultOptions(cfg.NotifierWebhookURL), logger)
		notify = notifier.New(notifierHTTP, logger)
	}

	retryPolicy := retry.NewPolicy(cfg.CivilTimezone)
	statusIngress := ingress.New(callStates, queueStore, carrierClient, retryPolicy, cfg.MaxAttempts, notify, logger)

	scheduler := queueing.NewScheduler(queueStore, carrierClient, callInitiator, logger, cfg.QueueInterval(), cfg.MaxActiveCalls)
	go scheduler.Run(ctx)

	engine := httpapi.NewEngine(cfg.RoutePrefix, httpapi.Deps{
		Queue:       queueStore,
		CallStates:  callStates,
		Carrier:     carrierClient,
		Ingress:     statusIngress,
		Tokens:      tokens,
		CRM:         crmClient,
		Logger:      logger,
		SourcePhone: cfg.SourcePhone,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: engine,
	}

	go func() {
		logger.Infof("outbound dialer listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}
	logger.Info("outbound dialer stopped")
}
