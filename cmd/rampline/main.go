package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/rampline/rampline/internal/auth"
	"github.com/rampline/rampline/internal/balances"
	"github.com/rampline/rampline/internal/blockchain"
	"github.com/rampline/rampline/internal/catalog"
	"github.com/rampline/rampline/internal/config"
	"github.com/rampline/rampline/internal/gas"
	"github.com/rampline/rampline/internal/http_api"
	"github.com/rampline/rampline/internal/models"
	"github.com/rampline/rampline/internal/notificator"
	"github.com/rampline/rampline/internal/orders"
	"github.com/rampline/rampline/internal/orderservice"
	"github.com/rampline/rampline/internal/rates"
	"github.com/rampline/rampline/internal/repository"
	"github.com/rampline/rampline/pkg/logger"
)

func main() {
	app := &cli.App{
		Name:  "rampline",
		Usage: "Rampline is a client-side orchestrator for a p2p fiat/crypto escrow marketplace",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "order-service-url", Aliases: []string{"o"}, Usage: "Order service base URL"},
			&cli.StringFlag{Name: "sqlite-path", Aliases: []string{"s"}, Usage: "Path of the durable client store"},
			&cli.IntFlag{Name: "api-port", Aliases: []string{"p"}, Usage: "HTTP API port"},
			&cli.StringFlag{Name: "evm-chains", Aliases: []string{"e"}, Usage: "EVM chains as chainID,rpcURL,vaultAddress triples joined by semicolons"},
			&cli.StringFlag{Name: "ledger-url", Aliases: []string{"l"}, Usage: "Identity-chain gateway URL"},
			&cli.StringFlag{Name: "catalog-url", Aliases: []string{"c"}, Usage: "Token catalog base URL"},
			&cli.BoolFlag{Name: "development", Aliases: []string{"D"}, Usage: "Development mode"},
		},
		Action: func(c *cli.Context) error {
			return run(c)
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	// Load configuration from environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	// Override with flags if set
	if c.IsSet("order-service-url") {
		cfg.OrderServiceURL = c.String("order-service-url")
	}
	if c.IsSet("sqlite-path") {
		cfg.SQLitePath = c.String("sqlite-path")
	}
	if c.IsSet("api-port") {
		cfg.APIPort = c.Int("api-port")
	}
	if c.IsSet("ledger-url") {
		cfg.LedgerURL = c.String("ledger-url")
	}
	if c.IsSet("catalog-url") {
		cfg.CatalogURL = c.String("catalog-url")
	}
	if c.IsSet("development") {
		cfg.Development = c.Bool("development")
	}
	if c.IsSet("evm-chains") {
		chains, err := config.ParseEVMChains(c.String("evm-chains"))
		if err != nil {
			return err
		}
		cfg.EVMChains = chains
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Development)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %v", err)
	}

	// Initialize the durable client store
	db, err := repository.NewSQLiteDB(cfg.SQLitePath, log)
	if err != nil {
		return fmt.Errorf("failed to open client store: %v", err)
	}
	defer db.Close()

	// Initialize the order service client
	service := orderservice.NewClient(cfg.OrderServiceURL, log)

	// Initialize chain clients
	var evmService models.EVMService
	if len(cfg.EVMChains) > 0 {
		evm, err := blockchain.NewEVM(cfg.EVMChains, cfg.EVMPrivateKey, log)
		if err != nil {
			return fmt.Errorf("failed to initialize EVM client: %v", err)
		}
		defer evm.Close()
		evmService = evm
	}

	var ledgerService models.LedgerService
	if cfg.LedgerURL != "" {
		ledgerService = blockchain.NewLedger(cfg.LedgerURL, cfg.VaultPrincipal, log)
	}

	var signer models.Signer
	if cfg.EVMPrivateKey != "" {
		signer, err = blockchain.NewEVMSigner(cfg.EVMPrivateKey)
		if err != nil {
			return fmt.Errorf("failed to initialize wallet signer: %v", err)
		}
	}

	// Initialize the token catalog
	var tokenCatalog models.TokenCatalog
	if cfg.CatalogURL != "" {
		tokenCatalog = catalog.NewService(cfg.CatalogURL, log)
	} else {
		log.Warn("No catalog URL configured, order creation will reject every token")
		tokenCatalog = catalog.NewStatic(nil)
	}

	// Initialize the notificator
	var telNotif *notificator.TelegramNotificator
	if cfg.TelegramBotToken != "" {
		telNotif, err = notificator.NewTelegramNotificator(log, cfg.TelegramBotToken)
		if err != nil {
			return fmt.Errorf("failed to initialize telegram notificator: %v", err)
		}
	}
	notif := notificator.NewNotificator(log, telNotif, cfg.TelegramChatID)

	// Assemble the core components
	authManager := auth.NewManager(service, ledgerService, db, log)
	rateCache := rates.NewCache(service, db, log)
	estimator := gas.NewEstimator(evmService, rateCache, tokenCatalog, log)
	tracker := balances.NewTracker(evmService, ledgerService, tokenCatalog, log)
	orchestrator := orders.NewOrchestrator(authManager, service, evmService, ledgerService, estimator, tokenCatalog, notif, log)

	// Attempt a silent session resume from the durable store
	if user, err := authManager.Resume(context.Background()); err == nil && user != nil {
		log.Info("Resumed session for user ", user.ID)
	}

	apiServer := http_api.NewHTTPServer(authManager, orchestrator, tracker, rateCache, tokenCatalog, signer, db, cfg.APIPort, log)

	go apiServer.Start()

	// Wait for termination and shut down cleanly
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	if err := apiServer.Shutdown(); err != nil {
		log.Error("Shutdown error: ", err)
	}
	return nil
}
