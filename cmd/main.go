package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/40acres/lngateway/daemon"
	"github.com/40acres/lngateway/database"
	"github.com/40acres/lngateway/gateway"
	"github.com/40acres/lngateway/lightning"
	"github.com/40acres/lngateway/price"
	"github.com/40acres/lngateway/server"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	_ "github.com/40acres/lngateway/logging"
)

func validatePort(port int64) (uint32, error) {
	if port < 0 || port > 65535 {
		return 0, fmt.Errorf("port number %d is invalid: must be between 0 and 65535", port)
	}

	return uint32(port), nil
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigChan
		log.Info("Received signal, shutting down")
		cancel()
	}()

	app := &cli.Command{
		Name:  "lngateway",
		Usage: "Lightning payment gateway for shop orders",
		Flags: append(append(databaseFlags, lightningFlags...), gatewayFlags...),
		Commands: []*cli.Command{
			{
				Name:  "start",
				Usage: "Start the lngatewayd daemon",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					db, closeDb, err := StartDatabase(cmd)
					if err != nil {
						return err
					}
					defer func() {
						if err := closeDb(); err != nil {
							log.Errorf("❌ Could not close database: %v", err)
						}
					}()

					if cmd.String("db-host") == database.EmbeddedHost {
						if err := db.MigrateDatabase(); err != nil {
							return err
						}
					} else {
						log.Info("🔍 Skipping database migration")
					}

					config, err := gatewayConfig(cmd)
					if err != nil {
						return err
					}

					backend, err := StartBackend(ctx, cmd)
					if err != nil {
						return err
					}
					defer backend.Close()

					manager, err := NewManager(cmd, config, backend, db)
					if err != nil {
						return err
					}

					srv := server.NewServer(manager, cmd.String("listen"), config.PollTimeout)

					return daemon.Start(ctx, srv, db, manager, backend.Subscriber, config.SweepInterval)
				},
			},
			{
				Name:  "order",
				Usage: "Order operations",
				Commands: []*cli.Command{
					{
						Name:  "create",
						Usage: "Create an order and its invoice",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "key", Usage: "Order key", Required: true},
							&cli.StringFlag{Name: "total", Usage: "Order total in fiat", Required: true},
							&cli.StringFlag{Name: "currency", Usage: "Fiat currency", Value: "USD"},
						},
						Action: withManager(func(ctx context.Context, cmd *cli.Command, manager *gateway.Manager) error {
							total, err := decimal.NewFromString(cmd.String("total"))
							if err != nil {
								return fmt.Errorf("invalid total: %w", err)
							}
							order, err := manager.CreateOrder(ctx, cmd.String("key"), total, cmd.String("currency"))
							if err != nil {
								return err
							}
							checkout, err := manager.EnsureInvoice(ctx, order.ID)
							if err != nil {
								return fmt.Errorf("order %d created but checkout failed: %w", order.ID, err)
							}
							fmt.Printf("order %d: pay %s\n%s\n", order.ID, checkout.Amount, checkout.PaymentRequest)

							return nil
						}),
					},
					{
						Name:  "check",
						Usage: "Check whether an order has been paid",
						Flags: []cli.Flag{&orderIDFlag},
						Action: withManager(func(ctx context.Context, cmd *cli.Command, manager *gateway.Manager) error {
							res, err := manager.CheckSettlement(ctx, uint(cmd.Uint("id")))
							if err != nil {
								return err
							}
							fmt.Println(res.String())

							return nil
						}),
					},
					{
						Name:  "cancel",
						Usage: "Cancel an unpaid order",
						Flags: []cli.Flag{&orderIDFlag},
						Action: withManager(func(ctx context.Context, cmd *cli.Command, manager *gateway.Manager) error {
							id := uint(cmd.Uint("id"))
							if err := manager.CancelOrder(ctx, id); err != nil {
								return err
							}
							fmt.Printf("order %d cancelled\n", id)

							return nil
						}),
					},
				},
			},
			{
				Name:  "database",
				Usage: "Database operations",
				Commands: []*cli.Command{
					{
						Name:  "migrate",
						Usage: "Migrate the database",
						Action: func(ctx context.Context, cmd *cli.Command) error {
							db, closeDb, err := StartDatabase(cmd)
							if err != nil {
								return err
							}
							defer func() {
								if err := closeDb(); err != nil {
									log.Errorf("❌ Could not close database: %v", err)
								}
							}()

							return db.MigrateDatabase()
						},
					},
					{
						Name:  "reset",
						Usage: "Reset the database",
						Action: func(ctx context.Context, cmd *cli.Command) error {
							db, closeDb, err := StartDatabase(cmd)
							if err != nil {
								return err
							}
							defer func() {
								if err := closeDb(); err != nil {
									log.Errorf("❌ Could not close database: %v", err)
								}
							}()

							if cmd.String("db-host") != database.EmbeddedHost {
								log.Info("🔍 Refusing to reset an external database")

								return nil
							}

							return db.Reset()
						},
					},
				},
			},
			{
				Name:  "help",
				Usage: "Show help",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return cli.ShowAppHelp(cmd)
				},
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

var orderIDFlag = cli.UintFlag{
	Name:     "id",
	Usage:    "Order id",
	Required: true,
}

var databaseFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "db-host",
		Usage:   "Database host",
		Value:   database.EmbeddedHost,
		Sources: cli.EnvVars("LNGATEWAY_DB_HOST"),
	},
	&cli.StringFlag{
		Name:    "db-user",
		Usage:   "Database username",
		Value:   "myuser",
		Sources: cli.EnvVars("LNGATEWAY_DB_USER"),
	},
	&cli.StringFlag{
		Name:    "db-password",
		Usage:   "Database password",
		Value:   "mypassword",
		Sources: cli.EnvVars("LNGATEWAY_DB_PASSWORD"),
	},
	&cli.StringFlag{
		Name:    "db-name",
		Usage:   "Database name",
		Value:   "postgres",
		Sources: cli.EnvVars("LNGATEWAY_DB_NAME"),
	},
	&cli.IntFlag{
		Name:    "db-port",
		Usage:   "Database port",
		Value:   5433,
		Sources: cli.EnvVars("LNGATEWAY_DB_PORT"),
	},
	&cli.StringFlag{
		Name:    "db-data-path",
		Usage:   "Database path",
		Value:   "./.data",
		Sources: cli.EnvVars("LNGATEWAY_DB_DATA_PATH"),
	},
	&cli.BoolFlag{
		Name:  "db-keep-alive",
		Usage: "Keep the database running after the daemon stops for embedded databases",
	},
}

var lightningFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "backend",
		Usage:   "Lightning backend: lnd-rest, lnd-grpc or charge",
		Value:   string(BackendLndRest),
		Sources: cli.EnvVars("LNGATEWAY_BACKEND"),
	},
	&cli.StringFlag{
		Name:    "node-endpoint",
		Usage:   "Lightning node endpoint (lnd REST or gRPC address, charge URL)",
		Sources: cli.EnvVars("LNGATEWAY_NODE_ENDPOINT"),
	},
	&cli.StringFlag{
		Name:    "macaroon-hex",
		Usage:   "Hex encoded invoice macaroon",
		Sources: cli.EnvVars("LNGATEWAY_MACAROON_HEX"),
	},
	&cli.StringFlag{
		Name:    "macaroon-path",
		Usage:   "Path to the invoice macaroon, {Chain} and {Network} are substituted",
		Sources: cli.EnvVars("LNGATEWAY_MACAROON_PATH"),
	},
	&cli.StringFlag{
		Name:    "tls-cert",
		Usage:   "Path to the node TLS certificate",
		Sources: cli.EnvVars("LNGATEWAY_TLS_CERT"),
	},
	&cli.BoolFlag{
		Name:    "lnd-insecure-skip-verify",
		Usage:   "Do not verify the node TLS certificate",
		Sources: cli.EnvVars("LNGATEWAY_INSECURE_SKIP_VERIFY"),
	},
	&cli.StringFlag{
		Name:    "charge-token",
		Usage:   "Lightning Charge API token",
		Sources: cli.EnvVars("LNGATEWAY_CHARGE_TOKEN"),
	},
	&cli.StringFlag{
		Name:    "hook-base-url",
		Usage:   "Public URL of this gateway, used to register charge webhooks",
		Sources: cli.EnvVars("LNGATEWAY_HOOK_BASE_URL"),
	},
	&cli.DurationFlag{
		Name:    "invoice-expiry",
		Usage:   "Expiry requested for new invoices, 0 keeps the node default",
		Sources: cli.EnvVars("LNGATEWAY_INVOICE_EXPIRY"),
	},
	&cli.StringFlag{
		Name:    "coin",
		Usage:   "Coin the node settles in: BTC or LTC",
		Value:   string(lightning.Bitcoin),
		Sources: cli.EnvVars("LNGATEWAY_COIN"),
	},
	&testnet,
	&regtest,
}

var gatewayFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "price-url",
		Usage:   "Price feed base URL",
		Value:   price.DefaultEndpoint,
		Sources: cli.EnvVars("LNGATEWAY_PRICE_URL"),
	},
	&cli.StringFlag{
		Name:    "price-public-key",
		Usage:   "Price feed public key",
		Sources: cli.EnvVars("LNGATEWAY_PRICE_PUBLIC_KEY"),
	},
	&cli.StringFlag{
		Name:    "price-secret-key",
		Usage:   "Price feed secret key",
		Sources: cli.EnvVars("LNGATEWAY_PRICE_SECRET_KEY"),
	},
	&cli.BoolFlag{
		Name:    "price-mempool-fallback",
		Usage:   "Fall back to mempool.space bitcoin prices when the ticker fails",
		Value:   true,
		Sources: cli.EnvVars("LNGATEWAY_PRICE_MEMPOOL_FALLBACK"),
	},
	&cli.StringFlag{
		Name:    "price-mempool-url",
		Usage:   "mempool.space API base URL",
		Value:   price.MempoolBaseURL,
		Sources: cli.EnvVars("LNGATEWAY_PRICE_MEMPOOL_URL"),
	},
	&cli.StringFlag{
		Name:    "listen",
		Usage:   "HTTP listen address",
		Value:   ":8090",
		Sources: cli.EnvVars("LNGATEWAY_LISTEN"),
	},
	&cli.DurationFlag{
		Name:    "poll-timeout",
		Usage:   "Deadline of node calls made while answering a poll (max 2m)",
		Value:   gateway.NewConfig().PollTimeout,
		Sources: cli.EnvVars("LNGATEWAY_POLL_TIMEOUT"),
	},
	&cli.DurationFlag{
		Name:    "sweep-interval",
		Usage:   "How often unpaid orders are checked in the background, 0 disables it",
		Value:   gateway.NewConfig().SweepInterval,
		Sources: cli.EnvVars("LNGATEWAY_SWEEP_INTERVAL"),
	},
	&cli.DurationFlag{
		Name:    "renewal-timeout",
		Usage:   "Age after which an unfinished invoice renewal is taken over",
		Value:   gateway.NewConfig().RenewalTimeout,
		Sources: cli.EnvVars("LNGATEWAY_RENEWAL_TIMEOUT"),
	},
}

var regtest = cli.BoolFlag{
	Name:  "regtest",
	Usage: "Use regtest network",
}
var testnet = cli.BoolFlag{
	Name:  "testnet",
	Usage: "Use testnet network",
}

func network(cmd *cli.Command) lightning.Network {
	switch {
	case cmd.Bool("regtest"):
		return lightning.Regtest
	case cmd.Bool("testnet"):
		return lightning.Testnet
	default:
		return lightning.Mainnet
	}
}

func gatewayConfig(cmd *cli.Command) (*gateway.Config, error) {
	coin, err := lightning.ParseCoin(cmd.String("coin"))
	if err != nil {
		return nil, err
	}

	config := gateway.NewConfig()
	config.Coin = coin
	config.PollTimeout = cmd.Duration("poll-timeout")
	config.SweepInterval = cmd.Duration("sweep-interval")
	config.RenewalTimeout = cmd.Duration("renewal-timeout")
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func backendConfig(cmd *cli.Command) *BackendConfig {
	return &BackendConfig{
		Kind:               BackendKind(cmd.String("backend")),
		Endpoint:           cmd.String("node-endpoint"),
		MacaroonHex:        cmd.String("macaroon-hex"),
		MacaroonPath:       cmd.String("macaroon-path"),
		TLSCertPath:        cmd.String("tls-cert"),
		InsecureSkipVerify: cmd.Bool("lnd-insecure-skip-verify"),
		ChargeToken:        cmd.String("charge-token"),
		HookBaseURL:        cmd.String("hook-base-url"),
		Coin:               lightning.Coin(cmd.String("coin")),
		Network:            network(cmd),
		InvoiceExpiry:      cmd.Duration("invoice-expiry"),
	}
}

func StartBackend(ctx context.Context, cmd *cli.Command) (*Backend, error) {
	backend, err := NewBackend(ctx, backendConfig(cmd))
	if err != nil {
		return nil, fmt.Errorf("❌ Could not connect to lightning node: %w", err)
	}

	return backend, nil
}

func NewManager(cmd *cli.Command, config *gateway.Config, backend *Backend, repository database.OrderRepository) (*gateway.Manager, error) {
	oracle, err := NewOracle(cmd, config.Coin)
	if err != nil {
		return nil, err
	}

	return gateway.NewManager(config, backend.Client, oracle, repository), nil
}

// NewOracle builds the signed ticker client, backed by mempool.space for
// bitcoin when enabled. Without ticker keys mempool.space is used alone.
func NewOracle(cmd *cli.Command, coin lightning.Coin) (price.Oracle, error) {
	var mempool price.Oracle
	if coin == lightning.Bitcoin && cmd.Bool("price-mempool-fallback") {
		mempool = price.NewMempoolSpace(price.WithMempoolURL(cmd.String("price-mempool-url")))
	}

	if cmd.String("price-public-key") == "" && mempool != nil {
		return mempool, nil
	}

	ticker, err := price.NewClient(
		cmd.String("price-url"),
		cmd.String("price-public-key"),
		cmd.String("price-secret-key"),
		string(coin),
	)
	if err != nil {
		return nil, err
	}
	if mempool == nil {
		return ticker, nil
	}

	return price.NewFallback(ticker, mempool), nil
}

// withManager wires database, node and price feed for one-shot commands.
func withManager(action func(ctx context.Context, cmd *cli.Command, manager *gateway.Manager) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		db, closeDb, err := StartDatabase(cmd)
		if err != nil {
			return err
		}
		defer func() {
			if err := closeDb(); err != nil {
				log.Errorf("❌ Could not close database: %v", err)
			}
		}()

		config, err := gatewayConfig(cmd)
		if err != nil {
			return err
		}
		backend, err := StartBackend(ctx, cmd)
		if err != nil {
			return err
		}
		defer backend.Close()

		manager, err := NewManager(cmd, config, backend, db)
		if err != nil {
			return err
		}

		return action(ctx, cmd, manager)
	}
}

func StartDatabase(cmd *cli.Command) (*database.Database, func() error, error) {
	port, err := validatePort(cmd.Int("db-port"))
	if err != nil {
		return nil, nil, err
	}

	db, closeDb, err := database.NewDatabase(
		cmd.String("db-user"),
		cmd.String("db-password"),
		cmd.String("db-name"),
		port,
		cmd.String("db-data-path"),
		cmd.String("db-host"),
		cmd.Bool("db-keep-alive"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("❌ Could not connect to database: %w", err)
	}

	return db, closeDb, nil
}
