package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/DucatusX/gold-crowdsale-backend/config"
	"github.com/DucatusX/gold-crowdsale-backend/internal/core/application"
	"github.com/DucatusX/gold-crowdsale-backend/internal/core/domain"
	"github.com/DucatusX/gold-crowdsale-backend/internal/core/ports"
	"github.com/DucatusX/gold-crowdsale-backend/internal/infrastructure/chain/bitcoin"
	"github.com/DucatusX/gold-crowdsale-backend/internal/infrastructure/chain/ethereum"
	"github.com/DucatusX/gold-crowdsale-backend/internal/infrastructure/keyring"
	"github.com/DucatusX/gold-crowdsale-backend/internal/infrastructure/rates"
	dbbadger "github.com/DucatusX/gold-crowdsale-backend/internal/infrastructure/storage/db/badger"
	"github.com/DucatusX/gold-crowdsale-backend/pkg/httputil"
)

func main() {
	log.SetLevel(log.Level(config.GetInt(config.LogLevelKey)))

	app := &cli.App{
		Name:   "withdrawd",
		Usage:  "batched withdrawal daemon for custodial BTC, ETH and token balances",
		Action: runDaemon,
		Commands: []*cli.Command{
			{
				Name:   "createcycle",
				Usage:  "create a new withdraw cycle and exit",
				Action: createCycle,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "currencies",
						Usage: "currencies to withdraw, defaults to all supported",
					},
				},
			},
			{
				Name:   "registeraccount",
				Usage:  "derive and persist the next custodial account and exit",
				Action: registerAccount,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("exiting")
	}
}

func runDaemon(ctx *cli.Context) error {
	withdrawSvc, repoManager, err := buildService()
	if err != nil {
		return err
	}
	defer repoManager.Close()

	interval := time.Duration(config.GetInt(config.ProcessIntervalKey)) * time.Millisecond
	listener := application.NewWithdrawListener(withdrawSvc, interval)
	listener.Observe()
	defer listener.Stop()

	log.Info("daemon is running")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan

	log.Info("shutting down")
	return nil
}

func createCycle(ctx *cli.Context) error {
	withdrawSvc, repoManager, err := buildService()
	if err != nil {
		return err
	}
	defer repoManager.Close()

	cycle, err := withdrawSvc.CreateWithdrawCycle(
		context.Background(), ctx.StringSlice("currencies"),
	)
	if err != nil {
		return err
	}

	log.Infof("created withdraw cycle %s for currencies %v", cycle.Id, cycle.Currencies)
	return nil
}

func registerAccount(ctx *cli.Context) error {
	withdrawSvc, repoManager, err := buildService()
	if err != nil {
		return err
	}
	defer repoManager.Close()

	account, err := withdrawSvc.RegisterAccount(context.Background())
	if err != nil {
		return err
	}

	log.Infof(
		"registered account %d with addresses %s %s",
		account.Index, account.BtcAddress, account.EthAddress,
	)
	return nil
}

func buildService() (application.WithdrawService, ports.RepoManager, error) {
	httputil.SetTimeout(
		time.Duration(config.GetInt(config.ExplorerRequestTimeoutKey)) * time.Millisecond,
	)

	dbDir := filepath.Join(config.GetDatadir(), config.DbLocation)
	repoManager, err := dbbadger.NewRepoManager(dbDir, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("error while opening db: %w", err)
	}

	btcGateway, err := bitcoin.NewService(
		config.GetString(config.ExplorerEndpointKey),
		config.GetNetwork(),
		config.GetInt(config.ExplorerRequestLimitKey),
	)
	if err != nil {
		repoManager.Close()
		return nil, nil, fmt.Errorf("error while connecting to explorer: %w", err)
	}

	ethGateway, err := ethereum.NewService(config.GetString(config.EthRPCEndpointKey))
	if err != nil {
		repoManager.Close()
		return nil, nil, fmt.Errorf("error while connecting to node: %w", err)
	}

	rateSource := rates.NewService(config.GetString(config.RatesEndpointKey))

	keySource, err := keyring.NewKeySource(
		config.GetString(config.MasterKeyKey), config.GetNetwork(),
	)
	if err != nil {
		repoManager.Close()
		return nil, nil, err
	}

	gasPrivateKey, err := crypto.HexToECDSA(config.GetString(config.GasPrivateKeyKey))
	if err != nil {
		repoManager.Close()
		return nil, nil, fmt.Errorf("invalid gas private key: %w", err)
	}

	appCfg := application.Config{
		BtcWithdrawAddress: config.GetString(config.BtcWithdrawAddressKey),
		EthWithdrawAddress: config.GetString(config.EthWithdrawAddressKey),
		GasAddress:         config.GetString(config.GasAddressKey),
		GasPrivateKey:      gasPrivateKey,
		Tokens:             tokenRegistry(),
		EthReceiptWindow:   config.GetDuration(config.EthReceiptWindowKey),
		BtcConfirmWindow:   config.GetDuration(config.BtcConfirmWindowKey),
	}

	withdrawSvc, err := application.NewWithdrawService(
		repoManager, btcGateway, ethGateway, rateSource, keySource, appCfg,
	)
	if err != nil {
		repoManager.Close()
		return nil, nil, err
	}
	return withdrawSvc, repoManager, nil
}

func tokenRegistry() map[domain.Currency]application.TokenConfig {
	tokens := map[domain.Currency]application.TokenConfig{}
	if contract := config.GetString(config.UsdtContractKey); contract != "" {
		tokens[domain.CurrencyUSDT] = application.TokenConfig{
			Address:  contract,
			Decimals: config.GetInt(config.UsdtDecimalsKey),
		}
	}
	if contract := config.GetString(config.UsdcContractKey); contract != "" {
		tokens[domain.CurrencyUSDC] = application.TokenConfig{
			Address:  contract,
			Decimals: config.GetInt(config.UsdcDecimalsKey),
		}
	}
	return tokens
}
