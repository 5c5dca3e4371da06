package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	// DatadirKey is the local data directory to store the internal state of the daemon
	DatadirKey = "DATA_DIR_PATH"
	// LogLevelKey are the different logging levels. For reference on the values https://godoc.org/github.com/sirupsen/logrus#Level
	LogLevelKey = "LOG_LEVEL"
	// NetworkKey is the BTC network to use. Either "mainnet", "testnet" or "regtest"
	NetworkKey = "NETWORK"
	// ExplorerEndpointKey is the endpoint where the Esplora REST API is listening
	ExplorerEndpointKey = "EXPLORER_ENDPOINT"
	// ExplorerRequestLimitKey is the number of requests per second permitted toward the explorer
	ExplorerRequestLimitKey = "EXPLORER_REQUEST_LIMIT"
	// ExplorerRequestTimeoutKey are the milliseconds to wait for HTTP responses before timeouts
	ExplorerRequestTimeoutKey = "EXPLORER_REQUEST_TIMEOUT"
	// EthRPCEndpointKey is the url of the account-chain node RPC interface
	EthRPCEndpointKey = "ETH_RPC_ENDPOINT"
	// RatesEndpointKey is the url of the REST endpoint answering with currency/USD rates
	RatesEndpointKey = "RATES_ENDPOINT"
	// BtcWithdrawAddressKey is the cold address all BTC sweeps are sent to
	BtcWithdrawAddressKey = "BTC_WITHDRAW_ADDRESS"
	// EthWithdrawAddressKey is the cold address all ETH and token sweeps are sent to
	EthWithdrawAddressKey = "ETH_WITHDRAW_ADDRESS"
	// GasAddressKey is the hot address funding gas refills
	GasAddressKey = "GAS_ADDRESS"
	// GasPrivateKeyKey is the hex encoded private key of the gas address
	GasPrivateKeyKey = "GAS_PRIVATE_KEY"
	// MasterKeyKey is the base58 serialized extended private key accounts derive from
	MasterKeyKey = "MASTER_KEY"
	// ProcessIntervalKey is the interval in milliseconds between two withdraw passes
	ProcessIntervalKey = "PROCESS_INTERVAL"
	// EthReceiptWindowKey is the duration a broadcast ETH tx may stay without receipt before it is flagged
	EthReceiptWindowKey = "ETH_RECEIPT_WINDOW"
	// BtcConfirmWindowKey is the duration a broadcast BTC tx may stay unseen before it is flagged
	BtcConfirmWindowKey = "BTC_CONFIRM_WINDOW"
	// UsdtContractKey is the USDT token contract address
	UsdtContractKey = "USDT_CONTRACT"
	// UsdtDecimalsKey is the number of decimals of the USDT token
	UsdtDecimalsKey = "USDT_DECIMALS"
	// UsdcContractKey is the USDC token contract address
	UsdcContractKey = "USDC_CONTRACT"
	// UsdcDecimalsKey is the number of decimals of the USDC token
	UsdcDecimalsKey = "USDC_DECIMALS"

	DbLocation = "db"

	networkMainnet = "mainnet"
	networkTestnet = "testnet"
	networkRegtest = "regtest"
)

var vip *viper.Viper
var defaultDatadir = btcutil.AppDataDir("gold-withdrawd", false)

func init() {
	vip = viper.New()
	vip.SetEnvPrefix("GOLD")
	vip.AutomaticEnv()

	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(LogLevelKey, 4)
	vip.SetDefault(NetworkKey, networkMainnet)
	vip.SetDefault(ExplorerEndpointKey, "https://blockstream.info/api")
	vip.SetDefault(ExplorerRequestLimitKey, 10)
	vip.SetDefault(ExplorerRequestTimeoutKey, 15000)
	vip.SetDefault(EthRPCEndpointKey, "http://127.0.0.1:8545")
	vip.SetDefault(ProcessIntervalKey, 60000)
	vip.SetDefault(EthReceiptWindowKey, 2*time.Hour)
	vip.SetDefault(BtcConfirmWindowKey, 3*time.Hour)
	vip.SetDefault(UsdtDecimalsKey, 6)
	vip.SetDefault(UsdcDecimalsKey, 6)

	if err := validate(); err != nil {
		log.WithError(err).Panic("error while validating config")
	}

	if err := initDatadir(); err != nil {
		log.WithError(err).Panic("error while creating datadir")
	}
}

//GetString ...
func GetString(key string) string {
	return vip.GetString(key)
}

//GetInt ...
func GetInt(key string) int {
	return vip.GetInt(key)
}

//GetDuration ...
func GetDuration(key string) time.Duration {
	return vip.GetDuration(key)
}

//GetNetwork ...
func GetNetwork() *chaincfg.Params {
	switch vip.GetString(NetworkKey) {
	case networkRegtest:
		return &chaincfg.RegressionNetParams
	case networkTestnet:
		return &chaincfg.TestNet3Params
	default:
		return &chaincfg.MainNetParams
	}
}

func GetDatadir() string {
	return GetString(DatadirKey)
}

// Set a value for the given key
func Set(key string, value interface{}) {
	vip.Set(key, value)
}

// IsSet returns whether the give key is set
func IsSet(key string) bool {
	return vip.IsSet(key)
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("datadir must not be null")
	}

	networkName := GetString(NetworkKey)
	if networkName != networkMainnet &&
		networkName != networkTestnet &&
		networkName != networkRegtest {
		return fmt.Errorf(
			"network must be one of '%s', '%s' or '%s'",
			networkMainnet, networkTestnet, networkRegtest,
		)
	}

	for _, key := range []string{ExplorerEndpointKey, EthRPCEndpointKey} {
		if endpoint := GetString(key); endpoint != "" {
			if _, err := url.Parse(endpoint); err != nil {
				return fmt.Errorf("%s is not a valid url: %s", key, err)
			}
		}
	}

	if limit := GetInt(ExplorerRequestLimitKey); limit < 1 {
		return fmt.Errorf("explorer request limit must be a positive number")
	}

	if interval := GetInt(ProcessIntervalKey); interval < 1 {
		return fmt.Errorf("process interval must be a positive number of milliseconds")
	}

	return nil
}

func initDatadir() error {
	datadir := GetDatadir()
	if err := makeDirectoryIfNotExists(datadir); err != nil {
		return err
	}
	return makeDirectoryIfNotExists(filepath.Join(datadir, DbLocation))
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}
