package bitcoin

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sort"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/sony/gobreaker"
	"go.uber.org/ratelimit"

	"github.com/DucatusX/gold-crowdsale-backend/internal/core/ports"
	"github.com/DucatusX/gold-crowdsale-backend/pkg/circuitbreaker"
	"github.com/DucatusX/gold-crowdsale-backend/pkg/httputil"
)

const (
	// feeEstimateTarget is the esplora fee-estimate confirmation target used
	// to price a sweep.
	feeEstimateTarget = "6"
	// sweepTxVsize is the conservative virtual size a sweep is priced at.
	sweepTxVsize = 250
)

type service struct {
	apiURL  string
	net     *chaincfg.Params
	limiter ratelimit.Limiter
	cb      *gobreaker.CircuitBreaker
}

// NewService returns an esplora-backed implementation of ports.BtcGateway.
func NewService(apiURL string, net *chaincfg.Params, requestsPerSecond int) (ports.BtcGateway, error) {
	svc := &service{
		apiURL:  apiURL,
		net:     net,
		limiter: ratelimit.New(requestsPerSecond),
		cb:      circuitbreaker.NewCircuitBreaker(),
	}

	if err := svc.healthCheck(); err != nil {
		return nil, fmt.Errorf("health check: %w", err)
	}
	return svc, nil
}

func (s *service) healthCheck() error {
	_, err := s.tipHeight()
	return err
}

type utxoResponse struct {
	Txid  string `json:"txid"`
	Vout  uint32 `json:"vout"`
	Value uint64 `json:"value"`
}

func (s *service) ListUnspents(
	ctx context.Context, address string,
) ([]ports.Unspent, uint64, error) {
	url := fmt.Sprintf("%s/address/%s/utxo", s.apiURL, address)
	resp, err := s.get(url)
	if err != nil {
		return nil, 0, err
	}

	var outs []utxoResponse
	if err := json.Unmarshal([]byte(resp), &outs); err != nil {
		return nil, 0, fmt.Errorf("error on retrieving utxos: %s", err)
	}

	unspents := make([]ports.Unspent, 0, len(outs))
	totalValue := uint64(0)
	for _, out := range outs {
		unspents = append(unspents, ports.Unspent{
			TxHash: out.Txid,
			Index:  out.Vout,
			Value:  out.Value,
		})
		totalValue += out.Value
	}

	// Deterministic input ordering.
	sort.Slice(unspents, func(i, j int) bool {
		if unspents[i].TxHash == unspents[j].TxHash {
			return unspents[i].Index < unspents[j].Index
		}
		return unspents[i].TxHash < unspents[j].TxHash
	})
	return unspents, totalValue, nil
}

func (s *service) RelayFee(ctx context.Context) (uint64, error) {
	url := fmt.Sprintf("%s/fee-estimates", s.apiURL)
	resp, err := s.get(url)
	if err != nil {
		return 0, err
	}

	estimates := map[string]float64{}
	if err := json.Unmarshal([]byte(resp), &estimates); err != nil {
		return 0, fmt.Errorf("error on retrieving fee estimates: %s", err)
	}

	satsPerVByte, ok := estimates[feeEstimateTarget]
	if !ok || satsPerVByte < 1 {
		satsPerVByte = 1
	}
	return uint64(math.Ceil(satsPerVByte * sweepTxVsize)), nil
}

func (s *service) BuildAndSend(
	ctx context.Context,
	unspents []ports.Unspent, fromAddress, toAddress string,
	amount uint64, privKey *btcec.PrivateKey,
) (string, error) {
	txHex, err := s.buildSignedTx(unspents, fromAddress, toAddress, amount, privKey)
	if err != nil {
		return "", err
	}
	return s.broadcast(txHex)
}

func (s *service) Confirmations(ctx context.Context, txHash string) (int, error) {
	url := fmt.Sprintf("%s/tx/%s/status", s.apiURL, txHash)
	resp, err := s.get(url)
	if err != nil {
		return 0, err
	}

	status := struct {
		Confirmed   bool  `json:"confirmed"`
		BlockHeight int64 `json:"block_height"`
	}{}
	if err := json.Unmarshal([]byte(resp), &status); err != nil {
		return 0, fmt.Errorf("error on retrieving tx status: %s", err)
	}
	if !status.Confirmed {
		return 0, nil
	}

	tip, err := s.tipHeight()
	if err != nil {
		return 0, err
	}
	return int(tip-status.BlockHeight) + 1, nil
}

func (s *service) buildSignedTx(
	unspents []ports.Unspent, fromAddress, toAddress string,
	amount uint64, privKey *btcec.PrivateKey,
) (string, error) {
	from, err := btcutil.DecodeAddress(fromAddress, s.net)
	if err != nil {
		return "", fmt.Errorf("invalid source address: %w", err)
	}
	to, err := btcutil.DecodeAddress(toAddress, s.net)
	if err != nil {
		return "", fmt.Errorf("invalid destination address: %w", err)
	}

	prevPkScript, err := txscript.PayToAddrScript(from)
	if err != nil {
		return "", err
	}
	outScript, err := txscript.PayToAddrScript(to)
	if err != nil {
		return "", err
	}

	msgTx := wire.NewMsgTx(wire.TxVersion)
	for _, unspent := range unspents {
		prevHash, err := chainhash.NewHashFromStr(unspent.TxHash)
		if err != nil {
			return "", err
		}
		msgTx.AddTxIn(wire.NewTxIn(
			wire.NewOutPoint(prevHash, unspent.Index), nil, nil,
		))
	}
	msgTx.AddTxOut(wire.NewTxOut(int64(amount), outScript))

	for i := range msgTx.TxIn {
		sigScript, err := txscript.SignatureScript(
			msgTx, i, prevPkScript, txscript.SigHashAll, privKey, true,
		)
		if err != nil {
			return "", err
		}
		msgTx.TxIn[i].SignatureScript = sigScript
	}

	var buf bytes.Buffer
	if err := msgTx.Serialize(&buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf.Bytes()), nil
}

func (s *service) broadcast(txHex string) (string, error) {
	url := fmt.Sprintf("%s/tx", s.apiURL)
	s.limiter.Take()

	resp, err := s.cb.Execute(func() (interface{}, error) {
		status, body, err := httputil.NewHTTPRequest("POST", url, txHex, nil)
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			return nil, fmt.Errorf(body)
		}
		return body, nil
	})
	if err != nil {
		return "", err
	}
	return resp.(string), nil
}

func (s *service) tipHeight() (int64, error) {
	url := fmt.Sprintf("%s/blocks/tip/height", s.apiURL)
	resp, err := s.get(url)
	if err != nil {
		return 0, err
	}

	var height int64
	if err := json.Unmarshal([]byte(resp), &height); err != nil {
		return 0, fmt.Errorf("error on retrieving chain tip: %s", err)
	}
	return height, nil
}

func (s *service) get(url string) (string, error) {
	s.limiter.Take()

	resp, err := s.cb.Execute(func() (interface{}, error) {
		status, body, err := httputil.NewHTTPRequest("GET", url, "", nil)
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			return nil, fmt.Errorf(body)
		}
		return body, nil
	})
	if err != nil {
		return "", err
	}
	return resp.(string), nil
}
