package keyring

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/crypto"
	bip32 "github.com/tyler-smith/go-bip32"
)

// KeySource derives per-account signing keys and deposit addresses from a
// single extended master key. Account index zero is reserved.
type KeySource struct {
	masterKey *bip32.Key
	net       *chaincfg.Params
}

// NewKeySource parses a base58 serialized extended private key.
func NewKeySource(serializedMasterKey string, net *chaincfg.Params) (*KeySource, error) {
	masterKey, err := bip32.B58Deserialize(serializedMasterKey)
	if err != nil {
		return nil, fmt.Errorf("invalid master key: %w", err)
	}
	if !masterKey.IsPrivate {
		return nil, fmt.Errorf("master key must be private")
	}

	return &KeySource{
		masterKey: masterKey,
		net:       net,
	}, nil
}

func (k *KeySource) DeriveKeys(index uint32) (*btcec.PrivateKey, *ecdsa.PrivateKey, error) {
	childKey, err := k.masterKey.NewChildKey(index)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to derive child key %d: %w", index, err)
	}

	btcKey, _ := btcec.PrivKeyFromBytes(childKey.Key)
	ethKey, err := crypto.ToECDSA(childKey.Key)
	if err != nil {
		return nil, nil, err
	}
	return btcKey, ethKey, nil
}

func (k *KeySource) DeriveAddresses(index uint32) (string, string, error) {
	btcKey, ethKey, err := k.DeriveKeys(index)
	if err != nil {
		return "", "", err
	}

	pubKeyHash := btcutil.Hash160(btcKey.PubKey().SerializeCompressed())
	btcAddress, err := btcutil.NewAddressPubKeyHash(pubKeyHash, k.net)
	if err != nil {
		return "", "", err
	}

	ethAddress := crypto.PubkeyToAddress(ethKey.PublicKey)
	return btcAddress.EncodeAddress(), ethAddress.Hex(), nil
}
