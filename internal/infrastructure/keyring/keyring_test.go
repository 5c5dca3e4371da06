package keyring_test

import (
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"

	"github.com/DucatusX/gold-crowdsale-backend/internal/infrastructure/keyring"
)

// BIP32 test vector 1 master key.
const testMasterKey = "xprv9s21ZrQH143K3QTDL4LXw2F7HEK3wJUD2nW2nRk4stbPy6cq3jPPqjiChkVvvNKmPGJxWUtg6LnF5kejMRNNU3TGtRBeJgk33yuGBxrMPHi"

func TestNewKeySource(t *testing.T) {
	t.Parallel()

	_, err := keyring.NewKeySource(testMasterKey, &chaincfg.MainNetParams)
	require.NoError(t, err)

	_, err = keyring.NewKeySource("not a key", &chaincfg.MainNetParams)
	require.Error(t, err)
}

func TestDeriveKeysIsDeterministic(t *testing.T) {
	t.Parallel()

	keySource, err := keyring.NewKeySource(testMasterKey, &chaincfg.MainNetParams)
	require.NoError(t, err)

	btcKey, ethKey, err := keySource.DeriveKeys(1)
	require.NoError(t, err)
	btcKeyAgain, ethKeyAgain, err := keySource.DeriveKeys(1)
	require.NoError(t, err)
	require.Equal(t, btcKey.Serialize(), btcKeyAgain.Serialize())
	require.Equal(t, ethKey.D, ethKeyAgain.D)

	btcKeyOther, ethKeyOther, err := keySource.DeriveKeys(2)
	require.NoError(t, err)
	require.NotEqual(t, btcKey.Serialize(), btcKeyOther.Serialize())
	require.NotEqual(t, ethKey.D, ethKeyOther.D)
}

func TestDeriveAddresses(t *testing.T) {
	t.Parallel()

	keySource, err := keyring.NewKeySource(testMasterKey, &chaincfg.MainNetParams)
	require.NoError(t, err)

	btcAddress, ethAddress, err := keySource.DeriveAddresses(1)
	require.NoError(t, err)

	decoded, err := btcutil.DecodeAddress(btcAddress, &chaincfg.MainNetParams)
	require.NoError(t, err)
	require.True(t, decoded.IsForNet(&chaincfg.MainNetParams))

	require.True(t, strings.HasPrefix(ethAddress, "0x"))
	require.Len(t, ethAddress, 42)

	// The address matches the derived key.
	btcKey, _, err := keySource.DeriveKeys(1)
	require.NoError(t, err)
	pubKeyHash := btcutil.Hash160(btcKey.PubKey().SerializeCompressed())
	expected, err := btcutil.NewAddressPubKeyHash(pubKeyHash, &chaincfg.MainNetParams)
	require.NoError(t, err)
	require.Equal(t, expected.EncodeAddress(), btcAddress)
}
