// Package wallet is the signing capability the rest of the module depends
// on: it reports the connected account and signs transactions for the
// session chain. The implementation is a local JSON keyfile; nothing else
// in the module knows or cares where key material comes from.
package wallet

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrWalletNotConnected is returned when an operation needs a signer and
// none is loaded. User-recoverable: create or point config at a keyfile.
var ErrWalletNotConnected = errors.New("wallet not connected")

type KeyFile struct {
	PublicKey  string `json:"public_key"`
	Address    string `json:"address"`
	PrivateKey string `json:"private_key"`
}

// Wallet holds the session account and its signing key.
type Wallet struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// Load reads a keyfile and returns the wallet for its account.
func Load(path string) (*Wallet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var key KeyFile
	if err := json.Unmarshal(data, &key); err != nil {
		return nil, err
	}

	privateKey, err := crypto.HexToECDSA(key.PrivateKey)
	if err != nil {
		return nil, err
	}

	publicKey, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.New("unexpected public key type")
	}

	return &Wallet{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(*publicKey),
	}, nil
}

// Generate creates a fresh key and writes it to path in keyfile format.
func Generate(path string) error {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return err
	}

	publicKey, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return errors.New("unexpected public key type")
	}

	keyFile := KeyFile{
		PublicKey:  common.Bytes2Hex(crypto.FromECDSAPub(publicKey)),
		Address:    crypto.PubkeyToAddress(*publicKey).Hex(),
		PrivateKey: common.Bytes2Hex(crypto.FromECDSA(privateKey)),
	}

	data, err := json.MarshalIndent(keyFile, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Address reports the connected account.
func (w *Wallet) Address() common.Address {
	return w.address
}

// SignTx signs a transaction for the given chain id (EIP-155).
func (w *Wallet) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	return types.SignTx(tx, types.NewEIP155Signer(chainID), w.privateKey)
}
