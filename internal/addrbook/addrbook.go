// Package addrbook maps a network id to the deployed Membership registry
// address. The table ships embedded in fixtures/addresses.yaml, written by
// the deployment step, and can be overridden per installation from config.
// There is no fallback: operating on a network with no entry is a
// configuration error and callers must not attempt any registry call.
package addrbook

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"github.com/gymlabs/membership-client/fixtures"
)

// ErrUnresolvedNetwork marks a network id with no deployed registry
// address. Fatal to the session; no reads or writes may proceed past it.
var ErrUnresolvedNetwork = errors.New("no registry address for network")

type bookFile struct {
	Networks map[uint64]string `yaml:"networks"`
}

// Book resolves network ids to registry addresses. Immutable after Load.
type Book struct {
	entries map[uint64]common.Address
}

// Load parses the embedded address table and applies config overrides on
// top. Override entries win over embedded ones for the same network id.
func Load(overrides map[uint64]string) (*Book, error) {
	var file bookFile
	if err := yaml.Unmarshal(fixtures.AddressBook, &file); err != nil {
		return nil, fmt.Errorf("failed to parse embedded address book: %w", err)
	}

	entries := make(map[uint64]common.Address, len(file.Networks)+len(overrides))
	for networkID, hex := range file.Networks {
		addr, err := parseAddress(networkID, hex)
		if err != nil {
			return nil, err
		}
		entries[networkID] = addr
	}
	for networkID, hex := range overrides {
		addr, err := parseAddress(networkID, hex)
		if err != nil {
			return nil, err
		}
		entries[networkID] = addr
	}

	return &Book{entries: entries}, nil
}

// Resolve returns the registry address deployed on the given network.
// Unknown ids return ErrUnresolvedNetwork.
func (b *Book) Resolve(networkID uint64) (common.Address, error) {
	addr, ok := b.entries[networkID]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %d", ErrUnresolvedNetwork, networkID)
	}
	return addr, nil
}

func parseAddress(networkID uint64, hex string) (common.Address, error) {
	if !common.IsHexAddress(hex) {
		return common.Address{}, fmt.Errorf("invalid registry address %q for network %d", hex, networkID)
	}
	return common.HexToAddress(hex), nil
}
