package source

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/goran-ethernal/MarketSync/pkg/market"
)

//go:embed marketplace.abi.json
var defaultABI []byte

// LoadABI parses the marketplace ABI from path, or the embedded one when path is empty,
// and checks that every projected event is declared.
func LoadABI(path string) (*abi.ABI, error) {
	raw := defaultABI
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read ABI file %s: %w", path, err)
		}
		raw = data
	}

	parsed, err := abi.JSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI: %w", err)
	}

	for _, name := range market.ProjectionOrder {
		if _, ok := parsed.Events[string(name)]; !ok {
			return nil, fmt.Errorf("ABI does not declare event %s", name)
		}
	}

	return &parsed, nil
}
