// Package genesis describes the on-disk genesis document: the initial
// validator set, consensus timing parameters and the height-0 block
// every node must agree on before joining consensus. There are no
// staking, governance, token or EVM chain-config fields here, since
// this chain has no execution layer and no account/state model.
package genesis

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/sanketsaagar/lightchain-l1/pkg/block"
	"github.com/sanketsaagar/lightchain-l1/pkg/errs"
)

// Genesis is the node-agnostic, hand-authored document every operator
// in a network must start from identically.
type Genesis struct {
	ChainID    uint64          `json:"chainId"`
	Timestamp  uint64          `json:"timestamp"`
	ExtraData  hexutil.Bytes   `json:"extraData"`
	GasLimit   uint64          `json:"gasLimit"`
	Validators []common.Address `json:"validators"`
	Consensus  ConsensusParams `json:"consensus"`
}

// ConsensusParams records consensus timing knobs in the genesis
// document. internal/node does not read them: the consensus core's
// timing comes from the node config (config.ConsensusConfig) and
// consensus.DefaultConfig.
type ConsensusParams struct {
	BlockTimeSeconds    uint64 `json:"blockTimeSeconds"`
	RoundTimeoutSeconds uint64 `json:"roundTimeoutSeconds"`
	MaxRoundTimeoutSecs uint64 `json:"maxRoundTimeoutSeconds"`
	ClockDriftSeconds   uint64 `json:"clockDriftSeconds"`
}

func DefaultConsensusParams() ConsensusParams {
	return ConsensusParams{
		BlockTimeSeconds:    2,
		RoundTimeoutSeconds: 2,
		MaxRoundTimeoutSecs: 32,
		ClockDriftSeconds:   5,
	}
}

// Load reads and parses a genesis document from path.
func Load(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis: %w", err)
	}
	var g Genesis
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("%w: parse genesis: %v", errs.ErrInvalidMessage, err)
	}
	if len(g.Validators) == 0 {
		return nil, fmt.Errorf("%w: genesis has no validators", errs.ErrInvalidMessage)
	}
	return &g, nil
}

// Save writes g to path as indented JSON, for `init-genesis`.
func Save(path string, g *Genesis) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal genesis: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// New builds a ready-to-save genesis document for validators at the
// current time, using DefaultConsensusParams.
func New(validators []common.Address, gasLimit uint64, extra []byte) *Genesis {
	return &Genesis{
		Timestamp:  uint64(time.Now().Unix()),
		ExtraData:  extra,
		GasLimit:   gasLimit,
		Validators: validators,
		Consensus:  DefaultConsensusParams(),
	}
}

// Hash returns the Keccak256 content hash of the genesis document's
// JSON encoding. The node does not compare it against anything at
// startup.
func (g *Genesis) Hash() (common.Hash, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(data), nil
}

// Block assembles the height-0 block this genesis document produces:
// no parent, no transactions, proposer is the zero address (genesis is
// agreed out-of-band, not voted on).
func (g *Genesis) Block() *block.Block {
	return &block.Block{
		Header: &block.Header{
			Height:   0,
			GasLimit: g.GasLimit,
			Time:     int64(g.Timestamp),
			Extra:    g.ExtraData,
		},
	}
}
