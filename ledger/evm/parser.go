package evm

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"

	"github.com/mintworks/launchpadd/launch"
	"github.com/mintworks/launchpadd/ledger"
)

// Parser decodes raw EVM logs into typed ledger events. Each launchpad
// event is matched by its topic hash; everything else with a four-topic
// ERC-721 Transfer signature is decoded as a transfer.
type Parser struct {
	launchpad     abi.ABI
	transferTopic ethcommon.Hash
	logger        zerolog.Logger
}

// NewParser builds a parser from the embedded ABIs.
func NewParser(logger zerolog.Logger) (*Parser, error) {
	lp, err := parseLaunchpadABI()
	if err != nil {
		return nil, err
	}
	nft, err := parseERC721ABI()
	if err != nil {
		return nil, err
	}
	return &Parser{
		launchpad:     lp,
		transferTopic: nft.Events["Transfer"].ID,
		logger:        logger.With().Str("component", "evm_event_parser").Logger(),
	}, nil
}

// Parse decodes one log. It returns (nil, nil) for logs the launchpad does
// not care about, and an error for logs that match a known topic but fail
// to decode. blockTime is the containing block's unix timestamp, which the
// raw log does not carry; callers without one pass zero.
func (p *Parser) Parse(log types.Log, blockTime int64) (ledger.Event, error) {
	if len(log.Topics) == 0 {
		return nil, nil
	}

	meta := ledger.EventMeta{
		BlockNumber: log.BlockNumber,
		BlockTime:   blockTime,
		TxHash:      log.TxHash,
		LogIndex:    log.Index,
	}

	topic := log.Topics[0]
	switch topic {
	case p.launchpad.Events["LaunchCreated"].ID:
		return p.parseLaunchCreated(log, meta)
	case p.launchpad.Events["PhaseConfigured"].ID:
		return p.parsePhaseConfigured(log, meta)
	case p.launchpad.Events["LaunchStatusChanged"].ID:
		return p.parseLaunchStatusChanged(log, meta)
	case p.launchpad.Events["WhitelistUpdated"].ID:
		return p.parseWhitelistUpdated(log, meta)
	case p.launchpad.Events["ItemPurchased"].ID:
		return p.parseItemPurchased(log, meta)
	case p.transferTopic:
		// ERC-20 transfers share this topic but carry only three topics;
		// ERC-721 indexes the token ID as the fourth.
		if len(log.Topics) != 4 {
			return nil, nil
		}
		return ledger.Transfer{
			EventMeta:  meta,
			Collection: log.Address,
			From:       ethcommon.BytesToAddress(log.Topics[1].Bytes()),
			To:         ethcommon.BytesToAddress(log.Topics[2].Bytes()),
			TokenID:    new(big.Int).SetBytes(log.Topics[3].Bytes()).Uint64(),
		}, nil
	default:
		return nil, nil
	}
}

func (p *Parser) parseLaunchCreated(log types.Log, meta ledger.EventMeta) (ledger.Event, error) {
	if len(log.Topics) != 4 {
		return nil, fmt.Errorf("LaunchCreated expects 4 topics, got %d", len(log.Topics))
	}
	return ledger.LaunchCreated{
		EventMeta:  meta,
		LaunchID:   new(big.Int).SetBytes(log.Topics[1].Bytes()).Uint64(),
		Collection: ethcommon.BytesToAddress(log.Topics[2].Bytes()),
		Creator:    ethcommon.BytesToAddress(log.Topics[3].Bytes()),
	}, nil
}

func (p *Parser) parsePhaseConfigured(log types.Log, meta ledger.EventMeta) (ledger.Event, error) {
	if len(log.Topics) != 2 {
		return nil, fmt.Errorf("PhaseConfigured expects 2 topics, got %d", len(log.Topics))
	}
	var out struct {
		Phase        uint8
		Price        *big.Int
		StartTime    *big.Int
		EndTime      *big.Int
		MaxPerWallet *big.Int
		MaxSupply    *big.Int
	}
	if err := p.launchpad.UnpackIntoInterface(&out, "PhaseConfigured", log.Data); err != nil {
		return nil, fmt.Errorf("failed to decode PhaseConfigured data: %w", err)
	}
	phase, err := phaseFromUint8(out.Phase)
	if err != nil {
		return nil, err
	}
	return ledger.PhaseConfigured{
		EventMeta:    meta,
		LaunchID:     new(big.Int).SetBytes(log.Topics[1].Bytes()).Uint64(),
		Phase:        phase,
		Price:        out.Price,
		StartTime:    out.StartTime.Int64(),
		EndTime:      out.EndTime.Int64(),
		MaxPerWallet: out.MaxPerWallet.Uint64(),
		MaxSupply:    out.MaxSupply.Uint64(),
	}, nil
}

func (p *Parser) parseLaunchStatusChanged(log types.Log, meta ledger.EventMeta) (ledger.Event, error) {
	if len(log.Topics) != 2 {
		return nil, fmt.Errorf("LaunchStatusChanged expects 2 topics, got %d", len(log.Topics))
	}
	var out struct {
		NewStatus uint8
	}
	if err := p.launchpad.UnpackIntoInterface(&out, "LaunchStatusChanged", log.Data); err != nil {
		return nil, fmt.Errorf("failed to decode LaunchStatusChanged data: %w", err)
	}
	status, err := statusFromUint8(out.NewStatus)
	if err != nil {
		return nil, err
	}
	return ledger.LaunchStatusChanged{
		EventMeta: meta,
		LaunchID:  new(big.Int).SetBytes(log.Topics[1].Bytes()).Uint64(),
		NewStatus: status,
	}, nil
}

func (p *Parser) parseWhitelistUpdated(log types.Log, meta ledger.EventMeta) (ledger.Event, error) {
	if len(log.Topics) != 2 {
		return nil, fmt.Errorf("WhitelistUpdated expects 2 topics, got %d", len(log.Topics))
	}
	var out struct {
		Phase   uint8
		Account ethcommon.Address
		Allowed bool
	}
	if err := p.launchpad.UnpackIntoInterface(&out, "WhitelistUpdated", log.Data); err != nil {
		return nil, fmt.Errorf("failed to decode WhitelistUpdated data: %w", err)
	}
	phase, err := phaseFromUint8(out.Phase)
	if err != nil {
		return nil, err
	}
	return ledger.WhitelistUpdated{
		EventMeta: meta,
		LaunchID:  new(big.Int).SetBytes(log.Topics[1].Bytes()).Uint64(),
		Phase:     phase,
		Account:   out.Account,
		Allowed:   out.Allowed,
	}, nil
}

func (p *Parser) parseItemPurchased(log types.Log, meta ledger.EventMeta) (ledger.Event, error) {
	if len(log.Topics) != 3 {
		return nil, fmt.Errorf("ItemPurchased expects 3 topics, got %d", len(log.Topics))
	}
	var out struct {
		TokenId *big.Int
		Phase   uint8
		Price   *big.Int
	}
	if err := p.launchpad.UnpackIntoInterface(&out, "ItemPurchased", log.Data); err != nil {
		return nil, fmt.Errorf("failed to decode ItemPurchased data: %w", err)
	}
	phase, err := phaseFromUint8(out.Phase)
	if err != nil {
		return nil, err
	}
	return ledger.ItemPurchased{
		EventMeta: meta,
		LaunchID:  new(big.Int).SetBytes(log.Topics[1].Bytes()).Uint64(),
		Buyer:     ethcommon.BytesToAddress(log.Topics[2].Bytes()),
		TokenID:   out.TokenId.Uint64(),
		Phase:     phase,
		Price:     out.Price,
	}, nil
}

// Topics returns the launchpad topic hashes used for log filtering.
func (p *Parser) Topics() []ethcommon.Hash {
	return []ethcommon.Hash{
		p.launchpad.Events["LaunchCreated"].ID,
		p.launchpad.Events["PhaseConfigured"].ID,
		p.launchpad.Events["LaunchStatusChanged"].ID,
		p.launchpad.Events["WhitelistUpdated"].ID,
		p.launchpad.Events["ItemPurchased"].ID,
	}
}

// TransferTopic returns the ERC-721 Transfer topic hash.
func (p *Parser) TransferTopic() ethcommon.Hash {
	return p.transferTopic
}

// phaseFromUint8 maps the contract's phase enum to the domain type. The
// numbering matches the contract: 0 none, 1 presale, 2 whitelist, 3 public.
func phaseFromUint8(v uint8) (launch.Phase, error) {
	if v > uint8(launch.PhasePublic) {
		return launch.PhaseNone, fmt.Errorf("unknown phase value %d", v)
	}
	return launch.Phase(v), nil
}

// statusFromUint8 maps the contract's status enum: 0 pending, 1 active,
// 2 completed, 3 cancelled.
func statusFromUint8(v uint8) (launch.Status, error) {
	if v > uint8(launch.StatusCancelled) {
		return launch.StatusPending, fmt.Errorf("unknown status value %d", v)
	}
	return launch.Status(v), nil
}
