// Package evm implements the ledger client against an EVM chain hosting the
// launchpad contract, using go-ethereum's RPC client directly. ABI decode
// happens here and nowhere else.
package evm

import (
	"context"
	"crypto/ecdsa"
	stderrors "errors"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"

	"github.com/mintworks/launchpadd/errors"
	"github.com/mintworks/launchpadd/launch"
	"github.com/mintworks/launchpadd/ledger"
)

// receiptPollInterval is how often submitted transactions are polled for
// inclusion.
const receiptPollInterval = 2 * time.Second

// Client talks to the launchpad contract over JSON-RPC. It implements
// ledger.Client. The signing key is optional; without one the client is
// read-only and write calls fail with a validation error.
type Client struct {
	eth      *ethclient.Client
	contract ethcommon.Address
	lpABI    abi.ABI
	nftABI   abi.ABI
	parser   *Parser
	key      *ecdsa.PrivateKey
	from     ethcommon.Address
	chainID  *big.Int
	logger   zerolog.Logger
}

var _ ledger.Client = (*Client)(nil)

// NewClient dials the RPC endpoint and prepares the contract ABIs.
// privateKeyHex may be empty for read-only use.
func NewClient(ctx context.Context, rpcURL, contractAddr, privateKeyHex string, logger zerolog.Logger) (*Client, error) {
	if !ethcommon.IsHexAddress(contractAddr) {
		return nil, errors.Newf(errors.CodeValidation, "invalid launchpad contract address %q", contractAddr)
	}

	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeRPC, "failed to dial ledger RPC")
	}

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeRPC, "failed to fetch chain ID")
	}

	lpABI, err := parseLaunchpadABI()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to parse launchpad ABI")
	}
	nftABI, err := parseERC721ABI()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to parse collection ABI")
	}
	parser, err := NewParser(logger)
	if err != nil {
		return nil, err
	}

	c := &Client{
		eth:      eth,
		contract: ethcommon.HexToAddress(contractAddr),
		lpABI:    lpABI,
		nftABI:   nftABI,
		parser:   parser,
		chainID:  chainID,
		logger:   logger.With().Str("component", "evm_ledger_client").Logger(),
	}

	if privateKeyHex != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeValidation, "invalid signing key")
		}
		c.key = key
		c.from = crypto.PubkeyToAddress(key.PublicKey)
	}

	return c, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

// SignerAddress returns the address of the configured signing key, or the
// zero address for a read-only client.
func (c *Client) SignerAddress() ethcommon.Address {
	return c.from
}

func (c *Client) CreateLaunch(ctx context.Context, params ledger.CreateLaunchParams) (uint64, ledger.TxHandle, error) {
	if params.Name == "" || params.Symbol == "" {
		return 0, ledger.TxHandle{}, errors.New(errors.CodeValidation, "launch name and symbol are required")
	}
	if params.MaxSupply == 0 {
		return 0, ledger.TxHandle{}, errors.New(errors.CodeValidation, "launch max supply must be positive")
	}

	handle, err := c.submit(ctx, nil, "createLaunch",
		params.Name, params.Symbol, params.Description, params.ImageURI,
		new(big.Int).SetUint64(params.MaxSupply), params.AutoProgress)
	if err != nil {
		return 0, ledger.TxHandle{}, err
	}

	// The assigned launch ID only exists once the creation is mined; read
	// it back from the LaunchCreated log in the receipt.
	receipt, err := c.waitReceipt(ctx, handle.Hash)
	if err != nil {
		return 0, handle, err
	}
	if receipt.Status == ethtypes.ReceiptStatusFailed {
		return 0, handle, errors.New(errors.CodeLedger, "launch creation reverted")
	}

	created := c.lpABI.Events["LaunchCreated"].ID
	for _, lg := range receipt.Logs {
		if len(lg.Topics) > 0 && lg.Topics[0] == created {
			// Only the launch ID is read here; no block timestamp needed.
			ev, perr := c.parser.Parse(*lg, 0)
			if perr != nil {
				continue
			}
			if lc, ok := ev.(ledger.LaunchCreated); ok {
				return lc.LaunchID, handle, nil
			}
		}
	}
	return 0, handle, errors.New(errors.CodeInternal, "creation receipt carries no LaunchCreated event")
}

func (c *Client) ConfigurePhase(ctx context.Context, launchID uint64, params ledger.PhaseParams) (ledger.TxHandle, error) {
	return c.submit(ctx, nil, "configurePhase",
		new(big.Int).SetUint64(launchID), uint8(params.Phase), params.Price,
		big.NewInt(params.StartTime), big.NewInt(params.EndTime),
		new(big.Int).SetUint64(params.MaxPerWallet), new(big.Int).SetUint64(params.MaxSupply))
}

func (c *Client) StartLaunch(ctx context.Context, launchID uint64) (ledger.TxHandle, error) {
	return c.submit(ctx, nil, "startLaunch", new(big.Int).SetUint64(launchID))
}

func (c *Client) CompleteLaunch(ctx context.Context, launchID uint64) (ledger.TxHandle, error) {
	return c.submit(ctx, nil, "completeLaunch", new(big.Int).SetUint64(launchID))
}

func (c *Client) CancelLaunch(ctx context.Context, launchID uint64) (ledger.TxHandle, error) {
	return c.submit(ctx, nil, "cancelLaunch", new(big.Int).SetUint64(launchID))
}

func (c *Client) Purchase(ctx context.Context, launchID, quantity uint64, payment *big.Int, metadataRef string) (ledger.TxHandle, error) {
	return c.submit(ctx, payment, "purchase",
		new(big.Int).SetUint64(launchID), new(big.Int).SetUint64(quantity), metadataRef)
}

func (c *Client) AddToWhitelist(ctx context.Context, launchID uint64, phase launch.Phase, addrs []ethcommon.Address) (ledger.TxHandle, error) {
	return c.submit(ctx, nil, "addToWhitelist",
		new(big.Int).SetUint64(launchID), uint8(phase), addrs)
}

func (c *Client) RemoveFromWhitelist(ctx context.Context, launchID uint64, phase launch.Phase, addrs []ethcommon.Address) (ledger.TxHandle, error) {
	return c.submit(ctx, nil, "removeFromWhitelist",
		new(big.Int).SetUint64(launchID), uint8(phase), addrs)
}

func (c *Client) GetLaunchInfo(ctx context.Context, launchID uint64) (*ledger.LaunchInfo, error) {
	var out struct {
		Collection   ethcommon.Address
		Creator      ethcommon.Address
		Name         string
		Symbol       string
		Description  string
		ImageUri     string
		MaxSupply    *big.Int
		TotalMinted  *big.Int
		Status       uint8
		CurrentPhase uint8
		AutoProgress bool
	}
	if err := c.call(ctx, c.contract, c.lpABI, &out, "getLaunchInfo", new(big.Int).SetUint64(launchID)); err != nil {
		return nil, err
	}

	status, err := statusFromUint8(out.Status)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "launch info decode")
	}
	phase, err := phaseFromUint8(out.CurrentPhase)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "launch info decode")
	}

	return &ledger.LaunchInfo{
		LaunchID:     launchID,
		Collection:   out.Collection,
		Creator:      out.Creator,
		Name:         out.Name,
		Symbol:       out.Symbol,
		Description:  out.Description,
		ImageURI:     out.ImageUri,
		MaxSupply:    out.MaxSupply.Uint64(),
		TotalMinted:  out.TotalMinted.Uint64(),
		Status:       status,
		CurrentPhase: phase,
		AutoProgress: out.AutoProgress,
	}, nil
}

func (c *Client) GetPhaseConfig(ctx context.Context, launchID uint64, phase launch.Phase) (*launch.PhaseConfiguration, error) {
	var out struct {
		Price        *big.Int
		StartTime    *big.Int
		EndTime      *big.Int
		MaxPerWallet *big.Int
		MaxSupply    *big.Int
		TotalSold    *big.Int
		IsConfigured bool
	}
	if err := c.call(ctx, c.contract, c.lpABI, &out, "getPhaseConfig",
		new(big.Int).SetUint64(launchID), uint8(phase)); err != nil {
		return nil, err
	}

	return &launch.PhaseConfiguration{
		Price:        out.Price,
		StartTime:    out.StartTime.Int64(),
		EndTime:      out.EndTime.Int64(),
		MaxPerWallet: out.MaxPerWallet.Uint64(),
		MaxSupply:    out.MaxSupply.Uint64(),
		TotalSold:    out.TotalSold.Uint64(),
		Configured:   out.IsConfigured,
	}, nil
}

func (c *Client) IsWhitelisted(ctx context.Context, launchID uint64, phase launch.Phase, addr ethcommon.Address) (bool, error) {
	var out bool
	if err := c.call(ctx, c.contract, c.lpABI, &out, "isWhitelisted",
		new(big.Int).SetUint64(launchID), uint8(phase), addr); err != nil {
		return false, err
	}
	return out, nil
}

func (c *Client) GetCollectionInfo(ctx context.Context, collection ethcommon.Address) (*ledger.CollectionInfo, error) {
	var name string
	if err := c.call(ctx, collection, c.nftABI, &name, "name"); err != nil {
		return nil, err
	}
	var symbol string
	if err := c.call(ctx, collection, c.nftABI, &symbol, "symbol"); err != nil {
		return nil, err
	}
	var supply *big.Int
	if err := c.call(ctx, collection, c.nftABI, &supply, "totalSupply"); err != nil {
		return nil, err
	}

	return &ledger.CollectionInfo{
		Name:        name,
		Symbol:      symbol,
		TotalSupply: supply.Uint64(),
	}, nil
}

func (c *Client) LatestBlock(ctx context.Context) (uint64, error) {
	height, err := c.eth.BlockNumber(ctx)
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeRPC, "failed to fetch latest block")
	}
	return height, nil
}

func (c *Client) FilterEvents(ctx context.Context, fromBlock, toBlock uint64) ([]ledger.Event, error) {
	from := new(big.Int).SetUint64(fromBlock)
	to := new(big.Int).SetUint64(toBlock)

	// Launchpad events are scoped to the contract address; Transfer events
	// come from collection contracts discovered lazily, so they are filtered
	// by topic alone.
	launchpadLogs, err := c.eth.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: from,
		ToBlock:   to,
		Addresses: []ethcommon.Address{c.contract},
		Topics:    [][]ethcommon.Hash{c.parser.Topics()},
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeRPC, "failed to filter launchpad logs")
	}

	transferLogs, err := c.eth.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: from,
		ToBlock:   to,
		Topics:    [][]ethcommon.Hash{{c.parser.TransferTopic()}},
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeRPC, "failed to filter transfer logs")
	}

	// Logs do not carry their block's timestamp; fetch each header once per
	// batch so purchase times come from the chain, not the wall clock.
	blockTimes := make(map[uint64]int64)
	blockTime := func(n uint64) (int64, error) {
		if ts, ok := blockTimes[n]; ok {
			return ts, nil
		}
		header, err := c.eth.HeaderByNumber(ctx, new(big.Int).SetUint64(n))
		if err != nil {
			return 0, errors.Wrap(err, errors.CodeRPC, "failed to fetch block header")
		}
		ts := int64(header.Time)
		blockTimes[n] = ts
		return ts, nil
	}

	events := make([]ledger.Event, 0, len(launchpadLogs)+len(transferLogs))
	for _, lg := range append(launchpadLogs, transferLogs...) {
		ts, err := blockTime(lg.BlockNumber)
		if err != nil {
			return nil, err
		}
		ev, perr := c.parser.Parse(lg, ts)
		if perr != nil {
			// A malformed log must never halt the batch.
			c.logger.Warn().
				Err(perr).
				Str("tx_hash", lg.TxHash.Hex()).
				Uint64("block", lg.BlockNumber).
				Msg("skipping undecodable log")
			continue
		}
		if ev != nil {
			events = append(events, ev)
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i].Meta(), events[j].Meta()
		if a.BlockNumber != b.BlockNumber {
			return a.BlockNumber < b.BlockNumber
		}
		return a.LogIndex < b.LogIndex
	})

	return events, nil
}

// call executes a read-only contract call and decodes the result into out.
func (c *Client) call(ctx context.Context, to ethcommon.Address, contractABI abi.ABI, out interface{}, method string, args ...interface{}) error {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "failed to encode call "+method)
	}

	res, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return errors.Wrap(err, errors.CodeRPC, "contract call "+method+" failed")
	}

	if err := contractABI.UnpackIntoInterface(out, method, res); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "failed to decode result of "+method)
	}
	return nil
}

// submit signs and sends a state-changing transaction. Reverts surface
// during gas estimation, before any fee is spent, and are reported as
// ledger errors with the node's reason attached.
func (c *Client) submit(ctx context.Context, value *big.Int, method string, args ...interface{}) (ledger.TxHandle, error) {
	if c.key == nil {
		return ledger.TxHandle{}, errors.New(errors.CodeValidation, "client has no signing key configured")
	}
	if value == nil {
		value = new(big.Int)
	}

	data, err := c.lpABI.Pack(method, args...)
	if err != nil {
		return ledger.TxHandle{}, errors.Wrap(err, errors.CodeInternal, "failed to encode "+method)
	}

	nonce, err := c.eth.PendingNonceAt(ctx, c.from)
	if err != nil {
		return ledger.TxHandle{}, errors.Wrap(err, errors.CodeRPC, "failed to fetch nonce")
	}
	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return ledger.TxHandle{}, errors.Wrap(err, errors.CodeRPC, "failed to fetch gas price")
	}

	gasLimit, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{
		From:  c.from,
		To:    &c.contract,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return ledger.TxHandle{}, errors.Wrap(err, errors.CodeLedger, method+" rejected by ledger")
	}

	tx := ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    nonce,
		To:       &c.contract,
		Value:    value,
		Gas:      gasLimit + gasLimit/5, // headroom over the estimate
		GasPrice: gasPrice,
		Data:     data,
	})

	signed, err := ethtypes.SignTx(tx, ethtypes.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return ledger.TxHandle{}, errors.Wrap(err, errors.CodeInternal, "failed to sign transaction")
	}

	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return ledger.TxHandle{}, errors.Wrap(err, errors.CodeRPC, "failed to send transaction")
	}

	c.logger.Debug().
		Str("method", method).
		Str("tx_hash", signed.Hash().Hex()).
		Msg("transaction submitted")

	return ledger.TxHandle{Hash: signed.Hash()}, nil
}

// waitReceipt polls for a transaction receipt until the context expires.
// A timeout here does not mean the transaction failed; it may still be
// mined and reconciled later.
func (c *Client) waitReceipt(ctx context.Context, hash ethcommon.Hash) (*ethtypes.Receipt, error) {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.eth.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !stderrors.Is(err, ethereum.NotFound) {
			return nil, errors.Wrap(err, errors.CodeRPC, "failed to fetch receipt")
		}

		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), errors.CodeTimeout, "timed out waiting for receipt")
		case <-ticker.C:
		}
	}
}
