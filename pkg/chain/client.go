// Package chain submits distribution transactions to an EVM chain.
package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Sentinel errors for chain operations
var (
	ErrInvalidPrivateKey = errors.New("invalid private key")
	ErrZeroBatchSender   = errors.New("batch sender must not be the zero address")
	ErrReverted          = errors.New("transaction reverted")
	ErrSimulationFailed  = errors.New("simulation failed")
)

// gasBufferPercent is added on top of every gas estimate
const gasBufferPercent = 20

// Backend is the subset of ethclient.Client the distributor needs
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

// Dial connects to an Ethereum JSON-RPC endpoint
func Dial(ctx context.Context, rpcURL string) (*ethclient.Client, error) {
	return ethclient.DialContext(ctx, rpcURL)
}

// ParsePrivateKey parses a hex private key (with or without 0x prefix) and derives its address
func ParsePrivateKey(v string) (*ecdsa.PrivateKey, common.Address, error) {
	v = strings.TrimPrefix(strings.TrimSpace(v), "0x")
	key, err := crypto.HexToECDSA(v)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("%w: %w", ErrInvalidPrivateKey, err)
	}
	return key, crypto.PubkeyToAddress(key.PublicKey), nil
}

// Client signs and submits token approvals and batch sends from a single account
type Client struct {
	backend     Backend
	key         *ecdsa.PrivateKey
	sender      common.Address
	chainID     *big.Int
	batchSender common.Address
}

// NewClient creates a chain client sending from key's account to the batch-sender contract
func NewClient(ctx context.Context, backend Backend, key *ecdsa.PrivateKey, batchSender common.Address) (*Client, error) {
	if key == nil {
		return nil, ErrInvalidPrivateKey
	}
	if batchSender == (common.Address{}) {
		return nil, ErrZeroBatchSender
	}
	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("get chain id: %w", err)
	}
	return &Client{
		backend:     backend,
		key:         key,
		sender:      crypto.PubkeyToAddress(key.PublicKey),
		chainID:     chainID,
		batchSender: batchSender,
	}, nil
}

// Sender returns the account that signs every transaction
func (c *Client) Sender() common.Address {
	return c.sender
}

// Allowance returns the sender's token allowance to the batch-sender contract
func (c *Client) Allowance(ctx context.Context, token common.Address) (*big.Int, error) {
	data, err := ERC20ABI.Pack("allowance", c.sender, c.batchSender)
	if err != nil {
		return nil, fmt.Errorf("pack allowance: %w", err)
	}

	result, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call allowance: %w", err)
	}

	out, err := ERC20ABI.Unpack("allowance", result)
	if err != nil {
		return nil, fmt.Errorf("unpack allowance: %w", err)
	}
	allowance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unpack allowance: unexpected type %T", out[0])
	}
	return allowance, nil
}

// Approve sets the batch-sender contract's allowance to amount and waits for confirmation
func (c *Client) Approve(ctx context.Context, token common.Address, amount *big.Int) (common.Hash, error) {
	data, err := ERC20ABI.Pack("approve", c.batchSender, amount)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack approve: %w", err)
	}
	return c.transact(ctx, token, data)
}

// SendBatch submits sendAndEmit for one batch and waits for confirmation
func (c *Client) SendBatch(ctx context.Context, token common.Address, recipients []common.Address, amounts []*big.Int, typeID *big.Int) (common.Hash, error) {
	data, err := BatchSenderABI.Pack("sendAndEmit", token, recipients, amounts, typeID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack sendAndEmit: %w", err)
	}
	return c.transact(ctx, c.batchSender, data)
}

// SimulateBatch executes sendAndEmit as an eth_call, changing no state
func (c *Client) SimulateBatch(ctx context.Context, token common.Address, recipients []common.Address, amounts []*big.Int, typeID *big.Int) error {
	data, err := BatchSenderABI.Pack("sendAndEmit", token, recipients, amounts, typeID)
	if err != nil {
		return fmt.Errorf("pack sendAndEmit: %w", err)
	}

	_, err = c.backend.CallContract(ctx, ethereum.CallMsg{
		From: c.sender,
		To:   &c.batchSender,
		Data: data,
	}, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSimulationFailed, err)
	}
	return nil
}

// transact signs an EIP-1559 transaction to `to`, sends it and waits for a successful receipt
func (c *Client) transact(ctx context.Context, to common.Address, data []byte) (common.Hash, error) {
	nonce, err := c.backend.PendingNonceAt(ctx, c.sender)
	if err != nil {
		return common.Hash{}, fmt.Errorf("get nonce: %w", err)
	}

	tipCap, err := c.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("get gas tip cap: %w", err)
	}

	head, err := c.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, fmt.Errorf("get latest header: %w", err)
	}
	feeCap := new(big.Int).Add(tipCap, new(big.Int).Mul(baseFee(head), big.NewInt(2)))

	gasLimit, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:      c.sender,
		To:        &to,
		GasFeeCap: feeCap,
		GasTipCap: tipCap,
		Data:      data,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("estimate gas: %w", err)
	}
	gasLimit = gasLimit * (100 + gasBufferPercent) / 100

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   c.chainID,
		Nonce:     nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       gasLimit,
		To:        &to,
		Value:     big.NewInt(0),
		Data:      data,
	})

	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign transaction: %w", err)
	}

	if err := c.backend.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, fmt.Errorf("send transaction: %w", err)
	}

	receipt, err := bind.WaitMined(ctx, c.backend, signedTx)
	if err != nil {
		return signedTx.Hash(), fmt.Errorf("wait for receipt %s: %w", signedTx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return signedTx.Hash(), fmt.Errorf("%w: %s", ErrReverted, signedTx.Hash().Hex())
	}

	return signedTx.Hash(), nil
}

func baseFee(head *types.Header) *big.Int {
	if head == nil || head.BaseFee == nil {
		return big.NewInt(0)
	}
	return head.BaseFee
}
