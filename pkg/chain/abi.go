package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const erc20ABIJSON = `[{
	"inputs": [{"name": "owner", "type": "address"}, {"name": "spender", "type": "address"}],
	"name": "allowance",
	"outputs": [{"name": "", "type": "uint256"}],
	"stateMutability": "view",
	"type": "function"
}, {
	"inputs": [{"name": "spender", "type": "address"}, {"name": "amount", "type": "uint256"}],
	"name": "approve",
	"outputs": [{"name": "", "type": "bool"}],
	"stateMutability": "nonpayable",
	"type": "function"
}, {
	"inputs": [{"name": "account", "type": "address"}],
	"name": "balanceOf",
	"outputs": [{"name": "", "type": "uint256"}],
	"stateMutability": "view",
	"type": "function"
}]`

const batchSenderABIJSON = `[{
	"inputs": [
		{"name": "token", "type": "address"},
		{"name": "accounts", "type": "address[]"},
		{"name": "amounts", "type": "uint256[]"},
		{"name": "typeId", "type": "uint256"}
	],
	"name": "sendAndEmit",
	"outputs": [],
	"stateMutability": "nonpayable",
	"type": "function"
}]`

// ERC20ABI is the subset of the ERC-20 interface used for allowances
var ERC20ABI = mustParseABI(erc20ABIJSON)

// BatchSenderABI is the batch-sender contract's send-and-emit interface
var BatchSenderABI = mustParseABI(batchSenderABIJSON)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return parsed
}
