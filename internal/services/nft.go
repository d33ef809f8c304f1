package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

const achievementsABI = `[
	{
		"inputs": [
			{"internalType": "address", "name": "to", "type": "address"},
			{"internalType": "uint8", "name": "achievementType", "type": "uint8"},
			{"internalType": "string", "name": "tokenURI", "type": "string"}
		],
		"name": "mintAchievementNFT",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

// NFTService mints achievement tokens through the study-achievements contract.
// One service instance carries the signer; callers receive it explicitly
// rather than reaching for process-wide state.
type NFTService struct {
	client   *ethclient.Client
	contract *bind.BoundContract
	opts     *bind.TransactOpts
}

func NewNFTService(ctx context.Context, rpcURL, contractAddress, minterKeyHex string) (*NFTService, error) {
	if !common.IsHexAddress(contractAddress) {
		return nil, fmt.Errorf("invalid NFT contract address %q", contractAddress)
	}

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial chain RPC: %w", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(minterKeyHex, "0x"))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("invalid minter private key: %w", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to read chain ID: %w", err)
	}

	opts, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to build transactor: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(achievementsABI))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to parse achievements ABI: %w", err)
	}

	contract := bind.NewBoundContract(common.HexToAddress(contractAddress), parsed, client, client, client)

	return &NFTService{
		client:   client,
		contract: contract,
		opts:     opts,
	}, nil
}

// Mint submits mintAchievementNFT and waits for the receipt. The returned hash
// is the mint proof stored on the grant. A context deadline aborts the wait,
// not the transaction: the mint may still land on-chain after a timeout, which
// is why callers must never retry blindly.
func (s *NFTService) Mint(ctx context.Context, walletAddress string, achievementType int, tokenURI string) (string, error) {
	if !common.IsHexAddress(walletAddress) {
		return "", fmt.Errorf("invalid wallet address %q", walletAddress)
	}

	opts := *s.opts
	opts.Context = ctx

	tx, err := s.contract.Transact(&opts, "mintAchievementNFT",
		common.HexToAddress(walletAddress), uint8(achievementType), tokenURI)
	if err != nil {
		return "", fmt.Errorf("mint transaction failed: %w", err)
	}

	receipt, err := bind.WaitMined(ctx, s.client, tx)
	if err != nil {
		return "", fmt.Errorf("waiting for mint receipt of %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return "", fmt.Errorf("mint transaction %s reverted", tx.Hash().Hex())
	}

	return tx.Hash().Hex(), nil
}

func (s *NFTService) Close() {
	s.client.Close()
}
