package service

import (
	"errors"
	"fmt"

	"questacademy/internal/models"
	"questacademy/internal/repository"
)

var ErrInsufficientTokens = errors.New("insufficient tokens")

// WalletService exposes the earn and spend operations on a user's wallet
type WalletService struct {
	walletRepo *repository.WalletRepository
}

// NewWalletService creates a new wallet service
func NewWalletService(walletRepo *repository.WalletRepository) *WalletService {
	return &WalletService{walletRepo: walletRepo}
}

// Get returns the user's wallet
func (s *WalletService) Get(userID int64) (*models.Wallet, error) {
	return s.walletRepo.GetWallet(userID)
}

// Earn adds tokens to the wallet. Earning also grants XP at a one-to-one
// rate, so spending can never reduce a player's level.
func (s *WalletService) Earn(userID int64, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("earn amount must be positive")
	}
	if err := s.walletRepo.AddToCounter(userID, models.CounterTokens, amount); err != nil {
		return fmt.Errorf("failed to add tokens: %w", err)
	}
	if err := s.walletRepo.AddToCounter(userID, models.CounterXP, amount); err != nil {
		return fmt.Errorf("failed to add xp: %w", err)
	}
	return nil
}

// Spend deducts tokens from the wallet. The balance can never go negative;
// spending more than the balance fails with ErrInsufficientTokens.
func (s *WalletService) Spend(userID int64, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("spend amount must be positive")
	}
	ok, err := s.walletRepo.SpendTokens(userID, amount)
	if err != nil {
		return fmt.Errorf("failed to spend tokens: %w", err)
	}
	if !ok {
		return ErrInsufficientTokens
	}
	return nil
}
