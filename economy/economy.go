package economy

import (
	"errors"
	"fmt"

	"github.com/kasuganosora/guildsync/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Economy is the external ledger collaborator. Withdraw and Deposit return
// false when the operation is refused (insufficient balance); an error means
// the ledger itself was unreachable. Treasury operations treat the ledger
// call and the treasury adjustment as one unit: if the ledger call fails or
// refuses, no guild state changes.
type Economy interface {
	GetBalance(playerID string) (int64, error)
	Withdraw(playerID string, amount int64) (bool, error)
	Deposit(playerID string, amount int64) (bool, error)
}

// WalletEconomy implements Economy on the shared wallet table.
type WalletEconomy struct {
	db *gorm.DB
}

// NewWalletEconomy creates a WalletEconomy on the given database handle.
func NewWalletEconomy(db *gorm.DB) *WalletEconomy {
	return &WalletEconomy{db: db}
}

func (e *WalletEconomy) GetBalance(playerID string) (int64, error) {
	var w model.Wallet
	err := e.db.First(&w, "player_id = ?", playerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("economy: get balance: %w", err)
	}
	return w.Balance, nil
}

// Withdraw debits the player's wallet. The balance guard runs inside the
// UPDATE so concurrent debits cannot overdraw.
func (e *WalletEconomy) Withdraw(playerID string, amount int64) (bool, error) {
	if amount <= 0 {
		return false, nil
	}
	res := e.db.Model(&model.Wallet{}).
		Where("player_id = ? AND balance >= ?", playerID, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return false, fmt.Errorf("economy: withdraw: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// Deposit credits the player's wallet, creating it if absent.
func (e *WalletEconomy) Deposit(playerID string, amount int64) (bool, error) {
	if amount <= 0 {
		return false, nil
	}
	err := e.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "player_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"balance": gorm.Expr("balance + ?", amount),
		}),
	}).Create(&model.Wallet{PlayerID: playerID, Balance: amount}).Error
	if err != nil {
		return false, fmt.Errorf("economy: deposit: %w", err)
	}
	return true, nil
}
