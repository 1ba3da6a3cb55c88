package server

import (
	"time"

	"github.com/moneywise-app/moneywise/internal/model"
)

// Wire representations. Monetary values are fixed two-decimal strings;
// timestamps are RFC 3339.

type accountDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Balance  string `json:"balance"`
	Currency string `json:"currency"`
}

type transactionDTO struct {
	ID           string `json:"id"`
	AccountID    string `json:"accountId"`
	Date         string `json:"date"`
	Amount       string `json:"amount"`
	Merchant     string `json:"merchant"`
	Category     string `json:"category"`
	BalanceAfter string `json:"balanceAfter"`
	IsAnomaly    bool   `json:"isAnomaly"`
	Description  string `json:"description,omitempty"`
}

type chatMessageDTO struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
}

type chatSessionDTO struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func toAccountDTO(a model.Account) accountDTO {
	return accountDTO{
		ID:       a.ID,
		Name:     a.Name,
		Type:     string(a.Type),
		Balance:  a.Balance.StringFixed(2),
		Currency: a.Currency,
	}
}

func toAccountDTOs(accounts []model.Account) []accountDTO {
	out := make([]accountDTO, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountDTO(a))
	}
	return out
}

func toTransactionDTO(t model.Transaction) transactionDTO {
	return transactionDTO{
		ID:           t.ID,
		AccountID:    t.AccountID,
		Date:         t.Date.UTC().Format(time.RFC3339),
		Amount:       t.Amount.StringFixed(2),
		Merchant:     t.Merchant,
		Category:     t.Category,
		BalanceAfter: t.BalanceAfter.StringFixed(2),
		IsAnomaly:    t.IsAnomaly,
		Description:  t.Description,
	}
}

func toTransactionDTOs(txns []model.Transaction) []transactionDTO {
	out := make([]transactionDTO, 0, len(txns))
	for _, t := range txns {
		out = append(out, toTransactionDTO(t))
	}
	return out
}

func toChatMessageDTO(m model.ChatMessage) chatMessageDTO {
	return chatMessageDTO{
		ID:        m.ID,
		Role:      m.Role,
		Content:   m.Content,
		CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toChatSessionDTOs(sessions []model.ChatSession) []chatSessionDTO {
	out := make([]chatSessionDTO, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, chatSessionDTO{
			ID:        s.ID,
			Title:     s.Title,
			CreatedAt: s.CreatedAt.UTC().Format(time.RFC3339),
			UpdatedAt: s.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}
