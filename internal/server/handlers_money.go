package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/moneywise-app/moneywise/internal/httputil"
	"github.com/moneywise-app/moneywise/internal/insight"
	"github.com/moneywise-app/moneywise/internal/model"
	"github.com/moneywise-app/moneywise/internal/storage"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	dashboardRecentCount  = 10
	dashboardWindowMonths = 6
)

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())

	accounts, err := s.store.GetAccountsByUser(r.Context(), userID)
	if err != nil {
		s.logger.Error("failed to load accounts", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"accounts": toAccountDTOs(accounts)})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())

	accountID := r.URL.Query().Get("accountId")
	if accountID == "" {
		httputil.WriteError(w, http.StatusBadRequest, "accountId is required")
		return
	}

	page, err := queryInt(r, "page", 1)
	if err != nil || page < 1 {
		httputil.WriteError(w, http.StatusBadRequest, "page must be a positive integer")
		return
	}
	limit, err := queryInt(r, "limit", defaultPageSize)
	if err != nil || limit < 1 || limit > maxPageSize {
		httputil.WriteError(w, http.StatusBadRequest, "limit must be between 1 and 100")
		return
	}

	account, err := s.store.GetAccount(r.Context(), accountID)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && account.UserID != userID) {
		httputil.WriteError(w, http.StatusNotFound, "account not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to load account", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	txns, total, err := s.store.GetTransactionsByAccount(r.Context(), accountID, limit, (page-1)*limit)
	if err != nil {
		s.logger.Error("failed to load transactions", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"transactions": toTransactionDTOs(txns),
		"page":         page,
		"limit":        limit,
		"total":        total,
	})
}

type moveRequest struct {
	AccountID   string      `json:"accountId"`
	Amount      json.Number `json:"amount"`
	Merchant    string      `json:"merchant"`
	Description string      `json:"description"`
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())

	var req moveRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	merchant := req.Merchant
	if merchant == "" {
		merchant = "Deposit"
	}

	txn, err := s.engine.Deposit(r.Context(), userID, req.AccountID, amount, merchant, req.Description)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"transaction": toTransactionDTO(*txn)})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())

	var req moveRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	merchant := req.Merchant
	if merchant == "" {
		merchant = "Withdrawal"
	}

	txn, err := s.engine.Withdraw(r.Context(), userID, req.AccountID, amount, merchant, req.Description)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"transaction": toTransactionDTO(*txn)})
}

type transferRequest struct {
	FromAccountID  string      `json:"fromAccountId"`
	ToAccountID    string      `json:"toAccountId"`
	RecipientEmail string      `json:"recipientEmail"`
	Amount         json.Number `json:"amount"`
	Description    string      `json:"description"`
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())

	var req transferRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ToAccountID == "" && req.RecipientEmail == "" {
		httputil.WriteError(w, http.StatusBadRequest, "either toAccountId or recipientEmail must be provided")
		return
	}
	if req.ToAccountID != "" && req.RecipientEmail != "" {
		httputil.WriteError(w, http.StatusBadRequest, "toAccountId and recipientEmail are mutually exclusive")
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var result *ledgerTransfer
	if req.ToAccountID != "" {
		res, err := s.engine.TransferByAccount(r.Context(), userID, req.FromAccountID, req.ToAccountID, amount, req.Description, false)
		if err != nil {
			s.writeLedgerError(w, err)
			return
		}
		result = &ledgerTransfer{res.Debit, res.Credit, res.RecipientName}
	} else {
		res, err := s.engine.TransferByRecipient(r.Context(), userID, req.FromAccountID, req.RecipientEmail, amount, req.Description, false)
		if err != nil {
			s.writeLedgerError(w, err)
			return
		}
		result = &ledgerTransfer{res.Debit, res.Credit, res.RecipientName}
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"debit":     toTransactionDTO(result.debit),
		"credit":    toTransactionDTO(result.credit),
		"recipient": result.recipient,
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	ctx := r.Context()

	accounts, err := s.store.GetAccountsByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to load accounts", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	total := decimal.Zero
	for _, a := range accounts {
		total = total.Add(a.Balance)
	}

	recent, err := s.store.GetTransactionsByUserSince(ctx, userID, time.Time{}, dashboardRecentCount)
	if err != nil {
		s.logger.Error("failed to load recent transactions", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	since := time.Now().UTC().AddDate(0, -dashboardWindowMonths, 0)
	window, err := s.store.GetTransactionsByUserSince(ctx, userID, since, 0)
	if err != nil {
		s.logger.Error("failed to load transaction window", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	agg := insight.Aggregate(window)

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"totalBalance":       total.StringFixed(2),
		"accounts":           toAccountDTOs(accounts),
		"recentTransactions": toTransactionDTOs(recent),
		"monthlyBreakdown":   toMonthlyDTOs(agg.Monthly),
		"categoryBreakdown":  toCategoryDTOs(agg.Categories),
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())

	report, err := s.analyzer.Analyze(r.Context(), userID)
	if err != nil {
		s.logger.Error("analysis failed", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "analysis failed")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"summary": map[string]any{
			"id":            report.Summary.ID,
			"period":        report.Summary.Period,
			"startDate":     report.Summary.StartDate.UTC().Format(time.RFC3339),
			"endDate":       report.Summary.EndDate.UTC().Format(time.RFC3339),
			"totalIncome":   report.Summary.TotalIncome.StringFixed(2),
			"totalExpenses": report.Summary.TotalExpenses.StringFixed(2),
			"netChange":     report.Summary.NetChange.StringFixed(2),
			"topCategory":   report.Summary.TopCategory,
			"insights":      report.Summary.Insights,
		},
		"monthlyBreakdown":  toMonthlyDTOs(report.Monthly),
		"categoryBreakdown": toCategoryDTOs(report.Categories),
		"anomalies":         toTransactionDTOs(report.Anomalies),
	})
}

type ledgerTransfer struct {
	debit     model.Transaction
	credit    model.Transaction
	recipient string
}

type monthlyDTO struct {
	Month    string `json:"month"`
	Income   string `json:"income"`
	Expenses string `json:"expenses"`
}

type categoryDTO struct {
	Category string `json:"category"`
	Total    string `json:"total"`
}

func toMonthlyDTOs(monthly []insight.MonthlyBreakdown) []monthlyDTO {
	out := make([]monthlyDTO, 0, len(monthly))
	for _, m := range monthly {
		out = append(out, monthlyDTO{
			Month:    m.Month,
			Income:   m.Income.StringFixed(2),
			Expenses: m.Expenses.StringFixed(2),
		})
	}
	return out
}

func toCategoryDTOs(categories []insight.CategoryBreakdown) []categoryDTO {
	out := make([]categoryDTO, 0, len(categories))
	for _, c := range categories {
		out = append(out, categoryDTO{Category: c.Category, Total: c.Total.StringFixed(2)})
	}
	return out
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

// parseAmount converts a request amount to a decimal rounded to cents.
func parseAmount(n json.Number) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Decimal{}, errors.New("amount is required")
	}
	amount, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Decimal{}, errors.New("invalid amount")
	}
	if !amount.IsPositive() {
		return decimal.Decimal{}, errors.New("amount must be positive")
	}
	return amount.Round(2), nil
}
