package valueobject

import (
	"fmt"
	"strings"

	"github.com/ignatzorin/tender-portal/internal/pkg/apperror"
)

const DefaultCurrency = "USD"

type Money struct {
	Amount   float64
	Currency string
}

func NewMoney(amount float64, currency string) (Money, error) {
	if amount < 0 {
		return Money{}, apperror.New(apperror.ErrCodeValidation, "сумма не может быть отрицательной")
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	return Money{Amount: amount, Currency: currency}, nil
}

// NewBudget создаёт бюджет тендера: он обязателен и должен быть положительным.
func NewBudget(amount float64, currency string) (Money, error) {
	if amount <= 0 {
		return Money{}, apperror.New(apperror.ErrCodeValidation, "бюджет тендера обязателен и должен быть положительным")
	}
	return NewMoney(amount, currency)
}

func (m Money) String() string {
	return fmt.Sprintf("%s %.2f", m.Currency, m.Amount)
}
