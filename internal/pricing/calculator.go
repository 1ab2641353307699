// Package pricing derives the order's price breakdown.
package pricing

import (
	"govdoc/pkg/domain"

	"github.com/shopspring/decimal"
)

// Compute derives the price breakdown from the session's commercial inputs:
// total = base + Σ(optionPrice × quantity) + delivery − discount.
// Pure and deterministic; the result is a view, never a source of truth.
func Compute(base decimal.Decimal, options []domain.SelectedOption, delivery, discount decimal.Decimal, currency string) domain.PriceBreakdown {
	optionsPrice := decimal.Zero
	for _, opt := range options {
		if opt.Quantity <= 0 {
			continue
		}
		optionsPrice = optionsPrice.Add(opt.Price.Mul(decimal.NewFromInt(int64(opt.Quantity))))
	}

	total := base.Add(optionsPrice).Add(delivery).Sub(discount)

	return domain.PriceBreakdown{
		BasePrice:      base,
		OptionsPrice:   optionsPrice,
		DeliveryPrice:  delivery,
		DiscountAmount: discount,
		TotalPrice:     total,
		Currency:       currency,
	}
}

// ForSession recomputes the breakdown for a wizard session.
func ForSession(s *domain.WizardSession) domain.PriceBreakdown {
	return Compute(s.BasePrice, s.SelectedOptions, s.Delivery.Price, s.DiscountAmount, s.Currency)
}
