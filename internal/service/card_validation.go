package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/cardmarket/pkg/cardnum"
	apperrors "github.com/spec-kit/cardmarket/pkg/util"
)

var (
	expirationPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/(\d{2}|\d{4})$`)
	cvvPattern        = regexp.MustCompile(`^\d{3,4}$`)
	minCardPrice      = decimal.NewFromInt(1)
)

// CardInput carries the seller-supplied fields of a listing.
type CardInput struct {
	CardNumber string
	Expiration string
	CVV        string
	Price      decimal.Decimal
}

// normalize trims the input and strips separators from the number.
func (in CardInput) normalize() CardInput {
	in.CardNumber = cardnum.StripCardNumber(in.CardNumber)
	in.Expiration = strings.TrimSpace(in.Expiration)
	in.CVV = strings.TrimSpace(in.CVV)
	return in
}

// validate returns a validation error listing every bad field.
func (in CardInput) validate() error {
	problems := map[string]any{}
	if msg := cardNumberProblem(in.CardNumber); msg != "" {
		problems["card_number"] = msg
	}
	if !expirationPattern.MatchString(in.Expiration) {
		problems["expiration"] = "expiration must be MM/YY or MM/YYYY"
	}
	if !cvvPattern.MatchString(in.CVV) {
		problems["cvv"] = "cvv must be 3 or 4 digits"
	}
	if in.Price.LessThan(minCardPrice) {
		problems["price"] = "price must be at least 1"
	}
	if len(problems) > 0 {
		return apperrors.NewValidationError("invalid card", problems)
	}
	return nil
}

func cardNumberProblem(number string) string {
	switch {
	case !cardnum.IsDigits(number):
		return "card number must contain only digits"
	case len(number) < 8 || len(number) > 19:
		return "card number must be 8 to 19 digits"
	case !cardnum.ValidateLuhn(number):
		return "card number fails checksum"
	}
	return ""
}

// BulkLineError reports one rejected line of a bulk import.
type BulkLineError struct {
	Line   int    `json:"line"`
	Input  string `json:"input"`
	Reason string `json:"reason"`
}

// parseBulkLine reads "number|exp|cvv|price" with "|" or "," separators.
// A missing or unparsable price falls back to 1.
func parseBulkLine(line string) CardInput {
	parts := strings.Split(strings.ReplaceAll(line, ",", "|"), "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	field := func(i int) string {
		if i < len(parts) {
			return parts[i]
		}
		return ""
	}
	price, err := decimal.NewFromString(field(3))
	if err != nil || price.IsZero() {
		price = minCardPrice
	}
	return CardInput{
		CardNumber: field(0),
		Expiration: field(1),
		CVV:        field(2),
		Price:      price,
	}
}

// describe flattens a validation error into one line for bulk reports.
func describe(err error) string {
	domainErr := apperrors.ToDomainError(err)
	if len(domainErr.Details) == 0 {
		return domainErr.Message
	}
	keys := []string{"card_number", "expiration", "cvv", "price"}
	msgs := make([]string, 0, len(domainErr.Details))
	for _, k := range keys {
		if v, ok := domainErr.Details[k]; ok {
			msgs = append(msgs, fmt.Sprint(v))
		}
	}
	if len(msgs) == 0 {
		return domainErr.Message
	}
	return strings.Join(msgs, "; ")
}
