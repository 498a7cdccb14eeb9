package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"luxrent/internal/app/policies"
)

type chargeFixture struct {
	ID           string            `json:"id"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Status       string            `json:"status"`
	ReceiptEmail string            `json:"receipt_email"`
	Metadata     map[string]string `json:"metadata"`
}

// loadChargeFixtures reads charges for the in-memory gateway. A missing path or file
// yields an empty gateway.
func loadChargeFixtures(path string) ([]policies.Charge, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read charge fixtures: %w", err)
	}
	var fixtures []chargeFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return nil, fmt.Errorf("decode charge fixtures: %w", err)
	}
	charges := make([]policies.Charge, 0, len(fixtures))
	for i, fx := range fixtures {
		if fx.ID == "" {
			return nil, fmt.Errorf("charge fixture %d: id is required", i)
		}
		status := fx.Status
		if status == "" {
			status = "succeeded"
		}
		charges = append(charges, policies.Charge{
			ReferenceID:  fx.ID,
			AmountMinor:  fx.Amount,
			Currency:     fx.Currency,
			Status:       status,
			ReceiptEmail: fx.ReceiptEmail,
			Metadata:     fx.Metadata,
		})
	}
	return charges, nil
}
