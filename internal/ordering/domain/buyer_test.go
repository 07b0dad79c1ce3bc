package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuyer_VerifyOrAddPaymentMethod_Dedupe(t *testing.T) {
	now := time.Now().UTC()
	b := NewBuyer("identity-123", "Pepe")

	first := b.VerifyOrAddPaymentMethod("visa", "****4242", "12/28", "tarjeta principal", now)
	assert.Len(t, b.PaymentMethods, 1)

	// Misma huella: no se añade nada y se devuelve el existente.
	again := b.VerifyOrAddPaymentMethod("visa", "****4242", "12/28", "otro alias", now.Add(time.Hour))
	assert.Len(t, b.PaymentMethods, 1)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "tarjeta principal", again.Alias)
}

func TestBuyer_VerifyOrAddPaymentMethod_DistinctFingerprints(t *testing.T) {
	now := time.Now().UTC()
	b := NewBuyer("identity-123", "Pepe")

	b.VerifyOrAddPaymentMethod("visa", "****4242", "12/28", "a", now)
	b.VerifyOrAddPaymentMethod("visa", "****4242", "01/30", "b", now) // otra expiración
	b.VerifyOrAddPaymentMethod("amex", "****4242", "12/28", "c", now) // otro tipo

	assert.Len(t, b.PaymentMethods, 3)
}
