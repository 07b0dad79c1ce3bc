package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PaymentMethod es un método de pago verificado de un comprador. La huella
// (fingerprint) deduplica: re-verificar un método existente es idempotente.
type PaymentMethod struct {
	ID           uuid.UUID `json:"id"`
	CardType     string    `json:"card_type"`
	MaskedNumber string    `json:"masked_number"`
	Expiration   string    `json:"expiration"` // MM/YY
	Alias        string    `json:"alias"`
	CreatedAt    time.Time `json:"created_at"`
}

// Fingerprint identifica el método con independencia del alias.
func (pm PaymentMethod) Fingerprint() string {
	return fmt.Sprintf("%s|%s|%s", pm.CardType, pm.MaskedNumber, pm.Expiration)
}

// Buyer es el agregado de comprador: identidad externa más sus métodos de
// pago verificados.
type Buyer struct {
	ID             uuid.UUID       `json:"id"`
	IdentityGUID   string          `json:"identity_guid"`
	Name           string          `json:"name"`
	PaymentMethods []PaymentMethod `json:"payment_methods"`
}

// NewBuyer crea un comprador sin métodos de pago. El ID se genera en
// proceso: está disponible antes del commit, sin recarga posterior.
func NewBuyer(identityGUID, name string) *Buyer {
	return &Buyer{
		ID:           uuid.New(),
		IdentityGUID: identityGUID,
		Name:         name,
	}
}

// VerifyOrAddPaymentMethod añade el método si no existe uno con la misma
// huella; si existe, devuelve el existente sin tocar nada.
func (b *Buyer) VerifyOrAddPaymentMethod(cardType, maskedNumber, expiration, alias string, now time.Time) PaymentMethod {
	candidate := PaymentMethod{
		CardType:     cardType,
		MaskedNumber: maskedNumber,
		Expiration:   expiration,
	}
	for _, pm := range b.PaymentMethods {
		if pm.Fingerprint() == candidate.Fingerprint() {
			return pm
		}
	}

	candidate.ID = uuid.New()
	candidate.Alias = alias
	candidate.CreatedAt = now.UTC()
	b.PaymentMethods = append(b.PaymentMethods, candidate)
	return candidate
}
