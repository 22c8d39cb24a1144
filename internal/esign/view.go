package esign

import "time"

// PublicView is the client-safe contract projection served to anonymous
// link holders. Email send history, the audit trail, attachments, and the
// internal owner are redacted by construction: they are simply never
// copied here.
type PublicView struct {
	ContractID    string `json:"contractId"`
	Title         string `json:"title"`
	Status        string `json:"status"`
	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail"`
	ProviderName  string `json:"providerName"`
	ProviderEmail string `json:"providerEmail"`

	SignedByCustomer *string    `json:"signedByCustomer,omitempty"`
	SignedAtCustomer *time.Time `json:"signedAtCustomer,omitempty"`
	SignedByProvider *string    `json:"signedByProvider,omitempty"`
	SignedAtProvider *time.Time `json:"signedAtProvider,omitempty"`

	ExecutedDate *time.Time `json:"executedDate,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func PublicViewOf(c Contract) PublicView {
	return PublicView{
		ContractID:       c.ContractID,
		Title:            c.Title,
		Status:           c.Status,
		CustomerName:     c.CustomerName,
		CustomerEmail:    c.CustomerEmail,
		ProviderName:     c.ProviderName,
		ProviderEmail:    c.ProviderEmail,
		SignedByCustomer: c.SignedByCustomer,
		SignedAtCustomer: c.SignedAtCustomer,
		SignedByProvider: c.SignedByProvider,
		SignedAtProvider: c.SignedAtProvider,
		ExecutedDate:     c.ExecutedDate,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}

// Signer is the invite-side identity hint disclosed before the OTP gate
// is passed.
type Signer struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Title string `json:"title,omitempty"`
}

func SignerOf(inv Invite) Signer {
	return Signer{Email: inv.Email, Name: inv.Name, Title: inv.Title}
}
