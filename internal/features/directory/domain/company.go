package domain

import "strings"

// Company is a CRM company record matched to a ledger tenant.
type Company struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Tenant int    `json:"tenant"`
}

// Contact is a person who receives WhatsApp reports for a company.
type Contact struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	WhatsAppNumber string `json:"whatsapp_number"`
	Role           string `json:"role,omitempty"`
}

// CleanPhone strips a phone number down to digits, dropping a leading plus
// sign. Returns the empty string when nothing usable remains.
func CleanPhone(phone string) string {
	var b strings.Builder
	for _, c := range phone {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	return b.String()
}
