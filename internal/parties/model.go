// Package parties manages the vendors purchases are bought from and the
// customers sales are made to.
package parties

import "time"

// Kind names a party table.
type Kind string

const (
	KindVendor   Kind = "vendors"
	KindCustomer Kind = "customers"
)

// Valid reports whether k is a known table.
func (k Kind) Valid() bool {
	return k == KindVendor || k == KindCustomer
}

// Label is the singular display name used in messages.
func (k Kind) Label() string {
	switch k {
	case KindVendor:
		return "vendor"
	case KindCustomer:
		return "customer"
	}
	return string(k)
}

// Party is a vendor or customer row.
type Party struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	GSTIN     string    `json:"gstin"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Input is the create/update payload.
type Input struct {
	Name    string `json:"name" validate:"required,max=160"`
	GSTIN   string `json:"gstin" validate:"omitempty,alphanum,len=15"`
	Phone   string `json:"phone" validate:"max=20"`
	Address string `json:"address" validate:"max=500"`
}
