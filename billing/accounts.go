// Package billing holds the fixed lookup tables and arithmetic around the
// simulated products: known accounts, carrier prefixes, wallet menus, fee
// quotes and receipts.
package billing

import "context"

// Account is a known electricity account keyed by meter number.
type Account struct {
	Meter string
	Name  string
	Area  string
}

// AccountStore resolves meter numbers to accounts. Backed by the static
// fixture table by default and by Postgres when a database is configured.
type AccountStore interface {
	Lookup(ctx context.Context, meter string) (*Account, error)
}

// ErrAccountNotFound is returned when a meter number is not known.
var ErrAccountNotFound = errNotFound("billing: account not found")

type errNotFound string

func (e errNotFound) Error() string { return string(e) }

// StaticAccounts is the in-memory fixture implementation.
type StaticAccounts struct {
	accounts map[string]Account
}

// NewStaticAccounts builds the fixture store. With no arguments it is seeded
// with the standard test accounts.
func NewStaticAccounts(accounts ...Account) *StaticAccounts {
	if len(accounts) == 0 {
		accounts = defaultAccounts
	}
	m := make(map[string]Account, len(accounts))
	for _, a := range accounts {
		m[a.Meter] = a
	}
	return &StaticAccounts{accounts: m}
}

// Lookup implements AccountStore.
func (s *StaticAccounts) Lookup(_ context.Context, meter string) (*Account, error) {
	if a, ok := s.accounts[meter]; ok {
		return &a, nil
	}
	return nil, ErrAccountNotFound
}

var defaultAccounts = []Account{
	{Meter: "37148274383", Name: "T. Moyo", Area: "Avondale, Harare"},
	{Meter: "04223962593", Name: "R. Ncube", Area: "Hillside, Bulawayo"},
	{Meter: "58291046172", Name: "C. Chirwa", Area: "Mkoba, Gweru"},
	{Meter: "19045578210", Name: "P. Dube", Area: "Sakubva, Mutare"},
}
