package billing

// Product identifies one purchase flow for fee and wallet lookup.
type Product string

const (
	ProductBill        Product = "bill"
	ProductElectricity Product = "zesa"
	ProductAirtime     Product = "airtime"
)

var walletMenus = map[Product][]string{
	ProductBill:        {"EcoCash", "OneMoney", "Visa/Mastercard"},
	ProductElectricity: {"EcoCash", "OneMoney", "Telecash"},
	ProductAirtime:     {"EcoCash", "OneMoney", "Telecash"},
}

// Wallets returns the wallet menu for a product in display order.
func Wallets(p Product) []string {
	return walletMenus[p]
}

// WalletByChoice resolves a 1-based numeric menu choice to a wallet name.
func WalletByChoice(p Product, choice int) (string, bool) {
	menu := walletMenus[p]
	if choice < 1 || choice > len(menu) {
		return "", false
	}
	return menu[choice-1], true
}
