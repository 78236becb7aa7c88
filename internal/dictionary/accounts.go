package dictionary

// AccountDef labels one chart-of-accounts number the exporter books to.
// The set is curated for an SKR03-style chart; the concrete numbers come
// from configuration, these are the defaults and their display labels.
type AccountDef struct {
	Number   string `json:"number"`
	Label    string `json:"label"`
	Kind     string `json:"kind"`
	Reserved bool   `json:"reserved"`
}

var curated = []AccountDef{
	{Number: "990", Label: "Passive Rechnungsabgrenzung (pRAP)", Kind: "clearing", Reserved: true},
	{Number: "1201", Label: "Stripe Transit", Kind: "transit", Reserved: true},
	{Number: "1360", Label: "Bank", Kind: "bank"},
	{Number: "70025", Label: "Payment Fees", Kind: "expense"},
	{Number: "8400", Label: "Erloese 19% USt", Kind: "revenue"},
	{Number: "8336", Label: "Erloese Reverse Charge EU", Kind: "revenue"},
	{Number: "8338", Label: "Erloese Drittland", Kind: "revenue"},
	{Number: "10000", Label: "Sammel-Debitor", Kind: "customer"},
}

// Accounts returns the curated chart with stable ordering.
func Accounts() []AccountDef {
	out := make([]AccountDef, len(curated))
	copy(out, curated)
	return out
}

// Lookup resolves the label for an account number, if curated.
func Lookup(number string) (AccountDef, bool) {
	for _, a := range curated {
		if a.Number == number {
			return a, true
		}
	}
	return AccountDef{}, false
}
