package trustacct

// Transaction types. Credits move client money into the trust account,
// debits move it out.
const (
	TypeCredit = "credit"
	TypeDebit  = "debit"
)

// TxnInput is a caller-built trust-account posting, before sealing.
// Amounts are integer cents; the ledger never handles fractional currency.
type TxnInput struct {
	Type        string `json:"type"`
	AmountCents int64  `json:"amount_cents"`
	Reference   string `json:"reference"` // payment reference or voucher number
	MatterID    string `json:"matter_id"`
}
