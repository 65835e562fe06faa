package domain

// Currency is the only currency this service moves. Multi-currency is a
// non-goal; the column exists so statements and support tooling are explicit.
const Currency = "NGN"

const (
	TypeCredit = "credit"
	TypeDebit  = "debit"
)

const (
	CategoryFunding    = "funding"
	CategoryTransfer   = "transfer"
	CategoryWithdrawal = "withdrawal"
)

const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Pagination bounds for transaction listings.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)
