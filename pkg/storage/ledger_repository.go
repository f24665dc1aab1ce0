package storage

// LedgerRepository defines the complete set of operations needed to process payment notifications.
// It composes other interfaces to provide a clear boundary for the processor's data access.
type LedgerRepository interface {
	UserReader
	AccountStore
	TransactionStore
}
