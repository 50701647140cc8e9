package store

import "errors"

// Sentinel errors returned by repository methods to signal well-known failure
// conditions. Callers should use [errors.Is] to match against these values.
var (
	// ErrTypeNotRegistered is returned when an operation names an entity type
	// that has not been registered with the local store.
	ErrTypeNotRegistered = errors.New("entity type is not registered")

	// ErrPendingOpNotFound is returned when a status transition or deletion
	// targets a pending-log sequence number that does not exist.
	ErrPendingOpNotFound = errors.New("pending operation was not found")

	// ErrRecordMissingID is returned when a synced row arriving from the
	// remote store lacks the id field declared by its entity type.
	ErrRecordMissingID = errors.New("record is missing its id field")
)

// Low-level database operation errors. These are returned (or wrapped) by
// repository methods when a SQL-level operation fails before any domain logic
// can be applied.
var (
	// ErrBuildingSQLQuery is returned when constructing a parameterised SQL
	// query fails (e.g. invalid argument count or unsupported type).
	ErrBuildingSQLQuery = errors.New("error building sql query")

	// ErrExecutingQuery is returned when executing a SELECT or similar
	// read-only query against the database fails.
	ErrExecutingQuery = errors.New("error executing sql query")

	// ErrBeginningTransaction is returned when the database driver cannot
	// start a new transaction.
	ErrBeginningTransaction = errors.New("failed to begin transaction")

	// ErrCommitingTransaction is returned when committing an open transaction
	// fails. The transaction is considered rolled back at this point.
	ErrCommitingTransaction = errors.New("failed to commit transaction")

	// ErrScanningRow is returned when scanning column values from a result
	// row fails.
	ErrScanningRow = errors.New("failed to scan row")
)
