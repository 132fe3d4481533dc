package db

// timeLayout is how timestamps are written so SQLite date functions can read them.
const timeLayout = "2006-01-02 15:04:05"

// Contribution scopes stored in the contributions table.
const (
	scopeUse    = "use"
	scopeDemand = "demand"
	scopeAll    = "all"
)
