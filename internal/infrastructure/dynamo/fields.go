package dynamo

// Attribute names of the verification codes table.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	attrEmail       = "email"
	attrCodeHash    = "code_hash"
	attrExpiresAt   = "expires_at"
	attrExpiresAtMs = "expires_at_ms"
)
