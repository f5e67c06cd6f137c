package dynamo

// Attribute names of the dispatches table.
const (
	keyDispatchID = "dispatch_id"
	fieldStatus   = "status"
	fieldError    = "error"
	fieldUpdated  = "updated_at"
	fieldExpires  = "expires_at"
)
