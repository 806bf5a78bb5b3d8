package api

const (
	// PingEndpoint is the endpoint for checking the API status
	PingEndpoint = "/ping"
	// ProtocolEndpoint is the endpoint describing the deployment: protocol
	// identifier and backend scheme.
	ProtocolEndpoint = "/protocol"
	// AccountEndpoint is the endpoint to get the current handle of a
	// principal's running total.
	PrincipalURLParam = "principal"
	AccountEndpoint   = "/accounts/{" + PrincipalURLParam + "}"
	// AccountPlainEndpoint decrypts the principal's running total. It only
	// succeeds when the principal holds a grant on its current handle.
	AccountPlainEndpoint = "/accounts/{" + PrincipalURLParam + "}/plain"
	// IncrementEndpoint and DecrementEndpoint advance a principal's total
	// by an externally encrypted delta.
	IncrementEndpoint = "/accounts/{" + PrincipalURLParam + "}/increment"
	DecrementEndpoint = "/accounts/{" + PrincipalURLParam + "}/decrement"
)
