package models

// ErrorResponse is the RPC facade error envelope. Code carries the
// sentinel text the desktop shell matches on (e.g.
// needAdminPasswordToModifyHosts); Error is the human-readable message.
type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}
