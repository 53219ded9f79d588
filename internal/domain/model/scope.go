package model

// Scope identifies a synchronization boundary: either an organization the
// credential belongs to, or the credential holder's personal account.
type Scope struct {
	Login    string
	Personal bool
}

// String returns the scope's login, the form used in logs and failure reports.
func (s Scope) String() string {
	return s.Login
}
