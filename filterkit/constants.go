package filterkit

const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 1000
)
