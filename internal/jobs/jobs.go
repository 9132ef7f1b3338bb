package jobs

// Job types processed by the background worker. Payloads stay minimal
// and ID-based; the worker loads details from the DB.
const (
	TypeWelcomeEmail    = "account.welcome"
	TypeLiveClassNotice = "liveclass.notice"
)

func IsValidType(t string) bool {
	switch t {
	case TypeWelcomeEmail, TypeLiveClassNotice:
		return true
	default:
		return false
	}
}
