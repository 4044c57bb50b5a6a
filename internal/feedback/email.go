package feedback

import (
	"regexp"
	"strings"
)

// atext is the set of characters allowed in an unquoted local part.
const atext = "!#$%&'*+\\-/=?^_`{|}~a-zA-Z0-9"

const (
	maxLocalPartLength = 64
	ipv4Octet          = `(25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)`
)

var emailPattern = regexp.MustCompile(
	`^[` + atext + `]{1,64}(\.[` + atext + `]*)*` +
		`@` +
		`(\[` + ipv4Octet + `(\.` + ipv4Octet + `){3}\]` +
		`|[a-zA-Z0-9-]{1,63}(\.[a-zA-Z0-9-]{2,63})+)$`,
)

// ValidEmail reports whether email would be accepted as a requester address
// by the ticketing API.
func ValidEmail(email string) bool {
	at := strings.IndexByte(email, '@')
	if at < 1 || at > maxLocalPartLength {
		return false
	}
	return emailPattern.MatchString(email)
}
