package archive

import "strings"

// DefaultAllMail is the archive folder name assumed when discovery
// finds nothing. It may be wrong for some locales; downstream code
// treats a failing Select as folder-not-found.
const DefaultAllMail = "[Gmail]/All Mail"

// attrAll is the special-use attribute Gmail reports on the all-mail
// mailbox regardless of its localized display name.
const attrAll = `\All`

// allMailNames are localized display names the all-mail mailbox is
// known to carry when the server does not report special-use
// attributes.
var allMailNames = []string{
	"All Mail",
	"Tous les messages",
	"Todos los mensajes",
}

// ResolveAllMail picks the mailbox representing the full archive of
// all messages. It prefers the provider-reported \All attribute,
// falls back to known localized names, and finally to DefaultAllMail.
// It never fails.
func ResolveAllMail(boxes []Mailbox) string {
	for _, b := range boxes {
		for _, attr := range b.Attrs {
			if attr == attrAll {
				return b.Name
			}
		}
	}

	for _, b := range boxes {
		for _, name := range allMailNames {
			if strings.Contains(b.Name, name) {
				return b.Name
			}
		}
	}

	return DefaultAllMail
}
