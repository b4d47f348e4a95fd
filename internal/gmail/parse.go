package gmail

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/labelsweep/labelsweep/internal/archive"
)

var (
	// * LIST (\HasNoChildren \All) "/" "[Gmail]/All Mail"
	listRe = regexp.MustCompile(`^\* LIST \(([^)]*)\) "[^"]*" (.+)$`)

	// Message-ID: <CABc123@mail.gmail.com> — case-insensitive, the
	// header arrives folded into a FETCH literal.
	msgidRe = regexp.MustCompile(`(?i)Message-ID:\s*<([^>]+)>`)

	// * 12 FETCH (X-GM-LABELS ("\\Inbox" "Receipts" OldLabel) UID 99)
	gmLabelsRe = regexp.MustCompile(`X-GM-LABELS \(([^)]*)\)`)
)

// parseListLine extracts one mailbox from a LIST response line.
func parseListLine(line string) (archive.Mailbox, bool) {
	m := listRe.FindStringSubmatch(line)
	if m == nil {
		return archive.Mailbox{}, false
	}
	name := strings.TrimSpace(m[2])
	name = strings.Trim(name, `"`)
	if name == "" {
		return archive.Mailbox{}, false
	}
	return archive.Mailbox{Name: name, Attrs: strings.Fields(m[1])}, true
}

// parseMessageID pulls the stable identifier out of a header fetch
// response, angle brackets stripped.
func parseMessageID(resp string) (string, bool) {
	m := msgidRe.FindStringSubmatch(resp)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// parseLabels extracts the label list from an X-GM-LABELS fetch
// response. Labels containing spaces arrive quoted; system labels come
// as backslash-escaped atoms like "\\Inbox".
func parseLabels(resp string) []string {
	m := gmLabelsRe.FindStringSubmatch(resp)
	if m == nil {
		return nil
	}
	return splitLabels(m[1])
}

// splitLabels tokenizes the inside of an X-GM-LABELS parenthesized
// list: space-separated atoms, with quoted strings kept whole.
func splitLabels(s string) []string {
	var labels []string
	for i := 0; i < len(s); {
		switch s[i] {
		case ' ':
			i++
		case '"':
			end := strings.IndexByte(s[i+1:], '"')
			if end < 0 {
				labels = append(labels, unescapeLabel(s[i+1:]))
				return labels
			}
			labels = append(labels, unescapeLabel(s[i+1:i+1+end]))
			i += end + 2
		default:
			end := strings.IndexByte(s[i:], ' ')
			if end < 0 {
				labels = append(labels, unescapeLabel(s[i:]))
				return labels
			}
			labels = append(labels, unescapeLabel(s[i:i+end]))
			i += end + 1
		}
	}
	return labels
}

func unescapeLabel(s string) string {
	return strings.ReplaceAll(s, `\\`, `\`)
}

// searchLabel rewrites a label name for use in a Gmail search query,
// where spaces act as term separators: "Old Receipts" must be searched
// as label:Old-Receipts.
func searchLabel(label string) string {
	return strings.ReplaceAll(label, " ", "-")
}

// isAuthError reports whether err is a rejected login rather than a
// transport failure. Gmail answers a bad app password with
// "NO [AUTHENTICATIONFAILED] Invalid credentials (Failure)".
func isAuthError(err error) bool {
	msg := strings.ToUpper(err.Error())
	return strings.Contains(msg, "AUTHENTICATIONFAILED") ||
		strings.Contains(msg, "INVALID CREDENTIALS")
}

// joinUIDs renders a UID set for a STORE command.
func joinUIDs(uids []archive.UID) string {
	parts := make([]string, len(uids))
	for i, uid := range uids {
		parts[i] = strconv.FormatUint(uint64(uid), 10)
	}
	return strings.Join(parts, ",")
}
