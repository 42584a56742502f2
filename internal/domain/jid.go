package domain

import "strings"

// WhatsApp JID suffixes used by the transport.
const (
	SuffixUser  = "@s.whatsapp.net"
	SuffixGroup = "@g.us"
)

// UserID derives the transcript key from a raw sender address by stripping
// transport suffixes. The same logical user must always normalize to the
// same identifier or conversation state fragments silently, so both the
// full JID and the bare number map to the bare number.
func UserID(jid string) string {
	id := strings.TrimSuffix(jid, SuffixUser)
	return strings.TrimSuffix(id, SuffixGroup)
}

// Recipient normalizes an outbound address to the transport's required
// form. Already-suffixed addresses pass through unchanged, so the
// operation is idempotent.
func Recipient(addr string) string {
	if strings.HasSuffix(addr, SuffixUser) || strings.HasSuffix(addr, SuffixGroup) {
		return addr
	}
	return addr + SuffixUser
}
