package email

import (
	"strings"
	"unicode"
)

// DeriveNameFromEmail splits the local part of an email address into a
// first/last name pair for display purposes.
func DeriveNameFromEmail(email string) (string, string) {
	localPart := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		localPart = email[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})

	if len(parts) == 0 {
		return "User", "User"
	}

	first := capitalize(parts[0])
	last := "User"
	if len(parts) > 1 {
		last = capitalize(parts[len(parts)-1])
	}

	return first, last
}

// DeriveTenantSlug produces a deterministic tenant identifier from an email
// domain. "alice@Acme-Corp.example.com" yields "tenant_acme-corp". Used as the
// fallback when the identifier has no directory entry naming a tenant.
func DeriveTenantSlug(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at < 0 || at == len(email)-1 {
		return ""
	}
	domain := strings.ToLower(email[at+1:])
	// First label only: "acme.example.com" and "acme.example.org" map to the
	// same organization.
	if dot := strings.IndexByte(domain, '.'); dot > 0 {
		domain = domain[:dot]
	}
	var b strings.Builder
	for _, r := range domain {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return "tenant_" + b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
