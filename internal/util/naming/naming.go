// Package naming derives names for resources the broker creates on behalf of
// users, such as keypairs and auto-created networks.
package naming

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/crypto/ssh"
)

// TenantNamePlaceholder is substituted with the tenancy name in network name templates.
const TenantNamePlaceholder = "{tenant_name}"

// InternalNetwork is the name given to an auto-created internal network.
const InternalNetwork = "portal-internal"

// keypairFingerprintLen is the number of fingerprint hex characters kept in keypair names.
const keypairFingerprintLen = 8

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// SanitizeUsername replaces every run of non-alphanumeric characters with a dash.
func SanitizeUsername(username string) string {
	return nonAlphanumeric.ReplaceAllString(username, "-")
}

// KeyFingerprint returns the hex MD5 digest of the decoded key payload of an
// authorized_keys line, without separators.
func KeyFingerprint(publicKey string) (string, error) {
	key, _, _, _, err := ssh.ParseAuthorizedKey([]byte(publicKey))
	if err != nil {
		return "", fmt.Errorf("failed to parse SSH public key: %w", err)
	}
	return strings.ReplaceAll(strings.TrimPrefix(ssh.FingerprintLegacyMD5(key), "MD5:"), ":", ""), nil
}

// Keypair returns the keypair name for a user and key:
// the sanitized username followed by the first 8 fingerprint characters.
// An unchanged key always maps to the same name; a new key maps to a new one.
func Keypair(username, publicKey string) (string, error) {
	fingerprint, err := KeyFingerprint(publicKey)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s", SanitizeUsername(username), fingerprint[:keypairFingerprintLen]), nil
}

// FromTemplate resolves a network name template for a tenancy.
func FromTemplate(template, tenantName string) string {
	return strings.ReplaceAll(template, TenantNamePlaceholder, tenantName)
}
