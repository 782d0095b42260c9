package tor

import (
	"encoding/base32"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/crypto/sha3"
)

const (
	// OnionSuffix is the top-level domain of onion services.
	OnionSuffix = ".onion"

	// onionV3Version is the version byte embedded in v3 addresses.
	onionV3Version = 0x03
)

var (
	onionV3Pattern = regexp.MustCompile(`^[a-z2-7]{56}\.onion$`)
	onionV2Pattern = regexp.MustCompile(`^[a-z2-7]{16}\.onion$`)

	// checksumPrefix is the constant from Tor rend-spec-v3.
	checksumPrefix = []byte(".onion checksum")
)

// IsOnionHost reports whether host (with or without port) is under .onion.
// Subdomains of an onion service count as onion hosts.
func IsOnionHost(host string) bool {
	if h, _, ok := strings.Cut(host, ":"); ok {
		host = h
	}
	return strings.HasSuffix(strings.ToLower(host), OnionSuffix)
}

// IsValidV3Address reports whether address is a v3 onion address with a
// correct version byte and checksum.
func IsValidV3Address(address string) bool {
	address = strings.ToLower(address)
	if !onionV3Pattern.MatchString(address) {
		return false
	}

	decoded, err := base32.StdEncoding.DecodeString(strings.ToUpper(strings.TrimSuffix(address, OnionSuffix)))
	if err != nil || len(decoded) != 35 {
		return false
	}

	// pubkey (32) | checksum (2) | version (1)
	pubkey, checksum, version := decoded[:32], decoded[32:34], decoded[34]
	if version != onionV3Version {
		return false
	}
	want := v3Checksum(pubkey, version)
	return checksum[0] == want[0] && checksum[1] == want[1]
}

// v3Checksum returns the first two bytes of
// SHA3-256(".onion checksum" | pubkey | version).
func v3Checksum(pubkey []byte, version byte) []byte {
	data := make([]byte, 0, len(checksumPrefix)+len(pubkey)+1)
	data = append(data, checksumPrefix...)
	data = append(data, pubkey...)
	data = append(data, version)
	sum := sha3.Sum256(data)
	return sum[:2]
}

// AddressFromPublicKey returns the v3 onion address of an ed25519 public key.
func AddressFromPublicKey(pubkey []byte) (string, error) {
	if len(pubkey) != 32 {
		return "", ErrInvalidOnionAddress
	}
	data := make([]byte, 0, 35)
	data = append(data, pubkey...)
	data = append(data, v3Checksum(pubkey, onionV3Version)...)
	data = append(data, onionV3Version)
	return strings.ToLower(base32.StdEncoding.EncodeToString(data)) + OnionSuffix, nil
}

// CheckOnionHost validates the service address of an onion host. Hosts
// outside .onion are accepted as is.
func CheckOnionHost(host string) error {
	if !IsOnionHost(host) {
		return nil
	}
	if h, _, ok := strings.Cut(host, ":"); ok {
		host = h
	}
	host = strings.ToLower(host)

	// Reduce "www.<service>.onion" to "<service>.onion".
	labels := strings.Split(strings.TrimSuffix(host, OnionSuffix), ".")
	service := labels[len(labels)-1] + OnionSuffix

	switch {
	case IsValidV3Address(service):
		return nil
	case onionV2Pattern.MatchString(service):
		return ErrV2AddressDeprecated
	default:
		return ErrInvalidOnionAddress
	}
}

// AllowOnionURL reports whether rawURL is worth fetching through Tor: any
// non-onion URL, or an onion URL whose service address is valid. It has
// the signature of a crawl filter.
func AllowOnionURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return CheckOnionHost(u.Host) == nil
}
