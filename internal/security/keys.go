// Package security computes and verifies the verification fields of a
// license: the decoy digest and signature, and the integrity value that is
// the only check actually enforced by consumers of the license.
package security

// Keys holds the embedded secrets of the integrity scheme. They are constants
// of the license format; Keys exists so tests can run the scheme with
// alternate values.
type Keys struct {
	// SignatureKey keys the decoy HMAC written to the signature field.
	SignatureKey string
	// Passphrase is hashed into the AES key protecting the integrity field.
	Passphrase string
	// PassphraseSuffix follows the version in versioned passphrases.
	PassphraseSuffix string
	// Breakpoint is the first version whose passphrase embeds the version.
	Breakpoint string
}

// DefaultKeys returns the keys every issued license was signed with.
func DefaultKeys() Keys {
	return Keys{
		SignatureKey:     "əɹnʇɐuƃıs ɐ ʇou sı sıɥʇ",
		Passphrase:       "€ ∫∑x=1 ∆t π™",
		PassphraseSuffix: "√µ…",
		Breakpoint:       "9.6",
	}
}
