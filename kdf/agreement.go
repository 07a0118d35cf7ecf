// Package kdf implements the Concat KDF (NIST SP 800-56A, Section 5.8.1) used
// to turn a Diffie-Hellman shared secret into usable key material, together
// with the agreement context that binds a derived key to its parties and use.
package kdf

// AgreementInfo carries the context bytes mixed into key derivation: party U
// info (sender), party V info (receiver) and the supplemental public/private
// info strings. Binding these into the derived secret prevents cross-context
// key reuse.
type AgreementInfo struct {
	// APU is the agreement PartyUInfo (sender context).
	APU []byte
	// APV is the agreement PartyVInfo (receiver context).
	APV []byte
	// PubInfo is the supplemental public info.
	PubInfo []byte
	// PrivInfo is the supplemental private info.
	PrivInfo []byte
}

// NewAgreementInfo builds an AgreementInfo from its four components.
func NewAgreementInfo(apu, apv, pubInfo, privInfo []byte) AgreementInfo {
	return AgreementInfo{APU: apu, APV: apv, PubInfo: pubInfo, PrivInfo: privInfo}
}
