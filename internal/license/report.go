package license

import (
	"time"

	"rcslicense/internal/document"
	"rcslicense/internal/expiry"
	"rcslicense/internal/security"
)

// Advisory codes. Advisories never block loading a license.
const (
	AdvisorySignatureMismatch = "signature_mismatch"
	AdvisoryIntegrityMismatch = "integrity_mismatch"
	AdvisoryVersionOrder      = "non_numeric_version"
)

// Encryption modes reported for a loaded license.
const (
	EncryptionRestricted = "Restricted"
	EncryptionFull       = "Full"
)

// Advisory is a non-fatal finding about a loaded license.
type Advisory struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Report is the diagnostic summary of a loaded license.
type Report struct {
	Version        string                      `json:"version"`
	Expiry         expiry.Status               `json:"-"`
	Verification   security.VerificationReport `json:"-"`
	Advisories     []Advisory                  `json:"advisories"`
	Migrations     []string                    `json:"migrations"`
	Serial         string                      `json:"serial"`
	DongleRequired bool                        `json:"dongle_required"`
	Encryption     string                      `json:"encryption"`
}

// HasAdvisories reports whether any integrity or ordering check failed.
func (r *Report) HasAdvisories() bool {
	return len(r.Advisories) > 0
}

// VisibleExpiry returns the visible expiry instant, nil when the license never expires.
func (r *Report) VisibleExpiry() *time.Time {
	return r.Expiry.Visible
}

// HiddenExpiry returns the hidden expiry instant, nil when none is set.
func (r *Report) HiddenExpiry() *time.Time {
	return r.Expiry.Hidden
}

func (r *Report) addAdvisory(code, message string) {
	for _, a := range r.Advisories {
		if a.Code == code {
			return
		}
	}
	r.Advisories = append(r.Advisories, Advisory{Code: code, Message: message})
}

func newReport(doc *document.Document, version string) *Report {
	report := &Report{
		Version:    version,
		Serial:     doc.Serial(),
		Encryption: EncryptionFull,
		Advisories: []Advisory{},
		Migrations: []string{},
	}
	report.DongleRequired = report.Serial != document.SerialOff
	if doc.Has(document.FieldDigestSeed) {
		report.Encryption = EncryptionRestricted
	}
	return report
}
