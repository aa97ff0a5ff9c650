package api

// InspectResponse is the diagnostic report of an uploaded license.
type InspectResponse struct {
	Version        string     `json:"version"`
	Serial         string     `json:"serial"`
	DongleRequired bool       `json:"dongle_required"`
	Encryption     string     `json:"encryption"`
	Expiry         string     `json:"expiry"`
	HiddenExpiry   string     `json:"hidden_expiry,omitempty"`
	SignatureValid bool       `json:"signature_valid"`
	IntegrityValid bool       `json:"integrity_valid"`
	Advisories     []Advisory `json:"advisories"`
	Migrations     []string   `json:"migrations"`
	Dump           string     `json:"dump,omitempty"`
}

// Advisory is a non-fatal finding about a license.
type Advisory struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	APIVersion string `json:"api_version"`
}
