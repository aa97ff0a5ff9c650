// Package api contains the request and response contracts of the license
// issuing API. Version v1 is the current API version.
package api

// GenerateRequest issues a fresh license. Omitted fields keep the defaults
// of a generated license: one user, no agents, no expiry.
type GenerateRequest struct {
	// Version overrides the license version. The integrity passphrase
	// depends on it.
	Version string `json:"version,omitempty" validate:"omitempty,licversion"`
	// Hidden is the hidden expiry date, packed into digest_seed.
	Hidden string `json:"hidden,omitempty" validate:"omitempty,isodate"`
	// Expiry is the visible expiry date.
	Expiry string `json:"expiry,omitempty" validate:"omitempty,isodate"`
	// Serial binds the license to a HASP dongle; "off" or empty for none.
	Serial string         `json:"serial,omitempty" validate:"omitempty,max=64"`
	Users  *int64         `json:"users,omitempty" validate:"omitempty,min=1"`
	Agents *AgentsRequest `json:"agents,omitempty"`
}

// AgentsRequest sets the agent limits of a generated license.
type AgentsRequest struct {
	Total   int64 `json:"total" validate:"gte=0"`
	Desktop int64 `json:"desktop" validate:"gte=0"`
	Mobile  int64 `json:"mobile" validate:"gte=0"`
}

// ReissueParams are the query parameters of a reissue request.
type ReissueParams struct {
	Version string `json:"version" validate:"omitempty,licversion"`
	Hidden  string `json:"hidden" validate:"omitempty,isodate"`
}
