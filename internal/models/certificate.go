package models

import "time"

// CertificatePaths locates the emitted material of one issued certificate.
type CertificatePaths struct {
	Cert string `json:"cert"`
	Key  string `json:"key"`
	PEM  string `json:"pem,omitempty"`
	PFX  string `json:"pfx,omitempty"`
}

/**
 * Certificate describes one server certificate issued by the local CA
 * @property {string} domain - Primary domain, also the CN
 * @property {[]string} sans - Additional subject alternative names
 * @property {string} serial - Hex serial assigned by openssl
 */
type Certificate struct {
	ID        string           `json:"id"`
	Domain    string           `json:"domain"`
	CN        string           `json:"cn"`
	SANs      []string         `json:"sans,omitempty"`
	Issuer    string           `json:"issuer"`
	ValidFrom time.Time        `json:"valid_from"`
	ValidTo   time.Time        `json:"valid_to"`
	Serial    string           `json:"serial"`
	CreatedAt time.Time        `json:"created_at"`
	Paths     CertificatePaths `json:"paths"`
}

// CAConfig carries the parameters used when the per-install CA is created.
type CAConfig struct {
	CommonName   string `json:"common_name"`
	Organization string `json:"organization"`
	Country      string `json:"country"`
	ValidityDays int    `json:"validity_days"`
}
