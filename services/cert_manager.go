package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"envis/internal/config"
	"envis/internal/logger"
	"envis/internal/models"
	"envis/internal/utils"
)

const sslVersion = "v1.0.0"

/**
 * CertManager runs the local CA and issues server certificates
 * @description
 * - The CA is shared per install at {root}/services/ssl/v1.0.0/ca
 * - Issued certificates are owned by the environment that requested
 *   them, under {root}/envs/{env_id}/ssl/v1.0.0/certs/{domain}
 * - Everything cryptographic shells out to openssl; the binary must be
 *   on PATH
 */
type CertManager struct {
	mu  sync.Mutex
	cfg *config.Store
}

func NewCertManager(cfg *config.Store) *CertManager {
	return &CertManager{cfg: cfg}
}

func (m *CertManager) caDir() string {
	return filepath.Join(m.cfg.ServicesDir(), string(models.TypeSSL), sslVersion, "ca")
}

func (m *CertManager) certsDir(envID string) string {
	return filepath.Join(m.cfg.EnvsDir(), envID, string(models.TypeSSL), sslVersion, "certs")
}

func (m *CertManager) caCertPath() string { return filepath.Join(m.caDir(), "ca.crt") }
func (m *CertManager) caKeyPath() string  { return filepath.Join(m.caDir(), "ca.key") }

func (m *CertManager) CAInitialized() bool {
	_, errCrt := os.Stat(m.caCertPath())
	_, errKey := os.Stat(m.caKeyPath())
	return errCrt == nil && errKey == nil
}

func openssl(dir string, args ...string) (utils.CommandResult, error) {
	return utils.RunCommand(context.Background(), dir, nil, "openssl", args...)
}

/**
 * Create the per-install CA
 * @param {CAConfig} cc - CN, organisation, country, validity in days
 * @description
 * - Idempotent: an existing CA is left alone and returns AlreadyExists
 * - Seeds serial=1000 and an empty index.txt the way openssl's ca tool
 *   expects them
 */
func (m *CertManager) InitializeCA(cc models.CAConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CAInitialized() {
		return fmt.Errorf("certificate authority: %w", models.ErrAlreadyExists)
	}
	dir := m.caDir()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	if cc.CommonName == "" {
		cc.CommonName = "Envis Local CA"
	}
	if cc.Organization == "" {
		cc.Organization = "Envis"
	}
	if cc.Country == "" {
		cc.Country = "CN"
	}
	if cc.ValidityDays <= 0 {
		cc.ValidityDays = 3650
	}

	if res, err := openssl(dir, "genrsa", "-out", "ca.key", "4096"); err != nil {
		return &models.InstallError{Step: "openssl genrsa", Stderr: res.Stderr, Err: err}
	}

	cnf := fmt.Sprintf(`[req]
distinguished_name = req_distinguished_name
x509_extensions = v3_ca
prompt = no

[req_distinguished_name]
C = %s
O = %s
CN = %s

[v3_ca]
subjectKeyIdentifier = hash
authorityKeyIdentifier = keyid:always,issuer
basicConstraints = critical, CA:true
keyUsage = critical, digitalSignature, cRLSign, keyCertSign
`, cc.Country, cc.Organization, cc.CommonName)
	cnfPath := filepath.Join(dir, "ca.cnf")
	if err := os.WriteFile(cnfPath, []byte(cnf), 0o600); err != nil {
		return err
	}
	defer os.Remove(cnfPath)

	if res, err := openssl(dir, "req", "-new", "-x509",
		"-days", fmt.Sprintf("%d", cc.ValidityDays),
		"-key", "ca.key", "-out", "ca.crt", "-config", "ca.cnf"); err != nil {
		return &models.InstallError{Step: "openssl req -x509", Stderr: res.Stderr, Err: err}
	}

	if err := os.WriteFile(filepath.Join(dir, "serial"), []byte("1000\n"), 0o644); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "index.txt"), nil, 0o644); err != nil {
		return err
	}
	logger.Infof("Initialized certificate authority '%s' at %s", cc.CommonName, dir)
	return nil
}

/**
 * Issue a server certificate for a domain
 * @param {[]string} sans - Extra DNS names; the domain itself is always DNS.1
 * @returns {*Certificate, error} Returns the parsed certificate record
 * @description
 * - Emits certificate.crt, private.key, fullchain.pem and
 *   certificate.pfx (empty export password) in the domain directory
 */
func (m *CertManager) Issue(envID, domain string, sans []string, validityDays int) (*models.Certificate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.CAInitialized() {
		return nil, fmt.Errorf("certificate authority: %w", models.ErrNotFound)
	}
	if validityDays <= 0 {
		validityDays = 365
	}
	dir := filepath.Join(m.certsDir(envID), domain)
	if _, err := os.Stat(filepath.Join(dir, "certificate.crt")); err == nil {
		return nil, fmt.Errorf("certificate for '%s': %w", domain, models.ErrAlreadyExists)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}

	if res, err := openssl(dir, "genrsa", "-out", "private.key", "2048"); err != nil {
		return nil, &models.InstallError{Step: "openssl genrsa", Stderr: res.Stderr, Err: err}
	}
	if res, err := openssl(dir, "req", "-new",
		"-key", "private.key", "-out", "request.csr",
		"-subj", fmt.Sprintf("/CN=%s", domain)); err != nil {
		return nil, &models.InstallError{Step: "openssl req", Stderr: res.Stderr, Err: err}
	}

	var alt strings.Builder
	alt.WriteString("subjectAltName = @alt_names\n\n[alt_names]\n")
	names := append([]string{domain}, sans...)
	for i, name := range names {
		fmt.Fprintf(&alt, "DNS.%d = %s\n", i+1, name)
	}
	extPath := filepath.Join(dir, "ext.cnf")
	if err := os.WriteFile(extPath, []byte(alt.String()), 0o600); err != nil {
		return nil, err
	}
	defer os.Remove(extPath)

	if res, err := openssl(dir, "x509", "-req",
		"-in", "request.csr",
		"-CA", m.caCertPath(), "-CAkey", m.caKeyPath(), "-CAcreateserial",
		"-days", fmt.Sprintf("%d", validityDays),
		"-extfile", "ext.cnf",
		"-out", "certificate.crt"); err != nil {
		return nil, &models.InstallError{Step: "openssl x509 -req", Stderr: res.Stderr, Err: err}
	}
	os.Remove(filepath.Join(dir, "request.csr"))

	if err := m.emitBundles(dir); err != nil {
		return nil, err
	}
	cert, err := m.parseCertificate(envID, domain)
	if err != nil {
		return nil, err
	}
	logger.Infof("Issued certificate for '%s' (serial %s)", domain, cert.Serial)
	return cert, nil
}

func (m *CertManager) emitBundles(dir string) error {
	crt, err := os.ReadFile(filepath.Join(dir, "certificate.crt"))
	if err != nil {
		return err
	}
	ca, err := os.ReadFile(m.caCertPath())
	if err != nil {
		return err
	}
	fullchain := append(append([]byte{}, crt...), ca...)
	if err := os.WriteFile(filepath.Join(dir, "fullchain.pem"), fullchain, 0o644); err != nil {
		return err
	}

	if res, err := openssl(dir, "pkcs12", "-export",
		"-inkey", "private.key",
		"-in", "certificate.crt",
		"-certfile", m.caCertPath(),
		"-passout", "pass:",
		"-out", "certificate.pfx"); err != nil {
		return &models.InstallError{Step: "openssl pkcs12", Stderr: res.Stderr, Err: err}
	}
	return nil
}

// List walks an environment's certs directory and parses each
// certificate through openssl. Domains whose material fails to parse
// are logged and skipped.
func (m *CertManager) List(envID string) ([]models.Certificate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dirs, err := os.ReadDir(m.certsDir(envID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []models.Certificate
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		cert, err := m.parseCertificate(envID, d.Name())
		if err != nil {
			logger.Warnf("Skip unreadable certificate '%s': %v", d.Name(), err)
			continue
		}
		out = append(out, *cert)
	}
	return out, nil
}

// Revoke removes a domain's certificate material.
func (m *CertManager) Revoke(envID, domain string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dir := filepath.Join(m.certsDir(envID), domain)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("certificate for '%s': %w", domain, models.ErrNotFound)
	}
	return os.RemoveAll(dir)
}

func (m *CertManager) parseCertificate(envID, domain string) (*models.Certificate, error) {
	dir := filepath.Join(m.certsDir(envID), domain)
	crtPath := filepath.Join(dir, "certificate.crt")

	res, err := openssl(dir, "x509", "-noout", "-in", "certificate.crt",
		"-subject", "-issuer", "-serial", "-startdate", "-enddate", "-ext", "subjectAltName")
	if err != nil {
		return nil, fmt.Errorf("parse certificate '%s': %w", domain, err)
	}

	cert := &models.Certificate{
		ID:     domain,
		Domain: domain,
		Paths: models.CertificatePaths{
			Cert: crtPath,
			Key:  filepath.Join(dir, "private.key"),
			PEM:  filepath.Join(dir, "fullchain.pem"),
			PFX:  filepath.Join(dir, "certificate.pfx"),
		},
	}
	if info, err := os.Stat(crtPath); err == nil {
		cert.CreatedAt = info.ModTime()
	}

	for _, line := range splitLines(res.Stdout) {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "subject="):
			cert.CN = x509Field(strings.TrimPrefix(line, "subject="), "CN")
		case strings.HasPrefix(line, "issuer="):
			cert.Issuer = strings.TrimPrefix(line, "issuer=")
		case strings.HasPrefix(line, "serial="):
			cert.Serial = strings.TrimPrefix(line, "serial=")
		case strings.HasPrefix(line, "notBefore="):
			cert.ValidFrom, _ = parseOpensslTime(strings.TrimPrefix(line, "notBefore="))
		case strings.HasPrefix(line, "notAfter="):
			cert.ValidTo, _ = parseOpensslTime(strings.TrimPrefix(line, "notAfter="))
		case strings.HasPrefix(line, "DNS:"):
			for _, name := range strings.Split(line, ",") {
				name = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(name), "DNS:"))
				if name != "" && name != domain {
					cert.SANs = append(cert.SANs, name)
				}
			}
		}
	}
	return cert, nil
}

// x509Field pulls one attribute out of an openssl subject/issuer line,
// tolerating both "CN = x" and "CN=x" spacing.
func x509Field(line, key string) string {
	for _, part := range strings.Split(line, ",") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) == 2 && strings.TrimSpace(kv[0]) == key {
			return strings.TrimSpace(kv[1])
		}
	}
	return ""
}

func parseOpensslTime(s string) (time.Time, error) {
	return time.Parse("Jan 2 15:04:05 2006 MST", strings.TrimSpace(s))
}

/**
 * Check whether the CA is present in the platform trust store
 * @returns {bool, error} Returns true when the fingerprint is found
 * @description
 * - macOS asks the System keychain, Windows the LocalMachine Root
 *   store, Linux scans the usual anchor directories
 */
func (m *CertManager) CheckCAInstalled() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.CAInitialized() {
		return false, fmt.Errorf("certificate authority: %w", models.ErrNotFound)
	}
	res, err := openssl(m.caDir(), "x509", "-noout", "-fingerprint", "-sha256", "-in", "ca.crt")
	if err != nil {
		return false, err
	}
	fingerprint := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(res.Stdout), "sha256 Fingerprint="))
	fingerprint = strings.TrimPrefix(fingerprint, "SHA256 Fingerprint=")
	if fingerprint == "" {
		return false, fmt.Errorf("could not read CA fingerprint")
	}

	switch runtime.GOOS {
	case "darwin":
		out, err := utils.RunCommand(context.Background(), "", nil,
			"security", "find-certificate", "-a", "-Z", "/Library/Keychains/System.keychain")
		if err != nil {
			return false, err
		}
		needle := strings.ReplaceAll(fingerprint, ":", "")
		return strings.Contains(strings.ToUpper(out.Stdout), needle), nil
	case "windows":
		out, err := utils.RunCommand(context.Background(), "", nil,
			"powershell", "-NoProfile", "-Command",
			"Get-ChildItem Cert:\\LocalMachine\\Root | ForEach-Object { $_.Thumbprint }")
		if err != nil {
			return false, err
		}
		return strings.Contains(strings.ToUpper(out.Stdout), strings.ReplaceAll(fingerprint, ":", "")), nil
	default:
		return m.scanLinuxAnchors(fingerprint)
	}
}

func (m *CertManager) scanLinuxAnchors(fingerprint string) (bool, error) {
	anchors := []string{
		"/etc/ssl/certs",
		"/usr/local/share/ca-certificates",
		"/etc/pki/ca-trust/source/anchors",
	}
	for _, dir := range anchors {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			res, err := openssl(dir, "x509", "-noout", "-fingerprint", "-sha256", "-in", e.Name())
			if err != nil {
				continue
			}
			if strings.Contains(res.Stdout, fingerprint) {
				return true, nil
			}
		}
	}
	return false, nil
}
