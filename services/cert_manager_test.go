package services

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"envis/internal/models"
)

func newTestCertManager(t *testing.T) *CertManager {
	t.Helper()
	if _, err := exec.LookPath("openssl"); err != nil {
		t.Skip("openssl not available")
	}
	return NewCertManager(newTestConfigStore(t))
}

func TestInitializeCAAndIssueCertificate(t *testing.T) {
	m := newTestCertManager(t)

	if m.CAInitialized() {
		t.Fatal("CA reported initialized before InitializeCA")
	}
	if err := m.InitializeCA(models.CAConfig{}); err != nil {
		t.Fatalf("InitializeCA: %v", err)
	}
	if !m.CAInitialized() {
		t.Fatal("CA not reported initialized")
	}
	if err := m.InitializeCA(models.CAConfig{}); !errors.Is(err, models.ErrAlreadyExists) {
		t.Errorf("second InitializeCA = %v, want ErrAlreadyExists", err)
	}

	cert, err := m.Issue("e1", "app.test", []string{"www.app.test"}, 30)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if cert.Domain != "app.test" || cert.CN != "app.test" {
		t.Errorf("cert identity = %s/%s, want app.test", cert.Domain, cert.CN)
	}
	found := false
	for _, san := range cert.SANs {
		if san == "www.app.test" {
			found = true
		}
	}
	if !found {
		t.Errorf("sans = %v, want to include www.app.test", cert.SANs)
	}
	if cert.Serial == "" {
		t.Error("serial not parsed")
	}
	if !cert.ValidTo.After(cert.ValidFrom) {
		t.Errorf("validity window inverted: %v .. %v", cert.ValidFrom, cert.ValidTo)
	}
	if got := cert.ValidTo.Sub(cert.ValidFrom); got > 31*24*time.Hour {
		t.Errorf("validity = %v, want about 30 days", got)
	}

	for _, p := range []string{cert.Paths.Cert, cert.Paths.Key, cert.Paths.PEM, cert.Paths.PFX} {
		if p == "" {
			t.Error("certificate path not populated")
			continue
		}
		if _, err := os.Stat(p); err != nil {
			t.Errorf("emitted file missing: %v", err)
		}
	}

	if _, err := m.Issue("e1", "app.test", nil, 30); !errors.Is(err, models.ErrAlreadyExists) {
		t.Errorf("duplicate Issue = %v, want ErrAlreadyExists", err)
	}
}

func TestIssueWithoutCAFails(t *testing.T) {
	m := newTestCertManager(t)
	if _, err := m.Issue("e1", "app.test", nil, 0); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Issue without CA = %v, want ErrNotFound", err)
	}
}

func TestCertificateListAndRevoke(t *testing.T) {
	m := newTestCertManager(t)
	if err := m.InitializeCA(models.CAConfig{CommonName: "Test CA"}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Issue("e1", "one.test", nil, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Issue("e1", "two.test", nil, 0); err != nil {
		t.Fatal(err)
	}

	certs, err := m.List("e1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(certs) != 2 {
		t.Fatalf("listed %d certificates, want 2", len(certs))
	}

	// Certificates are scoped per environment.
	other, err := m.List("e2")
	if err != nil || len(other) != 0 {
		t.Errorf("List(e2) = %v, %v, want empty", other, err)
	}

	if err := m.Revoke("e1", "one.test"); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	certs, _ = m.List("e1")
	if len(certs) != 1 || certs[0].Domain != "two.test" {
		t.Errorf("after revoke = %v, want only two.test", certs)
	}
	if err := m.Revoke("e1", "one.test"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("second Revoke = %v, want ErrNotFound", err)
	}

	// Unparsable material is skipped by List.
	junk := filepath.Join(m.certsDir("e1"), "junk.test")
	if err := os.MkdirAll(junk, 0755); err != nil {
		t.Fatal(err)
	}
	certs, err = m.List("e1")
	if err != nil {
		t.Fatalf("List with junk dir: %v", err)
	}
	if len(certs) != 1 {
		t.Errorf("listed %d certificates, want junk directory skipped", len(certs))
	}
}
