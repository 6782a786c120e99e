package services

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"envis/internal/models"
)

func newTestHostsManager(t *testing.T, initial string) (*HostsManager, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hosts")
	if initial != "" {
		if err := os.WriteFile(path, []byte(initial), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return NewHostsManagerAt(path), path
}

func entry(ip, hostname string, enabled bool) models.HostEntry {
	return models.HostEntry{
		ID:       models.HostEntryID(ip, hostname),
		IP:       ip,
		Hostname: hostname,
		Enabled:  enabled,
	}
}

func TestHostsAddCreatesBlockAndPreservesUserContent(t *testing.T) {
	m, path := newTestHostsManager(t, "127.0.0.1 localhost\n::1 localhost\n")

	err := m.AddHosts([]models.HostEntry{
		entry("127.0.0.1", "app.test", true),
		entry("127.0.0.1", "api.test", false),
	}, "")
	if err != nil {
		t.Fatalf("AddHosts: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "127.0.0.1 localhost\n::1 localhost\n") {
		t.Errorf("user lines above the block were disturbed:\n%s", content)
	}
	if strings.Count(content, hostsBlockBegin) != 1 || strings.Count(content, hostsBlockEnd) != 1 {
		t.Errorf("block markers not paired exactly once:\n%s", content)
	}
	if !strings.Contains(content, "127.0.0.1 app.test") {
		t.Errorf("enabled entry missing:\n%s", content)
	}
	if !strings.Contains(content, "# 127.0.0.1 api.test") {
		t.Errorf("disabled entry not commented out:\n%s", content)
	}
}

func TestHostsListParsesDisabledAndCommentedEntries(t *testing.T) {
	initial := strings.Join([]string{
		"127.0.0.1 localhost",
		hostsBlockBegin,
		"127.0.0.1 app.test # local app",
		"# 10.0.0.5 staging.test",
		"# note",
		hostsBlockEnd,
		"",
	}, "\n")
	m, _ := newTestHostsManager(t, initial)

	got, err := m.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []models.HostEntry{
		{ID: models.HostEntryID("127.0.0.1", "app.test"), IP: "127.0.0.1", Hostname: "app.test", Comment: "local app", Enabled: true},
		{ID: models.HostEntryID("10.0.0.5", "staging.test"), IP: "10.0.0.5", Hostname: "staging.test", Enabled: false},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestHostsAddMergesByKey(t *testing.T) {
	m, _ := newTestHostsManager(t, "")

	if err := m.AddHosts([]models.HostEntry{entry("127.0.0.1", "app.test", true)}, ""); err != nil {
		t.Fatalf("first add: %v", err)
	}

	// Same key, different enabled flag: replace, not append.
	if err := m.AddHosts([]models.HostEntry{entry("127.0.0.1", "app.test", false)}, ""); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, err := m.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Enabled {
		t.Errorf("entries after replace = %v, want one disabled entry", got)
	}

	// Identical entry again is a conflict.
	err = m.AddHosts([]models.HostEntry{entry("127.0.0.1", "app.test", false)}, "")
	if !errors.Is(err, models.ErrAlreadyExists) {
		t.Errorf("identical add = %v, want ErrAlreadyExists", err)
	}
}

func TestHostsRemoveIsIdempotent(t *testing.T) {
	m, _ := newTestHostsManager(t, "")
	if err := m.AddHosts([]models.HostEntry{
		entry("127.0.0.1", "app.test", true),
		entry("127.0.0.1", "api.test", true),
	}, ""); err != nil {
		t.Fatal(err)
	}

	victims := []models.HostEntry{entry("127.0.0.1", "api.test", true)}
	if err := m.RemoveHosts(victims, ""); err != nil {
		t.Fatalf("RemoveHosts: %v", err)
	}
	if err := m.RemoveHosts(victims, ""); err != nil {
		t.Fatalf("second RemoveHosts: %v", err)
	}

	got, err := m.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Hostname != "app.test" {
		t.Errorf("entries after remove = %v, want only app.test", got)
	}
}

func TestHostsUserContentBelowBlockSurvivesRewrite(t *testing.T) {
	initial := strings.Join([]string{
		"# system defaults",
		"127.0.0.1 localhost",
		hostsBlockBegin,
		"127.0.0.1 old.test",
		hostsBlockEnd,
		"255.255.255.255 broadcasthost",
		"",
	}, "\n")
	m, path := newTestHostsManager(t, initial)

	if err := m.AddHosts([]models.HostEntry{entry("127.0.0.1", "new.test", true)}, ""); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	content := string(data)
	for _, want := range []string{"# system defaults", "127.0.0.1 localhost", "255.255.255.255 broadcasthost", "127.0.0.1 old.test", "127.0.0.1 new.test"} {
		if !strings.Contains(content, want) {
			t.Errorf("rewrite lost %q:\n%s", want, content)
		}
	}
	if idx := strings.Index(content, "broadcasthost"); idx < strings.Index(content, hostsBlockEnd) {
		t.Errorf("trailing user content moved above the block:\n%s", content)
	}
}

func TestHostsCorruptedMarkersRefused(t *testing.T) {
	cases := map[string]string{
		"duplicated begin": strings.Join([]string{hostsBlockBegin, hostsBlockBegin, hostsBlockEnd, ""}, "\n"),
		"missing end":      hostsBlockBegin + "\n",
		"end before begin": strings.Join([]string{hostsBlockEnd, hostsBlockBegin, ""}, "\n"),
	}
	for name, initial := range cases {
		t.Run(name, func(t *testing.T) {
			m, path := newTestHostsManager(t, initial)
			if _, err := m.List(); !errors.Is(err, models.ErrCorruptedState) {
				t.Errorf("List = %v, want ErrCorruptedState", err)
			}
			err := m.AddHosts([]models.HostEntry{entry("127.0.0.1", "app.test", true)}, "")
			if !errors.Is(err, models.ErrCorruptedState) {
				t.Errorf("AddHosts = %v, want ErrCorruptedState", err)
			}
			data, _ := os.ReadFile(path)
			if string(data) != initial {
				t.Error("corrupted file was modified")
			}
		})
	}
}

func TestHostsMissingFileReadsEmpty(t *testing.T) {
	m, _ := newTestHostsManager(t, "")
	got, err := m.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("entries = %v, want none", got)
	}
}

func TestClassifySudoFailure(t *testing.T) {
	base := errors.New("exit status 1")
	cases := map[string]struct {
		stderr       string
		wantPassword bool
	}{
		"sudo -S rejects": {"[sudo] password: sudo: 1 incorrect password attempt", true},
		"pam retry":       {"Sorry, try again.\n[sudo] password:", true},
		"plain cp error":  {"cp: /etc/hosts: Operation not permitted", false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := classifySudoFailure(tc.stderr, base)
			if got := errors.Is(err, models.ErrPasswordIncorrect); got != tc.wantPassword {
				t.Errorf("classifySudoFailure(%q) = %v, wantPassword=%v", tc.stderr, err, tc.wantPassword)
			}
		})
	}
}
