package main

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestParseSSHSignature(t *testing.T) {
	want := sshSignature{format: "ssh-ed25519", pub: []byte("pub"), blob: []byte{0, 1, 2}}
	got, err := parseSSHSignature(want.String())
	if err != nil {
		t.Fatalf("parseSSHSignature: %v", err)
	}
	if got.format != want.format || string(got.pub) != "pub" || string(got.blob) != "\x00\x01\x02" {
		t.Fatalf("round trip = %+v", got)
	}

	for _, bad := range []string{"", "sshsig-v2:a:b:c", "sshsig-v1:fmt:!!:AA==", "sshsig-v1:fmt:AA=="} {
		if _, err := parseSSHSignature(bad); !errors.Is(err, errBadSignature) {
			t.Errorf("parseSSHSignature(%q) = %v, want errBadSignature", bad, err)
		}
	}
}

func TestFindSigningKey(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := findSigningKey("~/keys/id")
	if err != nil || got != filepath.Join(home, "keys", "id") {
		t.Fatalf("findSigningKey(~/keys/id) = %q, %v", got, err)
	}
	if _, err := findSigningKey(""); err == nil {
		t.Fatal("findSigningKey found a key in an empty home")
	}
	writeCmdFile(t, home, ".ssh/id_ecdsa", "key")
	got, err = findSigningKey("")
	if err != nil || got != filepath.Join(home, ".ssh", "id_ecdsa") {
		t.Fatalf("findSigningKey() = %q, %v", got, err)
	}
}
