package main

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"

	"github.com/odvcencio/twig/pkg/object"
	"github.com/odvcencio/twig/pkg/repo"
)

const sshSignatureVersion = "sshsig-v1"

// Keys tried, in order, when no signing key is configured.
var defaultSigningKeys = []string{"id_ed25519", "id_ecdsa", "id_rsa"}

var errBadSignature = errors.New("bad commit signature")

// sshSignature is the single-line signature stored in a commit header:
//
//	sshsig-v1:<format>:<base64 public key>:<base64 signature blob>
type sshSignature struct {
	format string
	pub    []byte
	blob   []byte
}

func (s sshSignature) String() string {
	enc := base64.StdEncoding
	return strings.Join([]string{sshSignatureVersion, s.format, enc.EncodeToString(s.pub), enc.EncodeToString(s.blob)}, ":")
}

func parseSSHSignature(text string) (sshSignature, error) {
	fields := strings.Split(text, ":")
	if len(fields) != 4 || fields[0] != sshSignatureVersion {
		return sshSignature{}, fmt.Errorf("%w: unknown format", errBadSignature)
	}
	pub, err := base64.StdEncoding.DecodeString(fields[2])
	if err != nil {
		return sshSignature{}, fmt.Errorf("%w: public key: %v", errBadSignature, err)
	}
	blob, err := base64.StdEncoding.DecodeString(fields[3])
	if err != nil {
		return sshSignature{}, fmt.Errorf("%w: signature: %v", errBadSignature, err)
	}
	return sshSignature{format: fields[1], pub: pub, blob: blob}, nil
}

// newSSHCommitSigner loads a private key and returns a signer that embeds
// the matching public key in every signature. An empty keyPath falls back
// to the usual ~/.ssh identities. The resolved path is returned for logging.
func newSSHCommitSigner(keyPath string) (repo.CommitSigner, string, error) {
	path, err := findSigningKey(keyPath)
	if err != nil {
		return nil, "", err
	}
	keyData, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("signing key: %w", err)
	}
	key, err := ssh.ParsePrivateKey(keyData)
	if err != nil {
		return nil, "", fmt.Errorf("signing key %s: %w", path, err)
	}
	pub := key.PublicKey().Marshal()

	return func(payload []byte) (string, error) {
		sig, err := key.Sign(rand.Reader, payload)
		if err != nil {
			return "", fmt.Errorf("sign commit: %w", err)
		}
		return sshSignature{format: sig.Format, pub: pub, blob: sig.Blob}.String(), nil
	}, path, nil
}

// verifyCommitSignature checks c's signature against its signing payload
// and returns the signing key's SHA256 fingerprint.
func verifyCommitSignature(c *object.CommitObj) (string, error) {
	sig, err := parseSSHSignature(c.Signature)
	if err != nil {
		return "", err
	}
	pub, err := ssh.ParsePublicKey(sig.pub)
	if err != nil {
		return "", fmt.Errorf("%w: public key: %v", errBadSignature, err)
	}
	payload, err := c.SigningPayload()
	if err != nil {
		return "", err
	}
	if err := pub.Verify(payload, &ssh.Signature{Format: sig.format, Blob: sig.blob}); err != nil {
		return "", fmt.Errorf("%w: %v", errBadSignature, err)
	}
	return ssh.FingerprintSHA256(pub), nil
}

func findSigningKey(keyPath string) (string, error) {
	keyPath = strings.TrimSpace(keyPath)
	if keyPath != "" && !strings.HasPrefix(keyPath, "~/") {
		return filepath.Abs(keyPath)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("signing key: %w", err)
	}
	if keyPath != "" {
		return filepath.Join(home, keyPath[2:]), nil
	}
	for _, name := range defaultSigningKeys {
		p := filepath.Join(home, ".ssh", name)
		if st, err := os.Stat(p); err == nil && st.Mode().IsRegular() {
			return p, nil
		}
	}
	return "", fmt.Errorf("signing key: none configured and no %s in ~/.ssh", strings.Join(defaultSigningKeys, ", "))
}
