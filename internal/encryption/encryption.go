// Package encryption implements the `-k` keys-file collaborator: credential
// rows feeding whatever volume/hive decryption an evidence source needs.
// Real volume decryption is out of scope for the core; this
// package is the stand-in contract plus a PGP-backed implementation for
// passphrase-protected registry hive exports, using the ecosystem's
// ProtonMail/go-crypto dependency.
package encryption

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// CredentialKind discriminates one row of the keys file.
type CredentialKind string

const (
	CredentialPassphrase CredentialKind = "passphrase"
	CredentialPGPKey     CredentialKind = "pgp_key"
)

// Credential is one `credential_type;credential_data` row from the keys
// file.
type Credential struct {
	Kind CredentialKind
	Data string
}

// LoadKeysFile parses a `;`-separated `credential_type;credential_data`
// keys file, one credential per line. Blank lines and lines starting with
// `#` are skipped.
func LoadKeysFile(path string) ([]Credential, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("encryption: opening keys file %q: %w", path, err)
	}
	defer f.Close()

	var out []Credential
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, ";", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("encryption: malformed keys file row %q", line)
		}
		out = append(out, Credential{Kind: CredentialKind(strings.TrimSpace(parts[0])), Data: parts[1]})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Handler decrypts evidence blobs using a set of loaded credentials. A real
// volume-decryption handler lives outside this core's scope; this one
// covers the case the catalogue actually exercises: a PGP-encrypted
// registry hive export produced by an upstream collection step.
type Handler interface {
	Decrypt(ciphertext io.Reader) (io.Reader, error)
}

// PGPHandler decrypts an OpenPGP-encrypted stream using the first matching
// credential from the keys file.
type PGPHandler struct {
	keyRing    openpgp.EntityList
	passphrase []byte
}

// NewPGPHandler builds a PGPHandler from the loaded credentials. A
// CredentialPGPKey row is treated as an armored private-key block; a
// CredentialPassphrase row is used to decrypt that key (or, absent a key
// block, as a symmetric passphrase).
func NewPGPHandler(creds []Credential) (*PGPHandler, error) {
	h := &PGPHandler{}
	for _, c := range creds {
		switch c.Kind {
		case CredentialPGPKey:
			ring, err := openpgp.ReadArmoredKeyRing(strings.NewReader(c.Data))
			if err != nil {
				return nil, fmt.Errorf("encryption: reading PGP key: %w", err)
			}
			h.keyRing = append(h.keyRing, ring...)
		case CredentialPassphrase:
			h.passphrase = []byte(c.Data)
		}
	}
	return h, nil
}

// Decrypt opens ciphertext as an OpenPGP message, unlocking any
// passphrase-protected private key first.
func (h *PGPHandler) Decrypt(ciphertext io.Reader) (io.Reader, error) {
	if len(h.passphrase) > 0 {
		for _, entity := range h.keyRing {
			if entity.PrivateKey != nil && entity.PrivateKey.Encrypted {
				if err := entity.PrivateKey.Decrypt(h.passphrase); err != nil {
					continue
				}
			}
		}
	}

	md, err := openpgp.ReadMessage(ciphertext, h.keyRing, promptPassphrase(h.passphrase), nil)
	if err != nil {
		return nil, fmt.Errorf("encryption: reading PGP message: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, md.UnverifiedBody); err != nil {
		return nil, fmt.Errorf("encryption: decrypting PGP message: %w", err)
	}
	return &buf, nil
}

func promptPassphrase(passphrase []byte) openpgp.PromptFunction {
	return func(keys []openpgp.Key, symmetric bool) ([]byte, error) {
		if len(passphrase) == 0 {
			return nil, fmt.Errorf("encryption: no passphrase available for prompt")
		}
		for _, k := range keys {
			if k.PrivateKey != nil && k.PrivateKey.Encrypted {
				if err := k.PrivateKey.Decrypt(passphrase); err == nil {
					return passphrase, nil
				}
			}
		}
		return passphrase, nil
	}
}
