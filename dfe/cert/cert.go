// Package cert turns a password-protected certificate container (PKCS#12,
// or PEM with an encrypted PKCS#8 key) into a transport identity for mutual
// TLS. Key material lives only in memory unless the caller asks for an
// ephemeral on-disk copy, and is wiped on Close.
package cert

import (
	"crypto"
	"crypto/tls"
	"crypto/x509"
	"encoding/asn1"
	"encoding/base64"
	"encoding/pem"
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	"github.com/youmark/pkcs8"
	pkcs12 "software.sslmate.com/src/go-pkcs12"
)

var logger = logrus.WithField("component", "dfe.cert")

var (
	// ErrContainerEncoding marks container bytes that are not a decodable
	// PKCS#12 or PEM frame. Detected before any decryption attempt.
	ErrContainerEncoding = errors.New("certificate container is not decodable")

	// ErrBadPassword marks a container whose password does not unlock it.
	ErrBadPassword = errors.New("certificate container password is incorrect")
)

// Credential is a loaded transport identity. It is owned by exactly one
// session; Close must run on every exit path.
type Credential struct {
	TLSCertificate tls.Certificate
	Leaf           *x509.Certificate

	keyPEM   []byte
	certPath string
	keyPath  string
	closed   bool
}

// LoadBase64 decodes the base64 text form of a container (the shape the
// inbound interface delivers) and loads it.
func LoadBase64(container, password string) (*Credential, error) {
	raw, err := base64.StdEncoding.DecodeString(compactBase64(container))
	if err != nil {
		return nil, errors.Wrap(ErrContainerEncoding, err.Error())
	}
	return Load(raw, password)
}

// Load builds a Credential from raw container bytes.
func Load(container []byte, password string) (*Credential, error) {
	if len(container) == 0 {
		return nil, errors.Wrap(ErrContainerEncoding, "empty container")
	}

	if block, _ := pem.Decode(container); block != nil {
		return loadPEM(container, password)
	}

	// Cheap structural check so malformed bytes fail as an encoding
	// problem, not as a decryption one.
	var raw asn1.RawValue
	if _, err := asn1.Unmarshal(container, &raw); err != nil {
		return nil, errors.Wrap(ErrContainerEncoding, err.Error())
	}

	key, leaf, chain, err := pkcs12.DecodeChain(container, password)
	if err != nil {
		if errors.Is(err, pkcs12.ErrIncorrectPassword) {
			return nil, errors.Wrap(ErrBadPassword, "PKCS#12")
		}
		return nil, errors.Wrap(ErrContainerEncoding, err.Error())
	}

	return newCredential(key, leaf, chain)
}

// loadPEM accepts a PEM container holding a CERTIFICATE block and either an
// ENCRYPTED PRIVATE KEY (PKCS#8, unlocked with the password) or a plain
// PRIVATE KEY block.
func loadPEM(container []byte, password string) (*Credential, error) {
	var (
		leaf  *x509.Certificate
		chain []*x509.Certificate
		key   any
	)

	rest := container
	for len(rest) > 0 {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}

		switch block.Type {
		case "CERTIFICATE":
			c, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return nil, errors.Wrap(ErrContainerEncoding, err.Error())
			}
			if leaf == nil {
				leaf = c
			} else {
				chain = append(chain, c)
			}
		case "ENCRYPTED PRIVATE KEY":
			k, err := pkcs8.ParsePKCS8PrivateKey(block.Bytes, []byte(password))
			if err != nil {
				return nil, errors.Wrap(ErrBadPassword, "PKCS#8")
			}
			key = k
		case "PRIVATE KEY":
			k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
			if err != nil {
				return nil, errors.Wrap(ErrContainerEncoding, err.Error())
			}
			key = k
		}
	}

	if leaf == nil || key == nil {
		return nil, errors.Wrap(ErrContainerEncoding, "PEM container is missing certificate or private key")
	}
	return newCredential(key, leaf, chain)
}

func newCredential(key any, leaf *x509.Certificate, chain []*x509.Certificate) (*Credential, error) {
	signer, ok := key.(crypto.PrivateKey)
	if !ok {
		return nil, errors.Wrap(ErrContainerEncoding, "unsupported private key type")
	}

	raw := [][]byte{leaf.Raw}
	for _, c := range chain {
		raw = append(raw, c.Raw)
	}

	logger.WithField("subject", leaf.Subject.CommonName).Debug("certificate container unlocked")

	return &Credential{
		TLSCertificate: tls.Certificate{
			Certificate: raw,
			PrivateKey:  signer,
			Leaf:        leaf,
		},
		Leaf: leaf,
	}, nil
}

// Materialize writes the certificate and the (unencrypted) private key as
// PEM files under dir for transports that require filesystem paths. The
// files are removed by Close. dir may be empty for the system temp dir.
func (c *Credential) Materialize(dir string) (certPath, keyPath string, err error) {
	if c.certPath != "" {
		return c.certPath, c.keyPath, nil
	}

	keyDER, err := x509.MarshalPKCS8PrivateKey(c.TLSCertificate.PrivateKey)
	if err != nil {
		return "", "", errors.Wrap(err, "marshal private key")
	}
	c.keyPEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})

	var certPEM []byte
	for _, der := range c.TLSCertificate.Certificate {
		certPEM = append(certPEM, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})...)
	}

	certPath, err = writeEphemeral(dir, "dfe-cert-*.pem", certPEM)
	if err != nil {
		return "", "", err
	}
	keyPath, err = writeEphemeral(dir, "dfe-key-*.pem", c.keyPEM)
	if err != nil {
		_ = os.Remove(certPath)
		return "", "", err
	}

	c.certPath, c.keyPath = certPath, keyPath
	return certPath, keyPath, nil
}

// Close removes any materialized files and wipes the in-memory key PEM.
// Safe to call more than once.
func (c *Credential) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	var err error
	if c.certPath != "" {
		err = os.Remove(c.certPath)
		c.certPath = ""
	}
	if c.keyPath != "" {
		if rmErr := os.Remove(c.keyPath); rmErr != nil && err == nil {
			err = rmErr
		}
		c.keyPath = ""
	}

	for i := range c.keyPEM {
		c.keyPEM[i] = 0
	}
	c.keyPEM = nil

	return err
}

func writeEphemeral(dir, pattern string, content []byte) (string, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", errors.Wrap(err, "create ephemeral file")
	}
	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", errors.Wrap(err, "write ephemeral file")
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", errors.Wrap(err, "close ephemeral file")
	}
	return f.Name(), nil
}

func compactBase64(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, s)
}
