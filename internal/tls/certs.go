// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package tls creates and loads the development certificates the API
// server uses when it is asked to serve HTTPS without operator-supplied
// certificates.
package tls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"io/fs"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/samber/oops"
)

// File names inside a certs directory.
const (
	CACertFile     = "root-ca.crt"
	CAKeyFile      = "root-ca.key"
	ServerCertFile = "server.crt"
	ServerKeyFile  = "server.key"
)

// renewBefore is how close to expiry a server certificate is replaced.
const renewBefore = 7 * 24 * time.Hour

// CA holds a certificate authority certificate and private key.
type CA struct {
	Certificate *x509.Certificate
	PrivateKey  *ecdsa.PrivateKey
}

// ServerCert holds a server certificate and private key.
type ServerCert struct {
	Certificate *x509.Certificate
	PrivateKey  *ecdsa.PrivateKey
}

// GenerateCA creates a root CA named "authkit development CA {name}".
func GenerateCA(name string) (*CA, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, oops.Code("TLS_KEY_FAILED").With("operation", "generate CA key").Wrap(err)
	}
	serial, err := newSerial()
	if err != nil {
		return nil, err
	}

	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Organization: []string{"authkit"},
			CommonName:   "authkit development CA " + name,
		},
		NotBefore:             time.Now().Add(-time.Minute),
		NotAfter:              time.Now().AddDate(10, 0, 0),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
	}

	cert, err := sign(template, template, &key.PublicKey, key)
	if err != nil {
		return nil, oops.With("operation", "create CA certificate").Wrap(err)
	}
	return &CA{Certificate: cert, PrivateKey: key}, nil
}

// GenerateServerCert creates a one-year server certificate signed by ca.
// Each host becomes an IP or DNS SAN; localhost and 127.0.0.1 are always
// included.
func GenerateServerCert(ca *CA, hosts []string) (*ServerCert, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, oops.Code("TLS_KEY_FAILED").With("operation", "generate server key").Wrap(err)
	}
	serial, err := newSerial()
	if err != nil {
		return nil, err
	}

	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Organization: []string{"authkit"},
			CommonName:   "authkit server",
		},
		NotBefore:   time.Now().Add(-time.Minute),
		NotAfter:    time.Now().AddDate(1, 0, 0),
		KeyUsage:    x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	addSANs(template, append([]string{"localhost", "127.0.0.1"}, hosts...))

	cert, err := sign(template, ca.Certificate, &key.PublicKey, ca.PrivateKey)
	if err != nil {
		return nil, oops.With("operation", "create server certificate").Wrap(err)
	}
	return &ServerCert{Certificate: cert, PrivateKey: key}, nil
}

// SaveCertificates writes the CA and, if non-nil, the server certificate
// to certsDir with owner-only permissions.
func SaveCertificates(certsDir string, ca *CA, server *ServerCert) error {
	if err := os.MkdirAll(certsDir, 0o700); err != nil {
		return oops.Code("TLS_SAVE_FAILED").With("path", certsDir).Wrap(err)
	}
	if err := saveCert(filepath.Join(certsDir, CACertFile), ca.Certificate); err != nil {
		return err
	}
	if err := saveKey(filepath.Join(certsDir, CAKeyFile), ca.PrivateKey); err != nil {
		return err
	}
	if server == nil {
		return nil
	}
	if err := saveCert(filepath.Join(certsDir, ServerCertFile), server.Certificate); err != nil {
		return err
	}
	return saveKey(filepath.Join(certsDir, ServerKeyFile), server.PrivateKey)
}

// LoadCA reads the CA saved in certsDir.
func LoadCA(certsDir string) (*CA, error) {
	cert, err := loadCert(filepath.Join(certsDir, CACertFile))
	if err != nil {
		return nil, err
	}
	keyPEM, err := os.ReadFile(filepath.Clean(filepath.Join(certsDir, CAKeyFile)))
	if err != nil {
		return nil, oops.Code("TLS_LOAD_FAILED").With("file", CAKeyFile).Wrap(err)
	}
	block, _ := pem.Decode(keyPEM)
	if block == nil {
		return nil, oops.Code("TLS_LOAD_FAILED").With("file", CAKeyFile).Errorf("no PEM data")
	}
	key, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		return nil, oops.Code("TLS_LOAD_FAILED").With("file", CAKeyFile).Wrap(err)
	}
	return &CA{Certificate: cert, PrivateKey: key}, nil
}

// EnsureServerCert makes sure certsDir holds a CA and a server certificate
// valid for hosts, creating whichever is missing and replacing a server
// certificate that is close to expiry or lacks one of the hosts. It
// returns the server certificate and key paths.
func EnsureServerCert(certsDir string, hosts []string) (certFile, keyFile string, err error) {
	certFile = filepath.Join(certsDir, ServerCertFile)
	keyFile = filepath.Join(certsDir, ServerKeyFile)

	ca, err := LoadCA(certsDir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if ca, err = GenerateCA(caName(hosts)); err != nil {
			return "", "", err
		}
		if err := SaveCertificates(certsDir, ca, nil); err != nil {
			return "", "", err
		}
	case err != nil:
		return "", "", err
	}

	if existing, loadErr := loadCert(certFile); loadErr == nil && usable(existing, hosts) {
		if _, statErr := os.Stat(keyFile); statErr == nil {
			return certFile, keyFile, nil
		}
	}

	server, err := GenerateServerCert(ca, hosts)
	if err != nil {
		return "", "", err
	}
	if err := SaveCertificates(certsDir, ca, server); err != nil {
		return "", "", err
	}
	return certFile, keyFile, nil
}

func caName(hosts []string) string {
	if len(hosts) > 0 && hosts[0] != "" {
		return hosts[0]
	}
	return "localhost"
}

// usable reports whether cert covers every host and is not about to expire.
func usable(cert *x509.Certificate, hosts []string) bool {
	if time.Until(cert.NotAfter) < renewBefore {
		return false
	}
	for _, host := range hosts {
		if host == "" {
			continue
		}
		if err := cert.VerifyHostname(host); err != nil {
			return false
		}
	}
	return true
}

func addSANs(template *x509.Certificate, hosts []string) {
	seen := make(map[string]bool, len(hosts))
	for _, host := range hosts {
		if host == "" || seen[host] {
			continue
		}
		seen[host] = true
		if ip := net.ParseIP(host); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, host)
		}
	}
}

func newSerial() (*big.Int, error) {
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, oops.Code("TLS_SERIAL_FAILED").Wrap(err)
	}
	return serial, nil
}

func sign(template, parent *x509.Certificate, pub *ecdsa.PublicKey, priv *ecdsa.PrivateKey) (*x509.Certificate, error) {
	der, err := x509.CreateCertificate(rand.Reader, template, parent, pub, priv)
	if err != nil {
		return nil, oops.Code("TLS_SIGN_FAILED").Wrap(err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, oops.Code("TLS_SIGN_FAILED").Wrap(err)
	}
	return cert, nil
}

// loadCert reads a PEM certificate. A missing file wraps fs.ErrNotExist.
func loadCert(path string) (*x509.Certificate, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, oops.Code("TLS_LOAD_FAILED").With("file", filepath.Base(path)).Wrap(err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, oops.Code("TLS_LOAD_FAILED").With("file", filepath.Base(path)).Errorf("no PEM data")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, oops.Code("TLS_LOAD_FAILED").With("file", filepath.Base(path)).Wrap(err)
	}
	return cert, nil
}

func saveCert(path string, cert *x509.Certificate) error {
	return writePEM(path, &pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
}

func saveKey(path string, key *ecdsa.PrivateKey) error {
	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return oops.Code("TLS_SAVE_FAILED").With("file", filepath.Base(path)).Wrap(err)
	}
	return writePEM(path, &pem.Block{Type: "EC PRIVATE KEY", Bytes: der})
}

func writePEM(path string, block *pem.Block) error {
	f, err := os.OpenFile(filepath.Clean(path), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return oops.Code("TLS_SAVE_FAILED").With("file", filepath.Base(path)).Wrap(err)
	}
	if err := pem.Encode(f, block); err != nil {
		_ = f.Close()
		return oops.Code("TLS_SAVE_FAILED").With("file", filepath.Base(path)).Wrap(err)
	}
	if err := f.Close(); err != nil {
		return oops.Code("TLS_SAVE_FAILED").With("file", filepath.Base(path)).Wrap(err)
	}
	return nil
}
