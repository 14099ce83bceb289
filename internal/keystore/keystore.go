// Package keystore loads the certificate and private key an APK is signed
// with.
package keystore

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"software.sslmate.com/src/go-pkcs12"
)

// JKS magic bytes: 0xFEEDFEED
var jksMagic = []byte{0xFE, 0xED, 0xFE, 0xED}

// ErrJKSFormat is returned when a Java KeyStore is detected.
var ErrJKSFormat = errors.New("java keystore (JKS) format detected")

// ErrKeyMismatch is returned when the private key does not belong to the
// certificate.
var ErrKeyMismatch = errors.New("private key does not match certificate")

// Identity is a signing key with its certificate chain. Chain excludes
// Certificate itself.
type Identity struct {
	Key         crypto.Signer
	Certificate *x509.Certificate
	Chain       []*x509.Certificate
}

// Fingerprint returns the SHA-256 fingerprint of the certificate as
// colon-separated uppercase hex, the form keytool and apksigner print.
func (id *Identity) Fingerprint() string {
	return Fingerprint(id.Certificate)
}

// Fingerprint returns the SHA-256 fingerprint of cert.
func Fingerprint(cert *x509.Certificate) string {
	sum := sha256.Sum256(cert.Raw)
	h := strings.ToUpper(hex.EncodeToString(sum[:]))
	parts := make([]string, 0, len(sum))
	for i := 0; i < len(h); i += 2 {
		parts = append(parts, h[i:i+2])
	}
	return strings.Join(parts, ":")
}

// detectJKS checks if data starts with JKS magic bytes.
func detectJKS(data []byte) bool {
	return len(data) >= 4 && bytes.Equal(data[:4], jksMagic)
}

// LoadPKCS12 loads the key and certificate chain from PKCS12 data.
func LoadPKCS12(data []byte, password string) (*Identity, error) {
	if detectJKS(data) {
		return nil, ErrJKSFormat
	}

	key, cert, chain, err := pkcs12.DecodeChain(data, password)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PKCS12: %w", err)
	}
	return newIdentity(key, cert, chain)
}

// LoadPKCS12File loads the key and certificate chain from a PKCS12 file.
func LoadPKCS12File(path, password string) (*Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keystore file: %w", err)
	}
	return LoadPKCS12(data, password)
}

// LoadPEM loads a private key and certificate chain from PEM files. The
// certificate file may hold intermediates after the signing certificate.
func LoadPEM(keyPath, certPath string) (*Identity, error) {
	keyData, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	key, err := parsePrivateKey(keyData)
	if err != nil {
		return nil, err
	}

	certData, err := os.ReadFile(certPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read cert file: %w", err)
	}
	var certs []*x509.Certificate
	for rest := certData; ; {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse certificate: %w", err)
		}
		certs = append(certs, cert)
	}
	if len(certs) == 0 {
		return nil, fmt.Errorf("no certificate found in %s", certPath)
	}

	return newIdentity(key, certs[0], certs[1:])
}

func parsePrivateKey(data []byte) (crypto.PrivateKey, error) {
	// Skip EC PARAMETERS and other blocks
	var block *pem.Block
	for rest := data; ; {
		block, rest = pem.Decode(rest)
		if block == nil {
			return nil, fmt.Errorf("no private key found in PEM file")
		}
		if block.Type == "PRIVATE KEY" ||
			block.Type == "EC PRIVATE KEY" ||
			block.Type == "RSA PRIVATE KEY" {
			break
		}
		if block.Type == "ENCRYPTED PRIVATE KEY" {
			return nil, fmt.Errorf("encrypted PEM keys are not supported, decrypt with: openssl pkcs8 -in key.pem -out plain.pem")
		}
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return key, nil
}

func newIdentity(key crypto.PrivateKey, cert *x509.Certificate, chain []*x509.Certificate) (*Identity, error) {
	var signer crypto.Signer
	switch k := key.(type) {
	case *rsa.PrivateKey:
		signer = k
	case *ecdsa.PrivateKey:
		signer = k
	default:
		return nil, fmt.Errorf("unsupported key type for APK signing: %T", key)
	}

	pub, ok := signer.Public().(interface{ Equal(crypto.PublicKey) bool })
	if !ok || !pub.Equal(cert.PublicKey) {
		return nil, fmt.Errorf("%w (subject %s)", ErrKeyMismatch, cert.Subject)
	}
	return &Identity{Key: signer, Certificate: cert, Chain: chain}, nil
}

// JKSConversionHelp returns help text for converting JKS to PKCS12.
func JKSConversionHelp(jksPath string) string {
	dir := filepath.Dir(jksPath)
	base := filepath.Base(jksPath)
	p12Name := strings.TrimSuffix(strings.TrimSuffix(base, ".jks"), ".keystore") + ".p12"
	p12Path := filepath.Join(dir, p12Name)

	return fmt.Sprintf(`Error: Java KeyStore (JKS) format detected

JKS files must be converted to PKCS12 format first.
Run the following command:

  keytool -importkeystore -srckeystore %s -destkeystore %s -deststoretype PKCS12

Then use the .p12 file:

  apkpack package --keystore %s
`, jksPath, p12Path, p12Path)
}
