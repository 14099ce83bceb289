package fixture

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"sync"
	"time"
)

var (
	identityOnce sync.Once
	identityKey  *rsa.PrivateKey
	identityCert *x509.Certificate
	identityErr  error
)

// Identity returns a self-signed RSA signing identity. It is generated once
// per test binary.
func Identity() (*rsa.PrivateKey, *x509.Certificate, error) {
	identityOnce.Do(func() {
		identityKey, identityErr = rsa.GenerateKey(rand.Reader, 2048)
		if identityErr != nil {
			return
		}
		tmpl := &x509.Certificate{
			SerialNumber: big.NewInt(1),
			Subject:      pkix.Name{CommonName: "apkpack test", Organization: []string{"Example"}},
			NotBefore:    time.Now().Add(-time.Hour),
			NotAfter:     time.Now().Add(25 * 365 * 24 * time.Hour),
			KeyUsage:     x509.KeyUsageDigitalSignature,
		}
		var der []byte
		der, identityErr = x509.CreateCertificate(rand.Reader, tmpl, tmpl, &identityKey.PublicKey, identityKey)
		if identityErr != nil {
			return
		}
		identityCert, identityErr = x509.ParseCertificate(der)
	})
	return identityKey, identityCert, identityErr
}

// WritePEM writes the identity as a PKCS#8 key file and a certificate file.
func WritePEM(keyPath, certPath string) error {
	key, cert, err := Identity()
	if err != nil {
		return err
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return err
	}
	if err := os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), 0o600); err != nil {
		return err
	}
	return os.WriteFile(certPath, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw}), 0o644)
}
