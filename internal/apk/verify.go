package apk

import (
	"crypto/x509"
	"fmt"
	"time"

	"github.com/avast/apkverifier"

	"github.com/mobilechromeapps/apkpack/internal/keystore"
)

// Signature describes the verified signer of an APK.
type Signature struct {
	Scheme      int       `json:"scheme"`
	Fingerprint string    `json:"sha256"`
	Subject     string    `json:"subject"`
	Issuer      string    `json:"issuer"`
	NotAfter    time.Time `json:"not_after"`

	cert *x509.Certificate
}

// Certificate returns the signing certificate.
func (s *Signature) Certificate() *x509.Certificate {
	return s.cert
}

// Verify checks the APK signature and returns the signer.
func Verify(path string) (*Signature, error) {
	res, err := apkverifier.Verify(path, nil)
	if err != nil {
		return nil, fmt.Errorf("APK verification failed: %w", err)
	}

	// Pick the best certificate (prefers v3 > v2 > v1)
	_, cert := apkverifier.PickBestApkCert(res.SignerCerts)
	if cert == nil {
		return nil, fmt.Errorf("failed to extract certificate: no valid certificate found")
	}

	return &Signature{
		Scheme:      res.SigningSchemeId,
		Fingerprint: keystore.Fingerprint(cert),
		Subject:     cert.Subject.String(),
		Issuer:      cert.Issuer.String(),
		NotAfter:    cert.NotAfter,
		cert:        cert,
	}, nil
}
