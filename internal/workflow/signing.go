package workflow

import (
	"errors"
	"fmt"
	"strings"

	"software.sslmate.com/src/go-pkcs12"

	"github.com/mobilechromeapps/apkpack/internal/config"
	"github.com/mobilechromeapps/apkpack/internal/keystore"
)

// Prompter asks for a secret. ui.PromptPassword is used on a terminal.
type Prompter func(message string) (string, error)

// LoadIdentity loads the signing key selected by s. Keystore passwords come
// from the config (literal or env:NAME) or, when prompt is non-nil, from
// the user.
func LoadIdentity(s config.Signing, prompt Prompter) (*keystore.Identity, error) {
	if !s.UsesKeystore() {
		id, err := keystore.LoadPEM(s.PrivateKey, s.Certificate)
		if err != nil {
			return nil, fmt.Errorf("signing: %w", err)
		}
		return id, nil
	}

	password, err := secret(s.StorePassword, "Keystore password", prompt)
	if err != nil {
		return nil, err
	}
	id, err := keystore.LoadPKCS12File(s.Keystore, password)
	switch {
	case errors.Is(err, keystore.ErrJKSFormat):
		return nil, errors.New(strings.TrimRight(keystore.JKSConversionHelp(s.Keystore), "\n"))
	case errors.Is(err, pkcs12.ErrIncorrectPassword) && s.KeyPassword != "":
		// keytool conversions may protect the whole file with the key password.
		keyPassword, kerr := secret(s.KeyPassword, "Key password", prompt)
		if kerr != nil {
			return nil, kerr
		}
		id, err = keystore.LoadPKCS12File(s.Keystore, keyPassword)
	}
	if err != nil {
		return nil, fmt.Errorf("signing: %s: %w", s.Keystore, err)
	}
	return id, nil
}

func secret(value, label string, prompt Prompter) (string, error) {
	v, ok, err := config.ResolveSecret(value)
	if err != nil {
		return "", fmt.Errorf("signing: %w", err)
	}
	if ok {
		return v, nil
	}
	if prompt == nil {
		return "", fmt.Errorf("signing: %s required (set it in the config, e.g. env:KEYSTORE_PASSWORD)", label)
	}
	return prompt(label)
}
