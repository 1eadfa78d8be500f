// Package x509util holds the keypair and certificate primitives behind the
// certificate manager. Everything works on PEM so envelopes can go straight
// into a secret backend.
package x509util

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"math/big"
	"strings"
	"time"
)

const (
	// DefaultKeySize is used when the configuration does not set one.
	DefaultKeySize = 4096

	caValidity   = 10 * 365 * 24 * time.Hour
	certValidity = 5 * 365 * 24 * time.Hour

	passphraseBytes = 24
)

// KeyPair is an RSA private key with its PEM encodings.
type KeyPair struct {
	Key *rsa.PrivateKey
}

// GenerateKeyPair generates an RSA keypair of the given bit size.
func GenerateKeyPair(bits int) (*KeyPair, error) {
	if bits <= 0 {
		bits = DefaultKeySize
	}
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("generate rsa key: %w", err)
	}
	return &KeyPair{Key: key}, nil
}

// NewPassphrase returns a fresh random passphrase for private-key encryption.
func NewPassphrase() (string, error) {
	buf := make([]byte, passphraseBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate passphrase: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// EncryptKeyPEM encodes the private key as an AES-256 encrypted PEM block
// protected by the passphrase.
func (kp *KeyPair) EncryptKeyPEM(passphrase string) (string, error) {
	der := x509.MarshalPKCS1PrivateKey(kp.Key)
	block, err := x509.EncryptPEMBlock(rand.Reader, "RSA PRIVATE KEY", der, []byte(passphrase), x509.PEMCipherAES256) //nolint:staticcheck
	if err != nil {
		return "", fmt.Errorf("encrypt private key: %w", err)
	}
	return string(pem.EncodeToMemory(block)), nil
}

// DecryptKeyPEM loads a passphrase-protected RSA private key from PEM.
func DecryptKeyPEM(keyPEM, passphrase string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(keyPEM))
	if block == nil {
		return nil, fmt.Errorf("no pem block in private key")
	}
	der := block.Bytes
	if x509.IsEncryptedPEMBlock(block) { //nolint:staticcheck
		var err error
		der, err = x509.DecryptPEMBlock(block, []byte(passphrase)) //nolint:staticcheck
		if err != nil {
			return nil, fmt.Errorf("decrypt private key: %w", err)
		}
	}
	key, err := x509.ParsePKCS1PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return key, nil
}

func newSerial() (*big.Int, error) {
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("generate serial number: %w", err)
	}
	return serial, nil
}

// CertPEM renders a DER certificate as a whitespace-trimmed PEM string.
// Trailing whitespace trips some downstream PEM parsers, so trim it here.
func CertPEM(der []byte) string {
	return strings.TrimSpace(string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))) + "\n"
}

// GenerateCA self-signs a certificate authority whose subject CN is name.
func GenerateCA(name string, kp *KeyPair) (certPEM string, err error) {
	serial, err := newSerial()
	if err != nil {
		return "", err
	}
	now := time.Now()
	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: name},
		NotBefore:             now,
		NotAfter:              now.Add(caValidity),
		KeyUsage:              x509.KeyUsageCertSign,
		IsCA:                  true,
		BasicConstraintsValid: true,
		MaxPathLen:            0,
		MaxPathLenZero:        true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &kp.Key.PublicKey, kp.Key)
	if err != nil {
		return "", fmt.Errorf("create ca certificate: %w", err)
	}
	return CertPEM(der), nil
}

// SignClientCert signs a client certificate with CN=name under the given CA.
func SignClientCert(name string, kp *KeyPair, caCertPEM string, caKey *rsa.PrivateKey) (certPEM string, err error) {
	caCert, err := ParseCertPEM(caCertPEM)
	if err != nil {
		return "", err
	}
	serial, err := newSerial()
	if err != nil {
		return "", err
	}
	now := time.Now()
	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: name},
		NotBefore:             now,
		NotAfter:              now.Add(certValidity),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
		IsCA:                  false,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, caCert, &kp.Key.PublicKey, caKey)
	if err != nil {
		return "", fmt.Errorf("create client certificate: %w", err)
	}
	return CertPEM(der), nil
}

// SignCSR signs the request held in csrPEM under the given CA, carrying the
// requester's subject and SANs over into a client certificate.
func SignCSR(csrPEM string, caCertPEM string, caKey *rsa.PrivateKey) (certPEM string, err error) {
	block, _ := pem.Decode([]byte(csrPEM))
	if block == nil {
		return "", fmt.Errorf("no pem block in csr")
	}
	csr, err := x509.ParseCertificateRequest(block.Bytes)
	if err != nil {
		return "", fmt.Errorf("parse csr: %w", err)
	}
	if err := csr.CheckSignature(); err != nil {
		return "", fmt.Errorf("verify csr signature: %w", err)
	}
	caCert, err := ParseCertPEM(caCertPEM)
	if err != nil {
		return "", err
	}
	serial, err := newSerial()
	if err != nil {
		return "", err
	}
	now := time.Now()
	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               csr.Subject,
		DNSNames:              csr.DNSNames,
		IPAddresses:           csr.IPAddresses,
		NotBefore:             now,
		NotAfter:              now.Add(certValidity),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth, x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, caCert, csr.PublicKey, caKey)
	if err != nil {
		return "", fmt.Errorf("sign csr: %w", err)
	}
	return CertPEM(der), nil
}

// ParseCertPEM loads the first certificate from a PEM string.
func ParseCertPEM(certPEM string) (*x509.Certificate, error) {
	block, _ := pem.Decode([]byte(certPEM))
	if block == nil {
		return nil, fmt.Errorf("no pem block in certificate")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse certificate: %w", err)
	}
	return cert, nil
}
