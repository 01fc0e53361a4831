// Package certs generates self-signed TLS certificates for local endpoints
// such as the metrics listener.
package certs

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultCertPath is the default path for the TLS certificate.
	DefaultCertPath = "certs/foundation.crt"
	// DefaultKeyPath is the default path for the TLS key.
	DefaultKeyPath = "certs/foundation.key"
	// DefaultValidityYears is the default validity period for self-signed certificates.
	DefaultValidityYears = 10
	// DefaultCommonName is used when Options.CommonName is empty.
	DefaultCommonName = "foundation"
)

// Options controls certificate generation.
type Options struct {
	CertPath      string
	KeyPath       string
	CommonName    string
	ValidityYears int

	// IPs and DNSNames are merged with the localhost defaults.
	IPs      []net.IP
	DNSNames []string

	// DetectNetworkIPs adds the addresses of all up, non-loopback interfaces.
	DetectNetworkIPs bool

	Logger zerolog.Logger
}

func (o *Options) setDefaults() {
	if o.CertPath == "" {
		o.CertPath = DefaultCertPath
	}
	if o.KeyPath == "" {
		o.KeyPath = DefaultKeyPath
	}
	if o.CommonName == "" {
		o.CommonName = DefaultCommonName
	}
	if o.ValidityYears <= 0 {
		o.ValidityYears = DefaultValidityYears
	}
}

// EnsureCertificates generates a self-signed pair unless both files exist.
// An incomplete pair is regenerated. Returns the paths in use.
func EnsureCertificates(opts Options) (certPath, keyPath string, err error) {
	opts.setDefaults()
	certPath, keyPath = opts.CertPath, opts.KeyPath

	certExists := fileExists(certPath)
	keyExists := fileExists(keyPath)

	if certExists && keyExists {
		opts.Logger.Debug().
			Str("cert", certPath).
			Str("key", keyPath).
			Msg("TLS certificates found")
		return certPath, keyPath, nil
	}

	if certExists || keyExists {
		opts.Logger.Warn().
			Bool("cert_exists", certExists).
			Bool("key_exists", keyExists).
			Msg("incomplete TLS certificate pair found, regenerating both")
	}

	if opts.DetectNetworkIPs {
		ips, err := NetworkIPs()
		if err != nil {
			opts.Logger.Warn().Err(err).Msg("failed to detect network IPs, certificate will only work for localhost")
		}
		opts.IPs = append(opts.IPs, ips...)
	}

	if err := GenerateSelfSigned(opts); err != nil {
		return "", "", fmt.Errorf("generate self-signed certificates: %w", err)
	}

	opts.Logger.Info().
		Str("cert", certPath).
		Str("key", keyPath).
		Int("validity_years", opts.ValidityYears).
		Int("ips", len(opts.IPs)).
		Msg("self-signed TLS certificates generated")

	return certPath, keyPath, nil
}

// GenerateSelfSigned writes an ECDSA P-256 self-signed certificate and key.
// Existing files are overwritten. The key file is created with mode 0600.
func GenerateSelfSigned(opts Options) error {
	opts.setDefaults()

	for _, dir := range []string{filepath.Dir(opts.CertPath), filepath.Dir(opts.KeyPath)} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create cert directory: %w", err)
		}
	}

	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("generate private key: %w", err)
	}

	serialNumberLimit := new(big.Int).Lsh(big.NewInt(1), 128)
	serialNumber, err := rand.Int(rand.Reader, serialNumberLimit)
	if err != nil {
		return fmt.Errorf("generate serial number: %w", err)
	}

	notBefore := time.Now()
	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{"foundation self-signed"},
			CommonName:   opts.CommonName,
		},
		NotBefore:             notBefore,
		NotAfter:              notBefore.AddDate(opts.ValidityYears, 0, 0),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IPAddresses:           mergeIPs(opts.IPs),
		DNSNames:              mergeDNS(opts.CommonName, opts.DNSNames),
	}

	derBytes, err := x509.CreateCertificate(rand.Reader, &template, &template, &privateKey.PublicKey, privateKey)
	if err != nil {
		return fmt.Errorf("create certificate: %w", err)
	}

	privBytes, err := x509.MarshalECPrivateKey(privateKey)
	if err != nil {
		return fmt.Errorf("marshal private key: %w", err)
	}

	if err := writePEM(opts.CertPath, 0o644, "CERTIFICATE", derBytes); err != nil {
		return fmt.Errorf("write certificate: %w", err)
	}
	if err := writePEM(opts.KeyPath, 0o600, "EC PRIVATE KEY", privBytes); err != nil {
		return fmt.Errorf("write private key: %w", err)
	}
	return nil
}

func writePEM(path string, mode os.FileMode, blockType string, der []byte) error {
	// #nosec G304
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if err := pem.Encode(f, &pem.Block{Type: blockType, Bytes: der}); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// mergeIPs adds the loopback defaults and removes duplicates. Output is sorted.
func mergeIPs(extra []net.IP) []net.IP {
	all := append([]net.IP{net.ParseIP("127.0.0.1"), net.ParseIP("::1")}, extra...)

	seen := make(map[string]net.IP, len(all))
	for _, ip := range all {
		if ip != nil {
			seen[ip.String()] = ip
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := make([]net.IP, 0, len(keys))
	for _, k := range keys {
		out = append(out, seen[k])
	}
	return out
}

// mergeDNS adds the localhost defaults and removes duplicates. Output is sorted.
func mergeDNS(commonName string, extra []string) []string {
	all := append([]string{"localhost", "localhost.localdomain", commonName}, extra...)
	out := make([]string, 0, len(all))
	for _, name := range all {
		if name != "" {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// NetworkIPs returns all non-loopback, non-link-local addresses of up interfaces.
func NetworkIPs() ([]net.IP, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("get network interfaces: %w", err)
	}

	var ips []net.IP
	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil || ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
				continue
			}
			ips = append(ips, ip)
		}
	}
	return ips, nil
}
