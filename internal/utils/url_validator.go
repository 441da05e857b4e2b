package utils

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/rmitchellscott/kindling/internal/config"
)

var (
	privateIPRanges = []*net.IPNet{
		// RFC 1918
		mustParseCIDR("10.0.0.0/8"),
		mustParseCIDR("172.16.0.0/12"),
		mustParseCIDR("192.168.0.0/16"),
		// RFC 3927 link-local
		mustParseCIDR("169.254.0.0/16"),
		mustParseCIDR("127.0.0.0/8"),
		mustParseCIDR("::1/128"),
		mustParseCIDR("fe80::/10"),
		mustParseCIDR("fc00::/7"),
	}
)

func mustParseCIDR(cidr string) *net.IPNet {
	_, ipNet, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(fmt.Sprintf("failed to parse CIDR %s: %v", cidr, err))
	}
	return ipNet
}

// URLValidationConfig holds the policy applied to URLs that pages fetch.
type URLValidationConfig struct {
	BlockPrivateIPs bool
	BlockedDomains  []string

	// LookupIP resolves hostnames; nil means net.LookupIP.
	LookupIP func(host string) ([]net.IP, error)
}

// GetURLValidationConfig reads BLOCK_PRIVATE_IPS and BLOCKED_DOMAINS.
func GetURLValidationConfig() URLValidationConfig {
	blocked := config.GetList("BLOCKED_DOMAINS")
	for i, domain := range blocked {
		blocked[i] = strings.ToLower(domain)
	}
	return URLValidationConfig{
		BlockPrivateIPs: config.GetBool("BLOCK_PRIVATE_IPS", false),
		BlockedDomains:  blocked,
	}
}

// ValidateURL validates a URL according to the configured security policies
func ValidateURL(urlStr string) error {
	return ValidateURLWithConfig(urlStr, GetURLValidationConfig())
}

// ValidateURLWithConfig validates a URL with the provided configuration
func ValidateURLWithConfig(urlStr string, cfg URLValidationConfig) error {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme: %q (only http and https are allowed)", parsedURL.Scheme)
	}

	hostname := parsedURL.Hostname()
	if hostname == "" {
		return fmt.Errorf("URL missing hostname")
	}

	hostnameLower := strings.ToLower(hostname)
	for _, blockedDomain := range cfg.BlockedDomains {
		if hostnameLower == blockedDomain || strings.HasSuffix(hostnameLower, "."+blockedDomain) {
			return fmt.Errorf("domain %s is blocked", hostname)
		}
	}

	if !cfg.BlockPrivateIPs {
		return nil
	}

	var ips []net.IP
	if ip := net.ParseIP(hostname); ip != nil {
		ips = []net.IP{ip}
	} else {
		lookup := cfg.LookupIP
		if lookup == nil {
			lookup = net.LookupIP
		}
		ips, err = lookup(hostname)
		if err != nil {
			// unresolvable hosts fail at fetch time anyway
			return nil
		}
	}

	for _, ip := range ips {
		if isPrivateIP(ip) {
			return fmt.Errorf("private IP address %s is blocked for hostname %s", ip.String(), hostname)
		}
	}
	return nil
}

func isPrivateIP(ip net.IP) bool {
	for _, privateRange := range privateIPRanges {
		if privateRange.Contains(ip) {
			return true
		}
	}
	return false
}
