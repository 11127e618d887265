package validation

import (
	"net"
	"net/url"
	"strings"

	apperrors "heri-science-api/internal/errors"
)

const dataImagePrefix = "data:image/"

// URLValidator checks image references supplied by clients
type URLValidator struct {
	allowedSchemes []string
	allowedHosts   []string
	allowDataURLs  bool
	blockPrivate   bool
}

// NewURLValidator accepts http(s) URLs on any host and inline data:image URLs
func NewURLValidator() *URLValidator {
	return &URLValidator{
		allowedSchemes: []string{"http", "https"},
		allowedHosts:   []string{}, // empty means all hosts allowed
		allowDataURLs:  true,
	}
}

// NewURLValidatorWithOptions creates a URL validator with custom options.
// Data URLs are rejected unless enabled with AllowDataURLs.
func NewURLValidatorWithOptions(schemes []string, hosts []string) *URLValidator {
	return &URLValidator{
		allowedSchemes: schemes,
		allowedHosts:   hosts,
	}
}

// AllowDataURLs toggles acceptance of data:image URLs
func (v *URLValidator) AllowDataURLs(allow bool) *URLValidator {
	v.allowDataURLs = allow
	return v
}

// BlockPrivateHosts rejects loopback, private and link-local IP literals
func (v *URLValidator) BlockPrivateHosts(block bool) *URLValidator {
	v.blockPrivate = block
	return v
}

// IsDataURL reports whether ref is an inline image
func IsDataURL(ref string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(ref)), dataImagePrefix)
}

// ValidateImageURL validates if the provided reference is acceptable for image processing
func (v *URLValidator) ValidateImageURL(imageURL string) error {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return apperrors.NewValidationError("No image URL provided", nil)
	}

	if IsDataURL(imageURL) {
		if !v.allowDataURLs {
			return apperrors.NewValidationError("URL scheme not allowed", nil)
		}
		if !strings.Contains(imageURL, ",") {
			return apperrors.NewValidationError("Malformed data URL", nil)
		}
		return nil
	}

	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return apperrors.NewValidationError("Invalid URL format", err)
	}

	if !v.isSchemeAllowed(strings.ToLower(parsedURL.Scheme)) {
		return apperrors.NewValidationError("URL scheme not allowed", nil)
	}

	if parsedURL.Hostname() == "" {
		return apperrors.NewValidationError("URL must have a valid host", nil)
	}

	if len(v.allowedHosts) > 0 && !v.isHostAllowed(parsedURL.Hostname()) {
		return apperrors.NewValidationError("URL host not allowed", nil)
	}

	if v.blockPrivate && isPrivateHost(parsedURL.Hostname()) {
		return apperrors.NewValidationError("URL host not allowed", nil)
	}

	return nil
}

// isSchemeAllowed checks if the URL scheme is in the allowed list
func (v *URLValidator) isSchemeAllowed(scheme string) bool {
	for _, allowed := range v.allowedSchemes {
		if scheme == allowed {
			return true
		}
	}
	return false
}

// isHostAllowed checks if the URL host is in the allowed list
// Returns true if no host restrictions are set (empty allowedHosts)
func (v *URLValidator) isHostAllowed(host string) bool {
	if len(v.allowedHosts) == 0 {
		return true
	}
	host = strings.ToLower(host)
	for _, allowed := range v.allowedHosts {
		if host == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

func isPrivateHost(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified()
}
