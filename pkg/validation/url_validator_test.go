package validation

import (
	"testing"

	apperrors "heri-science-api/internal/errors"
)

const pixelDataURL = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mP8/5+hHgAHggJ/PchI7wAAAABJRU5ErkJggg=="

func expectMessage(t *testing.T, err error, want string) {
	t.Helper()
	appErr, ok := err.(*apperrors.AppError)
	if !ok {
		t.Fatalf("Expected AppError, got: %T", err)
	}
	if appErr.Message != want {
		t.Errorf("Expected '%s' error, got: %s", want, appErr.Message)
	}
}

func TestNewURLValidator(t *testing.T) {
	validator := NewURLValidator()
	if validator == nil {
		t.Fatal("Expected non-nil URL validator")
	}

	expectedSchemes := []string{"http", "https"}
	if len(validator.allowedSchemes) != len(expectedSchemes) {
		t.Errorf("Expected %d schemes, got %d", len(expectedSchemes), len(validator.allowedSchemes))
	}
	if !validator.allowDataURLs {
		t.Error("Expected data URLs to be allowed by default")
	}
}

func TestValidateImageURL_ValidURLs(t *testing.T) {
	validator := NewURLValidator()

	validURLs := []string{
		"http://example.com/image.jpg",
		"https://example.com/image.png",
		"HTTPS://upload.wikimedia.org/wikipedia/commons/a/a1/Vase.jpg",
		"https://subdomain.example.com/path/to/image.gif",
		"http://192.168.1.1/image.jpg",
		pixelDataURL,
	}

	for _, u := range validURLs {
		if err := validator.ValidateImageURL(u); err != nil {
			t.Errorf("Expected valid URL %s to pass validation, got error: %v", u, err)
		}
	}
}

func TestValidateImageURL_EmptyURL(t *testing.T) {
	validator := NewURLValidator()

	for _, u := range []string{"", "   ", "\t\n"} {
		err := validator.ValidateImageURL(u)
		if err == nil {
			t.Fatalf("Expected empty URL '%s' to fail validation", u)
		}
		expectMessage(t, err, "No image URL provided")
	}
}

func TestValidateImageURL_InvalidFormat(t *testing.T) {
	validator := NewURLValidator()

	invalidURLs := []string{
		"not-a-url",
		"://missing-scheme",
		"http://",
		"ftp://example.com",
		"data:image/png;base64",
	}

	for _, u := range invalidURLs {
		if err := validator.ValidateImageURL(u); err == nil {
			t.Errorf("Expected invalid URL '%s' to fail validation", u)
		}
	}
}

func TestValidateImageURL_NoHost(t *testing.T) {
	validator := NewURLValidator()

	for _, u := range []string{"http://", "https://", "http:///path"} {
		err := validator.ValidateImageURL(u)
		if err == nil {
			t.Fatalf("Expected URL without host '%s' to fail validation", u)
		}
		expectMessage(t, err, "URL must have a valid host")
	}
}

func TestValidateImageURL_InvalidScheme(t *testing.T) {
	validator := NewURLValidatorWithOptions([]string{"http", "https"}, nil)

	for _, u := range []string{"ftp://example.com/image.jpg", "file://local/path/image.jpg", pixelDataURL} {
		err := validator.ValidateImageURL(u)
		if err == nil {
			t.Fatalf("Expected URL with invalid scheme '%s' to fail validation", u)
		}
		expectMessage(t, err, "URL scheme not allowed")
	}

	validator.AllowDataURLs(true)
	if err := validator.ValidateImageURL(pixelDataURL); err != nil {
		t.Errorf("Expected data URL to pass once enabled, got %v", err)
	}
}

func TestValidateImageURL_RestrictedHosts(t *testing.T) {
	validator := NewURLValidatorWithOptions([]string{"http", "https"}, []string{"example.com", "Trusted.com"})

	for _, u := range []string{"http://example.com/image.jpg", "https://trusted.com:8443/image.png"} {
		if err := validator.ValidateImageURL(u); err != nil {
			t.Errorf("Expected allowed host URL '%s' to pass validation, got error: %v", u, err)
		}
	}

	for _, u := range []string{"http://malicious.com/image.jpg", "https://untrusted.com/image.png"} {
		err := validator.ValidateImageURL(u)
		if err == nil {
			t.Fatalf("Expected disallowed host URL '%s' to fail validation", u)
		}
		expectMessage(t, err, "URL host not allowed")
	}
}

func TestValidateImageURL_PrivateHosts(t *testing.T) {
	validator := NewURLValidator().BlockPrivateHosts(true)

	for _, u := range []string{
		"http://localhost/a.png",
		"http://127.0.0.1/a.png",
		"http://10.0.0.5/a.png",
		"http://169.254.169.254/latest/meta-data",
		"http://[::1]/a.png",
	} {
		err := validator.ValidateImageURL(u)
		if err == nil {
			t.Fatalf("Expected private host '%s' to be rejected", u)
		}
		expectMessage(t, err, "URL host not allowed")
	}

	if err := validator.ValidateImageURL("https://8.8.8.8/a.png"); err != nil {
		t.Errorf("Expected public IP to pass, got %v", err)
	}
}

func TestIsDataURL(t *testing.T) {
	if !IsDataURL(pixelDataURL) || !IsDataURL("  DATA:image/jpeg;base64,xx") {
		t.Error("Expected data URLs to be detected")
	}
	if IsDataURL("https://example.com/data:image/png") || IsDataURL("data:text/plain,hi") {
		t.Error("Expected non-image references to be rejected")
	}
}
