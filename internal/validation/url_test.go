package validation

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"video-generation-api/internal/domain"
)

// staticLookup resolves every hostname to the given IPs; unknown hosts fail.
func staticLookup(hosts map[string][]string) lookupFunc {
	return func(_ context.Context, host string) ([]net.IPAddr, error) {
		ips, ok := hosts[host]
		if !ok {
			return nil, errors.New("no such host")
		}
		out := make([]net.IPAddr, 0, len(ips))
		for _, ip := range ips {
			out = append(out, net.IPAddr{IP: net.ParseIP(ip)})
		}
		return out, nil
	}
}

func newTestURLValidator(hosts map[string][]string) *URLValidator {
	return &URLValidator{lookup: staticLookup(hosts), timeout: time.Second}
}

func TestValidateImageSource(t *testing.T) {
	ctx := context.Background()
	v := newTestURLValidator(map[string][]string{
		"example.com":     {"93.184.216.34"},
		"rebound.evil":    {"127.0.0.1"},
		"internal.corp":   {"10.1.2.3"},
		"dual.evil":       {"93.184.216.34", "192.168.1.1"},
		"metadata-v6.lan": {"fe80::1"},
	})

	t.Run("should accept a public https URL unchanged", func(t *testing.T) {
		got, err := v.ValidateImageSource(ctx, "https://example.com/a.jpg")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "https://example.com/a.jpg" {
			t.Errorf("URL modified: %s", got)
		}
	})

	rejected := map[string]string{
		"empty":                     "",
		"ftp scheme":                "ftp://example.com/a.jpg",
		"file scheme":               "file:///etc/passwd",
		"gopher smuggled in query":  "https://example.com/?u=gopher://x",
		"dict scheme":               "dict://example.com:11/d",
		"no hostname":               "https:///a.jpg",
		"localhost":                 "http://localhost/a.jpg",
		"zero address":              "http://0.0.0.0/a.jpg",
		"gcp metadata hostname":     "http://metadata.google.internal/computeMetadata",
		"aws metadata literal":      "http://169.254.169.254/latest/meta-data/",
		"loopback literal":          "http://127.0.0.1/a.jpg",
		"dns rebinding to loopback": "https://rebound.evil/a.jpg",
		"private range":             "https://internal.corp/a.jpg",
		"one private record":        "https://dual.evil/a.jpg",
		"v6 link local":             "http://metadata-v6.lan/a.jpg",
		"embedded credentials":      "https://user@example.com/a.jpg",
		"unresolvable":              "https://does-not-exist.invalid/a.jpg",
	}
	for name, raw := range rejected {
		t.Run("should reject "+name, func(t *testing.T) {
			_, err := v.ValidateImageSource(ctx, raw)
			if err == nil {
				t.Fatalf("expected rejection for %q", raw)
			}
			if !domain.IsKind(err, domain.FaultValidation) {
				t.Errorf("expected validation fault, got %v", err)
			}
		})
	}

	t.Run("should reject oversized URLs", func(t *testing.T) {
		long := "https://example.com/" + string(make([]byte, maxURLLen))
		if _, err := v.ValidateImageSource(ctx, long); err == nil {
			t.Fatal("expected rejection of oversized URL")
		}
	})
}

func TestValidateWebhookURL(t *testing.T) {
	ctx := context.Background()
	v := newTestURLValidator(map[string][]string{
		"hooks.example.com": {"203.0.113.9"},
		"sneaky.example":    {"172.16.0.5"},
	})

	if _, err := v.ValidateWebhookURL(ctx, "https://hooks.example.com/cb"); err != nil {
		t.Fatalf("public webhook URL rejected: %v", err)
	}
	if _, err := v.ValidateWebhookURL(ctx, "https://sneaky.example/cb"); err == nil {
		t.Fatal("webhook URL resolving to a private range must be rejected")
	}
}

func TestIsPrivateIP(t *testing.T) {
	private := []string{"127.0.0.1", "10.0.0.1", "172.16.0.1", "172.31.255.255", "192.168.0.1", "169.254.169.254", "::1", "fc00::1", "fe80::1"}
	for _, s := range private {
		if !IsPrivateIP(net.ParseIP(s)) {
			t.Errorf("%s should be private", s)
		}
	}
	public := []string{"93.184.216.34", "8.8.8.8", "2606:4700::1111", "172.32.0.1"}
	for _, s := range public {
		if IsPrivateIP(net.ParseIP(s)) {
			t.Errorf("%s should be public", s)
		}
	}
}
