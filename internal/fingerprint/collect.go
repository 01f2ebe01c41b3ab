package fingerprint

import (
	"os"
	"runtime"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/tapp-so/tapp-go/internal/tappapi"
)

// Collector gathers the environment signals sent with a fingerprint.
type Collector struct {
	Now    func() time.Time
	Getenv func(string) string

	// ScreenResolution is reported verbatim; hosts with a display set it.
	ScreenResolution string
}

// DefaultCollector reads the process environment and the wall clock.
var DefaultCollector = Collector{
	Now:              time.Now,
	Getenv:           os.Getenv,
	ScreenResolution: "unknown",
}

// Collect builds a fingerprint request from the default collector.
func Collect(tappToken, bundleID string, body *string, deviceID string) tappapi.FingerprintRequest {
	return DefaultCollector.Collect(tappToken, bundleID, body, deviceID)
}

// Collect builds the fingerprint request for the given surface body.
func (c Collector) Collect(tappToken, bundleID string, body *string, deviceID string) tappapi.FingerprintRequest {
	now := c.Now()
	tag := c.locale()
	base, _ := tag.Base()
	region, conf := tag.Region()

	regionCode := "unknown"
	if conf != language.No {
		regionCode = region.String()
	}

	userAgent := "App/unknown"
	if bundleID != "" {
		userAgent = "App/" + bundleID
	}

	return tappapi.FingerprintRequest{
		TappToken:         tappToken,
		WebView:           body,
		ScreenResolution:  c.ScreenResolution,
		DeviceName:        runtime.GOOS + "/" + runtime.GOARCH,
		Language:          tag.String(),
		Region:            regionCode,
		Locale:            base.String() + "-" + regionCode,
		Calendar:          extension(tag, "ca", "gregorian"),
		NumberingSystem:   extension(tag, "nu", "latn"),
		DefaultDateFormat: now.Format(shortDateLayout(regionCode)),
		Timezone:          c.timezone(now),
		Platform:          runtime.GOOS,
		UserAgent:         userAgent,
		Timestamp:         now.Unix(),
		BundleID:          bundleID,
		DeviceID:          deviceID,
	}
}

// locale parses the POSIX locale variables, e.g. "de_DE.UTF-8@euro".
func (c Collector) locale() language.Tag {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		raw := c.Getenv(key)
		if raw == "" || raw == "C" || raw == "POSIX" {
			continue
		}
		if i := strings.IndexAny(raw, ".@"); i >= 0 {
			raw = raw[:i]
		}
		if tag, err := language.Parse(strings.ReplaceAll(raw, "_", "-")); err == nil {
			return tag
		}
	}
	return language.AmericanEnglish
}

func (c Collector) timezone(now time.Time) string {
	if tz := c.Getenv("TZ"); tz != "" {
		return strings.TrimPrefix(tz, ":")
	}
	if name := now.Location().String(); name != "Local" {
		return name
	}
	name, _ := now.Zone()
	return name
}

func extension(tag language.Tag, key, fallback string) string {
	if v := tag.TypeForKey(key); v != "" {
		return v
	}
	return fallback
}

func shortDateLayout(region string) string {
	switch region {
	case "US":
		return "1/2/06"
	case "CN", "JP", "KR", "TW":
		return "2006/01/02"
	default:
		return "02/01/2006"
	}
}
