// Package version tracks slimd's own release version and, optionally,
// whether a newer release is published, grounded on the teacher's
// common/version package.
package version

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/blang/semver"
	"github.com/op/go-logging"
)

// Current is slimd's own release version.
var Current = semver.MustParse("0.1.0")

// ManifestURL is where the current-release manifest is published. Overridable
// for tests.
var ManifestURL = "https://s3.amazonaws.com/slimd-versions/versions.json"

// Manifest is the shape of the published version manifest: one semver string
// per platform.
type Manifest struct {
	Linux string `json:"linux"`
	Darwin string `json:"darwin"`
	Windows string `json:"windows"`
}

// FetchLatest downloads and parses the version manifest, grounded on
// GetLatestVersions's http.Client-with-timeout-then-json.Unmarshal shape.
func FetchLatest() (Manifest, error) {
	var manifest Manifest
	client := http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(ManifestURL)
	if err != nil {
		return manifest, fmt.Errorf("version: fetching manifest: %w", err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&manifest); err != nil {
		return manifest, fmt.Errorf("version: decoding manifest: %w", err)
	}
	return manifest, nil
}

// PlatformVersion picks out manifest's entry for goos ("linux", "darwin",
// "windows"), returning an error for any other GOOS.
func (m Manifest) PlatformVersion(goos string) (string, error) {
	switch goos {
	case "linux":
		return m.Linux, nil
	case "darwin":
		return m.Darwin, nil
	case "windows":
		return m.Windows, nil
	default:
		return "", fmt.Errorf("version: no manifest entry for GOOS %q", goos)
	}
}

// CheckNewerAvailable reports whether goos's manifest entry names a release
// newer than Current, logging (but not failing on) any fetch/parse error.
func CheckNewerAvailable(goos string, log *logging.Logger) bool {
	manifest, err := FetchLatest()
	if err != nil {
		log.Warningf("version: could not check for updates: %v", err)
		return false
	}
	raw, err := manifest.PlatformVersion(goos)
	if err != nil || raw == "" {
		return false
	}
	latest, err := semver.Parse(raw)
	if err != nil {
		log.Warningf("version: manifest has an unparseable version %q: %v", raw, err)
		return false
	}
	return Current.LT(latest)
}
