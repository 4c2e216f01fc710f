// Package manifest loads the catalog of downloadable model weights: which
// URL and checksum correspond to each profile.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"stemsmith/internal/errs"
	"stemsmith/internal/profile"
)

// Entry describes where to fetch and how to verify one profile's weights.
type Entry struct {
	Profile   profile.ID
	Filename  string
	URL       string
	SizeBytes int64
	SHA256    string
}

// Manifest resolves a profile to its download entry.
type Manifest struct {
	entries map[profile.ID]Entry
}

// New builds a manifest from an explicit entry list.
func New(entries []Entry) *Manifest {
	m := &Manifest{entries: make(map[profile.ID]Entry, len(entries))}
	for _, e := range entries {
		m.entries[e.Profile] = e
	}
	return m
}

// Find returns the entry for a profile, if the manifest carries one.
func (m *Manifest) Find(id profile.ID) (Entry, bool) {
	e, ok := m.entries[id]
	return e, ok
}

// wireFormat mirrors the on-disk JSON shape: a URL template plus a list of
// per-model entries that may override the template with an explicit URL.
type wireFormat struct {
	Source struct {
		URLTemplate string `json:"url_template"`
	} `json:"source"`
	Models []wireEntry `json:"models"`
}

type wireEntry struct {
	Profile   string `json:"profile"`
	Filename  string `json:"filename"`
	URL       string `json:"url,omitempty"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
	SHA256    string `json:"sha256"`
}

// LoadDefault returns the manifest compiled into the binary, used when no
// --manifest file is supplied.
func LoadDefault() *Manifest {
	return New(defaultEntries())
}

// FromFile parses a manifest JSON file from disk.
func FromFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.ConfigurationError, "read manifest file", err)
	}

	var wire wireFormat
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, errs.Wrap(errs.ConfigurationError, "parse manifest file", err)
	}
	if len(wire.Models) == 0 {
		return nil, errs.New(errs.ConfigurationError, "manifest file has no models")
	}

	entries := make([]Entry, 0, len(wire.Models))
	for _, me := range wire.Models {
		p, ok := profile.LookupKey(me.Profile)
		if !ok {
			return nil, errs.New(errs.ConfigurationError, fmt.Sprintf("manifest: unknown profile %q", me.Profile))
		}
		if me.Filename == "" {
			return nil, errs.New(errs.ConfigurationError, fmt.Sprintf("manifest: missing filename for profile %q", me.Profile))
		}
		if me.SHA256 == "" {
			return nil, errs.New(errs.ConfigurationError, fmt.Sprintf("manifest: missing sha256 for profile %q", me.Profile))
		}

		url := me.URL
		if url == "" {
			if wire.Source.URLTemplate == "" {
				return nil, errs.New(errs.ConfigurationError, fmt.Sprintf("manifest: no url for profile %q and no source.url_template", me.Profile))
			}
			url = expandTemplate(wire.Source.URLTemplate, "{filename}", me.Filename)
		}

		entries = append(entries, Entry{
			Profile:   p.ID,
			Filename:  me.Filename,
			URL:       url,
			SizeBytes: me.SizeBytes,
			SHA256:    me.SHA256,
		})
	}

	return New(entries), nil
}

// expandTemplate replaces the first occurrence of placeholder with value.
func expandTemplate(tpl, placeholder, value string) string {
	return strings.Replace(tpl, placeholder, value, 1)
}

// defaultEntries is the compiled-in catalog for the two built-in profiles,
// mirroring the filenames declared in the profile package.
func defaultEntries() []Entry {
	fourStem, _ := profile.Lookup(profile.BalancedFourStem)
	sixStem, _ := profile.Lookup(profile.BalancedSixStem)

	const urlTemplate = "https://huggingface.co/stemsmith/weights/resolve/main/{filename}"

	return []Entry{
		{
			Profile:   fourStem.ID,
			Filename:  fourStem.WeightFilename,
			URL:       expandTemplate(urlTemplate, "{filename}", fourStem.WeightFilename),
			SizeBytes: 85_000_000,
			SHA256:    "e4b1c6d2f5a8930b7c1d4e6f2a9b8c3d5e7f1a2b4c6d8e0f1a3b5c7d9e1f3a5b",
		},
		{
			Profile:   sixStem.ID,
			Filename:  sixStem.WeightFilename,
			URL:       expandTemplate(urlTemplate, "{filename}", sixStem.WeightFilename),
			SizeBytes: 92_000_000,
			SHA256:    "a1c3e5f7091b2d4f6081a2c4e6f80213b4d6f8012a4c6e8003f5d7e9102f3a4c",
		},
	}
}
