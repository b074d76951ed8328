package versions

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cockroachdb/errors"
	"github.com/ghodss/yaml"
	"github.com/pelletier/go-toml/v2"
)

var (
	ErrNoVersions     = errors.New("no versions configured")
	ErrNothingMatched = errors.New("no versions match the provided filter")
)

// Format is the encoding of a versions file.
type Format int

const (
	FormatTOML Format = iota
	FormatYAML
)

// FormatFor picks the format of a versions file by its extension. YAML also
// covers JSON files.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// LoadOpts restricts which apps are loaded. Filtering happens before
// validation, so problems in excluded records are not reported.
type LoadOpts struct {
	// Filter, if set, keeps only records whose app matches.
	Filter *regexp.Regexp

	// Exclude drops records whose app matches any of these glob patterns.
	Exclude []string
}

func (o LoadOpts) active() bool { return o.Filter != nil || len(o.Exclude) > 0 }

// Load reads, filters and validates the versions file at path.
func Load(path string, opts LoadOpts) (*Versions, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't read file %q", path)
	}

	v, err := Parse(b, FormatFor(path), opts)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't get versions from file %q", path)
	}
	return v, nil
}

// Parse decodes a versions file, filters it and validates it.
func Parse(b []byte, format Format, opts LoadOpts) (*Versions, error) {
	raw, err := decode(b, format)
	if err != nil {
		return nil, err
	}

	if opts.active() {
		raw.Versions, err = filterRecords(raw.Versions, opts)
		if err != nil {
			return nil, err
		}
		if len(raw.Versions) == 0 {
			return nil, ErrNothingMatched
		}
	}

	return FromRaw(raw)
}

func decode(b []byte, format Format) (RawVersions, error) {
	var raw RawVersions
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(b, &raw); err != nil {
			return raw, err
		}
	default:
		if err := toml.Unmarshal(b, &raw); err != nil {
			var derr *toml.DecodeError
			if errors.As(err, &derr) {
				return raw, errors.Newf("%s", derr.String())
			}
			return raw, err
		}
	}

	if raw.Versions == nil {
		return raw, ErrNoVersions
	}
	return raw, nil
}

func filterRecords(records []RawAppVersion, opts LoadOpts) ([]RawAppVersion, error) {
	for _, pat := range opts.Exclude {
		if !doublestar.ValidatePattern(pat) {
			return nil, errors.Newf("invalid exclude pattern %q", pat)
		}
	}

	var kept []RawAppVersion
	for _, rec := range records {
		if opts.Filter != nil && !opts.Filter.MatchString(rec.App) {
			continue
		}
		excluded := false
		for _, pat := range opts.Exclude {
			if ok, _ := doublestar.Match(pat, rec.App); ok {
				excluded = true
				break
			}
		}
		if !excluded {
			kept = append(kept, rec)
		}
	}
	return kept, nil
}
