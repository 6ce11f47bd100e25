// Package credentials loads object store credentials from key=value files
// in dotenv syntax.
//
// Each file describes one account:
//
//	access_key=AKIA...
//	secret_key=...
//	default_region=eu-north-1
//	endpoint_url=http://localhost:9000   (optional)
//	force_path_style=true                (optional)
//
// The file stem is the credential name.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

var (
	ErrNoCredentials      = errors.New("no credential files found")
	ErrMissingField       = errors.New("credential file is missing a required field")
	ErrInvalidField       = errors.New("credential file has an invalid value")
	ErrUnknownField       = errors.New("credential file has an unknown key")
	ErrCredentialNotFound = errors.New("credential not found")
)

// FileCredential is one account from the creds directory. Secrets are
// never serialized; persisted items carry the name and are re-bound on load.
type FileCredential struct {
	Name           string `json:"name"`
	AccessKey      string `json:"-"`
	SecretKey      string `json:"-"`
	DefaultRegion  string `json:"default_region"`
	EndpointURL    string `json:"endpoint_url,omitempty"`
	ForcePathStyle bool   `json:"force_path_style,omitempty"`
	Selected       bool   `json:"selected,omitempty"`
}

// Info is the non-secret reference stored with resumable transfers
type Info struct {
	Name   string `json:"name"`
	Region string `json:"region"`
}

// Info returns the name/region reference for c
func (c FileCredential) Info() Info {
	return Info{Name: c.Name, Region: c.DefaultRegion}
}

// HasSecrets reports whether the access and secret keys are present
func (c FileCredential) HasSecrets() bool {
	return c.AccessKey != "" && c.SecretKey != ""
}

// ParseFile reads a single credential file. Unknown keys are rejected so a
// typo does not silently fall back to a default.
func ParseFile(path string, selected bool) (FileCredential, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		return FileCredential{}, fmt.Errorf("failed to parse credential file %s: %w", path, err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if name == "" {
		name = "default"
	}
	cred := FileCredential{Name: name, Selected: selected}

	for key, value := range values {
		switch key {
		case "access_key":
			cred.AccessKey = value
		case "secret_key":
			cred.SecretKey = value
		case "default_region":
			cred.DefaultRegion = value
		case "endpoint_url":
			cred.EndpointURL = value
		case "force_path_style":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return FileCredential{}, fmt.Errorf("%w: force_path_style=%q in %s", ErrInvalidField, value, path)
			}
			cred.ForcePathStyle = b
		default:
			return FileCredential{}, fmt.Errorf("%w: %q in %s", ErrUnknownField, key, path)
		}
	}

	var missing []string
	if cred.AccessKey == "" {
		missing = append(missing, "access_key")
	}
	if cred.SecretKey == "" {
		missing = append(missing, "secret_key")
	}
	if cred.DefaultRegion == "" {
		missing = append(missing, "default_region")
	}
	if len(missing) > 0 {
		return FileCredential{}, fmt.Errorf("%w: %s in %s", ErrMissingField, strings.Join(missing, ", "), path)
	}
	return cred, nil
}

// LoadDir parses every regular file in dir, sorted by name. The first
// credential is marked selected.
func LoadDir(dir string) ([]FileCredential, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoCredentials, dir)
		}
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var creds []FileCredential
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		cred, err := ParseFile(filepath.Join(dir, entry.Name()), len(creds) == 0)
		if err != nil {
			return nil, err
		}
		creds = append(creds, cred)
	}
	if len(creds) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoCredentials, dir)
	}
	return creds, nil
}

// Load reads a single file when file is set, otherwise the creds directory
func Load(file, dir string) ([]FileCredential, error) {
	if file != "" {
		cred, err := ParseFile(file, true)
		if err != nil {
			return nil, err
		}
		return []FileCredential{cred}, nil
	}
	return LoadDir(dir)
}

// Set is a loaded list of credentials with lookup by name
type Set []FileCredential

// Selected returns the selected credential, or the first one
func (s Set) Selected() (FileCredential, bool) {
	for _, c := range s {
		if c.Selected {
			return c, true
		}
	}
	if len(s) > 0 {
		return s[0], true
	}
	return FileCredential{}, false
}

// Lookup finds a credential by name
func (s Set) Lookup(name string) (FileCredential, error) {
	for _, c := range s {
		if c.Name == name {
			return c, nil
		}
	}
	return FileCredential{}, fmt.Errorf("%w: %q", ErrCredentialNotFound, name)
}

// Bind returns the full credential matching ref's name. The persisted
// region and endpoint win when the current file no longer has them.
func (s Set) Bind(ref FileCredential) (FileCredential, error) {
	cred, err := s.Lookup(ref.Name)
	if err != nil {
		return ref, err
	}
	if cred.DefaultRegion == "" {
		cred.DefaultRegion = ref.DefaultRegion
	}
	if cred.EndpointURL == "" {
		cred.EndpointURL = ref.EndpointURL
	}
	return cred, nil
}
