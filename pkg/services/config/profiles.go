package config

import (
	"context"
	"fmt"
	"os"

	"github.com/de-tools/cloud-audit/pkg/models/domain"
	"gopkg.in/ini.v1"
)

// Profile names a service account key by file or by secret locator.
type Profile struct {
	Name    string
	KeyFile string
	Locator string
	Project string
}

// Reference turns the profile into a credential reference, reading the key
// file when one is configured.
func (p *Profile) Reference() (domain.CredentialReference, error) {
	ref := domain.CredentialReference{Locator: p.Locator, ExpectedProject: p.Project}
	if p.KeyFile == "" {
		return ref, nil
	}
	material, err := os.ReadFile(expandHome(p.KeyFile))
	if err != nil {
		return domain.CredentialReference{}, fmt.Errorf("failed to read key file for profile %s: %w", p.Name, err)
	}
	ref.Material = material
	return ref, nil
}

type Registry interface {
	GetProfiles(ctx context.Context) ([]string, error)
	GetProfile(ctx context.Context, name string) (*Profile, error)
}

type cfgRegistry struct {
	cfg *ini.File
}

func NewRegistry(path string) (Registry, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	return &cfgRegistry{cfg: cfg}, nil
}

func (cr *cfgRegistry) GetProfiles(_ context.Context) ([]string, error) {
	var profiles []string
	for _, section := range cr.cfg.Sections() {
		if len(section.Keys()) > 0 {
			profiles = append(profiles, section.Name())
		}
	}
	return profiles, nil
}

func (cr *cfgRegistry) GetProfile(_ context.Context, name string) (*Profile, error) {
	section, err := cr.cfg.GetSection(name)
	if err != nil {
		return nil, fmt.Errorf("profile %s not found", name)
	}

	profile := &Profile{
		Name:    name,
		KeyFile: section.Key("key_file").String(),
		Locator: section.Key("locator").String(),
		Project: section.Key("project").String(),
	}
	if (profile.KeyFile == "") == (profile.Locator == "") {
		return nil, fmt.Errorf("profile %s must set exactly one of key_file or locator", name)
	}
	return profile, nil
}
