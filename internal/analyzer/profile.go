package analyzer

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"golang.org/x/crypto/blake2b"

	"repowatch/internal/errors"
)

// Profile identifies what an analyzer computes. Changing any field that
// feeds Identity, PromptHash or SchemaVersion moves results to new cache
// keys; nothing else needs invalidating.
type Profile struct {
	Provider       string `toml:"provider"`
	Model          string `toml:"model"`
	AnalysisType   string `toml:"analysis_type"`
	PromptTemplate string `toml:"prompt_template"`
	SchemaVersion  int    `toml:"schema_version"`
}

// Identity returns the provider/model string stored with cache entries.
func (p Profile) Identity() string {
	if p.Model == "" {
		return p.Provider
	}
	return p.Provider + "/" + p.Model
}

// PromptHash returns the hex BLAKE2b-256 digest of the prompt template.
func (p Profile) PromptHash() string {
	sum := blake2b.Sum256([]byte(p.PromptTemplate))
	return hex.EncodeToString(sum[:])
}

// Validate checks that the profile can key cache entries.
func (p Profile) Validate() error {
	if p.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if p.AnalysisType == "" {
		return fmt.Errorf("analysis_type is required")
	}
	if p.SchemaVersion < 1 {
		return fmt.Errorf("schema_version must be >= 1, got %d", p.SchemaVersion)
	}
	return nil
}

// DefaultProfile returns the built-in profile of a provider.
func DefaultProfile(provider string) (Profile, error) {
	switch provider {
	case ProviderHeuristic:
		return Profile{
			Provider:       ProviderHeuristic,
			Model:          "lines-v1",
			AnalysisType:   "summary",
			PromptTemplate: "Count lines, comments and declarations; flag TODO markers and long lines.",
			SchemaVersion:  1,
		}, nil
	case ProviderComplexity:
		return Profile{
			Provider:       ProviderComplexity,
			Model:          "tree-sitter",
			AnalysisType:   "complexity",
			PromptTemplate: "Measure cyclomatic and cognitive complexity per function.",
			SchemaVersion:  1,
		}, nil
	default:
		return Profile{}, errors.Newf(errors.InvalidArgument, "unknown analyzer provider %q", provider)
	}
}

// LoadProfile overlays a TOML profile file onto base. Fields absent from the
// file keep their base values; the provider cannot be changed.
func LoadProfile(path string, base Profile) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, errors.New(errors.InvalidArgument, "failed to read analyzer profile", err).
			WithDetails(map[string]interface{}{"path": path})
	}

	profile := base
	if _, err := toml.Decode(string(data), &profile); err != nil {
		return Profile{}, errors.New(errors.InvalidArgument, "failed to parse analyzer profile", err).
			WithDetails(map[string]interface{}{"path": path})
	}
	if profile.Provider != base.Provider {
		return Profile{}, errors.Newf(errors.InvalidArgument,
			"profile %s declares provider %q but %q is configured", path, profile.Provider, base.Provider)
	}
	if err := profile.Validate(); err != nil {
		return Profile{}, errors.New(errors.InvalidArgument, "invalid analyzer profile", err)
	}
	return profile, nil
}
