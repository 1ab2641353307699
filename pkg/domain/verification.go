package domain

// ModuleOptions is the option bag of one verification module. The values are
// opaque jurisdiction policy supplied by configuration, not logic this core
// encodes.
type ModuleOptions struct {
	AllowExpiredDocument      bool `json:"allow_expired_document"`
	RequireParentNames        bool `json:"require_parent_names"`
	RequireAddressCertificate bool `json:"require_address_certificate"`
	RequireSelfie             bool `json:"require_selfie"`
	RequireBackSide           bool `json:"require_back_side"`
}

// ModuleConfig toggles one verification module and carries its options.
type ModuleConfig struct {
	Enabled bool          `json:"enabled"`
	Options ModuleOptions `json:"options"`
}

// VerificationConfig is the per-service declarative descriptor of which
// verification modules apply. Immutable per service; loaded once per session.
type VerificationConfig struct {
	ServiceID string                     `json:"service_id"`
	Modules   map[ModuleKey]ModuleConfig `json:"modules"`
}

// ModuleEnabled reports whether the named module is toggled on.
func (c VerificationConfig) ModuleEnabled(key ModuleKey) bool {
	return c.Modules[key].Enabled
}

// OptionsFor returns the option bag of the named module. Disabled or unknown
// modules yield the zero options.
func (c VerificationConfig) OptionsFor(key ModuleKey) ModuleOptions {
	return c.Modules[key].Options
}
