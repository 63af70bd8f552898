package plugin

// StandalonePlugin is a definition flattened onto a single variant. It carries
// no reference to the registry it came from, which makes it the unit a
// lockfile stores.
type StandalonePlugin struct {
	PluginType   Type      `json:"plugin_type"`
	Name         string    `json:"name"`
	Namespace    string    `json:"namespace,omitempty"`
	Variant      string    `json:"variant,omitempty"`
	Label        string    `json:"label,omitempty"`
	Description  string    `json:"description,omitempty"`
	Docs         string    `json:"docs,omitempty"`
	PipURL       string    `json:"pip_url,omitempty"`
	Repo         string    `json:"repo,omitempty"`
	Executable   string    `json:"executable,omitempty"`
	Capabilities []string  `json:"capabilities,omitempty"`
	Settings     []Setting `json:"settings,omitempty"`
}

// FromVariant merges definition-level and variant-level attributes. Variant
// values win where both are set.
func FromVariant(v *Variant, d *Definition) *StandalonePlugin {
	namespace := d.Namespace
	if v.Namespace != "" {
		namespace = v.Namespace
	}

	sp := &StandalonePlugin{
		PluginType:  d.Type,
		Name:        d.Name,
		Namespace:   namespace,
		Variant:     v.Name,
		Label:       d.Label,
		Description: d.Description,
		Docs:        v.Docs,
		PipURL:      v.PipURL,
		Repo:        v.Repo,
		Executable:  v.Executable,
	}
	if len(v.Capabilities) > 0 {
		sp.Capabilities = append([]string(nil), v.Capabilities...)
	}
	if len(v.Settings) > 0 {
		sp.Settings = append([]Setting(nil), v.Settings...)
	}
	return sp
}

// Ref returns the plugin's identity.
func (p *StandalonePlugin) Ref() Ref {
	return Ref{Type: p.PluginType, Name: p.Name}
}

// Canonical returns the plugin as a plain map with empty attributes omitted.
// Encoding the result with encoding/json is deterministic.
func (p *StandalonePlugin) Canonical() map[string]any {
	out := map[string]any{
		"plugin_type": string(p.PluginType),
		"name":        p.Name,
	}
	putString(out, "namespace", p.Namespace)
	putString(out, "variant", p.Variant)
	putString(out, "label", p.Label)
	putString(out, "description", p.Description)
	putString(out, "docs", p.Docs)
	putString(out, "pip_url", p.PipURL)
	putString(out, "repo", p.Repo)
	putString(out, "executable", p.Executable)

	if len(p.Capabilities) > 0 {
		caps := make([]any, len(p.Capabilities))
		for i, c := range p.Capabilities {
			caps[i] = c
		}
		out["capabilities"] = caps
	}

	if len(p.Settings) > 0 {
		settings := make([]any, len(p.Settings))
		for i, s := range p.Settings {
			settings[i] = s.canonical()
		}
		out["settings"] = settings
	}
	return out
}

func (s Setting) canonical() map[string]any {
	out := map[string]any{"name": s.Name}
	putString(out, "kind", s.Kind)
	putString(out, "label", s.Label)
	putString(out, "description", s.Description)
	if s.Value != nil {
		out["value"] = s.Value
	}
	if s.Sensitive {
		out["sensitive"] = true
	}
	return out
}

func putString(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	}
}
