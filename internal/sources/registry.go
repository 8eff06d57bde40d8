package sources

// Source describes one integration platform: which record fields it
// allows the assistant to mutate, whether bulk mutations against it
// must be confirmed, what it can do, and where to fall back when it
// is down.
type Source struct {
	Name                 string
	DisplayName          string
	ReadOnlyFields       []string
	AllowedUpdateFields  []string
	RequiresConfirmation bool
	Capabilities         []string
	FallbackSources      []string
}

// Native is the source name for records created directly in taskwise.
const Native = "native"

// registry is the static table of known sources. Externally-ingested
// records keep their upstream title/description/type immutable; only
// workflow fields (status, priority, due) may change from this side.
var registry = map[string]Source{
	Native: {
		Name:                 Native,
		DisplayName:          "Taskwise",
		AllowedUpdateFields:  []string{"title", "description", "type", "status", "priority", "due", "metadata"},
		RequiresConfirmation: false,
		Capabilities:         []string{"tasks", "notes", "scheduling"},
	},
	"linear": {
		Name:                 "linear",
		DisplayName:          "Linear",
		ReadOnlyFields:       []string{"title", "description", "type"},
		AllowedUpdateFields:  []string{"status", "priority", "due"},
		RequiresConfirmation: true,
		Capabilities:         []string{"tasks", "issues"},
		FallbackSources:      []string{"github", Native},
	},
	"github": {
		Name:                 "github",
		DisplayName:          "GitHub",
		ReadOnlyFields:       []string{"title", "description", "type"},
		AllowedUpdateFields:  []string{"status", "priority"},
		RequiresConfirmation: true,
		Capabilities:         []string{"tasks", "issues"},
		FallbackSources:      []string{"linear", Native},
	},
	"calendar": {
		Name:                 "calendar",
		DisplayName:          "Google Calendar",
		ReadOnlyFields:       []string{"title", "description", "type"},
		AllowedUpdateFields:  []string{"status", "due"},
		RequiresConfirmation: true,
		Capabilities:         []string{"events", "scheduling"},
		FallbackSources:      []string{Native},
	},
	"gmail": {
		Name:                "gmail",
		DisplayName:         "Gmail",
		ReadOnlyFields:      []string{"title", "description", "type", "due"},
		AllowedUpdateFields: []string{"status", "priority"},
		// Mail-derived tasks are cheap to recreate; single-record
		// updates don't need a confirmation round-trip.
		RequiresConfirmation: false,
		Capabilities:         []string{"email", "tasks"},
		FallbackSources:      []string{Native},
	},
}

// Lookup returns the source definition for a name. Unknown names get a
// conservative definition: everything read-only except status, and
// confirmation required.
func Lookup(name string) Source {
	if s, ok := registry[name]; ok {
		return s
	}
	return Source{
		Name:                 name,
		DisplayName:          name,
		ReadOnlyFields:       []string{"title", "description", "type", "priority", "due", "metadata"},
		AllowedUpdateFields:  []string{"status"},
		RequiresConfirmation: true,
	}
}

// Known reports whether the name is a registered source.
func Known(name string) bool {
	_, ok := registry[name]
	return ok
}

// Names returns all registered source names.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

// CanUpdate reports whether the source allows mutating the given field.
func (s Source) CanUpdate(field string) bool {
	for _, f := range s.ReadOnlyFields {
		if f == field {
			return false
		}
	}
	for _, f := range s.AllowedUpdateFields {
		if f == field {
			return true
		}
	}
	return false
}

// HasCapability reports whether the source declares the capability.
func (s Source) HasCapability(capability string) bool {
	for _, c := range s.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

// DisplayName returns the human-facing name for a source, falling back
// to the raw name for unknown sources.
func DisplayName(name string) string {
	return Lookup(name).DisplayName
}

// AlternativesFor returns registered sources other than name that
// declare the given capability, preferring the source's own declared
// fallbacks first.
func AlternativesFor(name, capability string) []string {
	src := Lookup(name)

	var alts []string
	seen := map[string]bool{name: true}
	for _, fb := range src.FallbackSources {
		alt := Lookup(fb)
		if !seen[fb] && (capability == "" || alt.HasCapability(capability)) {
			alts = append(alts, fb)
			seen[fb] = true
		}
	}
	for altName, alt := range registry {
		if !seen[altName] && capability != "" && alt.HasCapability(capability) {
			alts = append(alts, altName)
			seen[altName] = true
		}
	}
	return alts
}
