// Package sym defines the glyphs tagtical prints in front of its command
// groups and status lines. They are stable across help text and output.
package sym

// Command group glyphs.
const (
	Entity = "◉" // entity: taggable records
	Tag    = "#" // tag: tag lists on one entity
	Find   = "⋈" // find: class level filters
	Count  = "∑" // counts: tag frequency
	Types  = "⊤" // types: tag type and kind hierarchy
	AM     = "≡" // am: configuration and system settings
	DB     = "⊔" // db: database/storage layer
)

// Status glyphs.
const (
	OK      = "✓"
	Partial = "◐"
	Arrow   = "→"
)

// entry binds a glyph to its command and description.
type entry struct {
	glyph       string
	command     string
	description string
}

// registry is the canonical glyph to command mapping, in help order.
var registry = []entry{
	{Entity, "entity", "Create and delete taggable entities"},
	{Tag, "tag", "Read and write the tag lists of one entity"},
	{Find, "find", "Filter entities by their tags"},
	{Count, "counts", "Count tags across the entities of a kind"},
	{Types, "types", "Show the tag type and kind hierarchy"},
	{DB, "db", "Database migrations and maintenance"},
	{AM, "am", "Show and edit configuration"},
}

// Lookup tables built from the registry at init time.
var (
	SymbolToCommand     map[string]string
	CommandToSymbol     map[string]string
	CommandDescriptions map[string]string
)

func init() {
	SymbolToCommand = make(map[string]string, len(registry))
	CommandToSymbol = make(map[string]string, len(registry))
	CommandDescriptions = make(map[string]string, len(registry))
	for _, e := range registry {
		SymbolToCommand[e.glyph] = e.command
		CommandToSymbol[e.command] = e.glyph
		CommandDescriptions[e.command] = e.description
	}
}

// Commands returns the command names in help order.
func Commands() []string {
	out := make([]string, len(registry))
	for i, e := range registry {
		out[i] = e.command
	}
	return out
}

// Short returns "<glyph> <description>" for a command, suitable for cobra's Short.
func Short(command string) string {
	g, ok := CommandToSymbol[command]
	if !ok {
		return CommandDescriptions[command]
	}
	return g + " " + CommandDescriptions[command]
}
