package core

// Built-in categories are always present, are never persisted, and cannot
// be edited or removed. Their IDs equal their labels, matching how the
// ledger references categories by label.
var builtins = []Category{
	{ID: "Alimentação", Label: "Alimentação", IconKey: "food", Color: "#FFAB91", Builtin: true},
	{ID: "Transporte", Label: "Transporte", IconKey: "transport", Color: "#90CAF9", Builtin: true},
	{ID: "Compras", Label: "Compras", IconKey: "shopping", Color: "#CE93D8", Builtin: true},
	{ID: "Contas", Label: "Contas", IconKey: "bills", Color: "#EF9A9A", Builtin: true},
}

// DefaultPlanCategory is assigned when a plan without a category generates
// a payment transaction.
const DefaultPlanCategory = "Contas"

// fallback rendering for labels that no longer resolve to any category
// (e.g. the category was deleted after transactions referenced it).
var fallbackCategory = Category{Label: "Outros", IconKey: "generic", Color: "#9E9E9E"}

// BuiltinCategories returns a copy of the fixed built-in set.
func BuiltinCategories() []Category {
	out := make([]Category, len(builtins))
	copy(out, builtins)
	return out
}

// Registry merges the built-in categories with a user's persisted custom
// entries. Built-ins always come first and shadow custom entries with the
// same label.
type Registry struct {
	custom []Category
}

func NewRegistry(custom []Category) *Registry {
	return &Registry{custom: custom}
}

// All returns built-ins followed by the custom entries.
func (r *Registry) All() []Category {
	out := BuiltinCategories()
	return append(out, r.custom...)
}

// Resolve finds a category by label or id, built-ins first. Unknown keys
// resolve to the generic fallback so display code never deals with a miss.
func (r *Registry) Resolve(labelOrID string) Category {
	for _, c := range builtins {
		if c.ID == labelOrID || c.Label == labelOrID {
			return c
		}
	}
	for _, c := range r.custom {
		if c.ID == labelOrID || c.Label == labelOrID {
			return c
		}
	}
	fb := fallbackCategory
	fb.Label = labelOrID
	if labelOrID == "" {
		fb.Label = fallbackCategory.Label
	}
	return fb
}
