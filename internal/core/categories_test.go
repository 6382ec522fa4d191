package core

import "testing"

func TestRegistryAll(t *testing.T) {
	custom := []Category{{ID: "c1", OwnerID: "u1", Label: "Pets", Color: "#AED581", IconKey: "paw"}}
	all := NewRegistry(custom).All()

	if len(all) != len(builtins)+1 {
		t.Fatalf("len = %d, want %d", len(all), len(builtins)+1)
	}
	for i, c := range all[:len(builtins)] {
		if !c.Builtin {
			t.Errorf("entry %d (%s) should be a built-in", i, c.Label)
		}
	}
	if last := all[len(all)-1]; last.Label != "Pets" || last.Builtin {
		t.Errorf("custom entry mangled: %+v", last)
	}
}

func TestRegistryResolve(t *testing.T) {
	r := NewRegistry([]Category{{ID: "c1", OwnerID: "u1", Label: "Pets", Color: "#AED581", IconKey: "paw"}})

	tests := []struct {
		key      string
		want     string
		wantIcon string
	}{
		{"Alimentação", "Alimentação", "food"},
		{"c1", "Pets", "paw"},
		{"Pets", "Pets", "paw"},
		{"Apagada", "Apagada", "generic"},
		{"", "Outros", "generic"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got := r.Resolve(tt.key)
			if got.Label != tt.want || got.IconKey != tt.wantIcon {
				t.Errorf("Resolve(%q) = {%s %s}, want {%s %s}", tt.key, got.Label, got.IconKey, tt.want, tt.wantIcon)
			}
		})
	}
}

func TestBuiltinCategoriesCopy(t *testing.T) {
	got := BuiltinCategories()
	got[0].Label = "mutated"
	if builtins[0].Label == "mutated" {
		t.Error("BuiltinCategories must return a copy")
	}
}
