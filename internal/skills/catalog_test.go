package skills

import (
	"os"
	"path/filepath"
	"testing"
)

const catalogYAML = `version: 1
skills:
  - name: fireball
    description: ranged burst
    cooldown: 4.5
    tags: [ranged, magic]
    params:
      damage: "12"
  - name: heal
    tags: [support]
`

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skills.yaml")
	if err := os.WriteFile(path, []byte(catalogYAML), 0o600); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}

	fb, ok := c.Skill("fireball")
	if !ok {
		t.Fatal("expected fireball to resolve")
	}
	if fb.Cooldown != 4.5 {
		t.Errorf("expected cooldown 4.5, got %v", fb.Cooldown)
	}
	if !fb.HasTag("magic") || fb.HasTag("support") {
		t.Errorf("unexpected tags: %v", fb.Tags)
	}
	if fb.Params["damage"] != "12" {
		t.Errorf("expected damage param 12, got %q", fb.Params["damage"])
	}

	if _, ok := c.Skill("teleport"); ok {
		t.Error("expected teleport to be missing")
	}

	names := c.Names()
	if len(names) != 2 || names[0] != "fireball" || names[1] != "heal" {
		t.Errorf("unexpected names: %v", names)
	}
}

func TestParseCatalog_RejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"version":   "version: 2\nskills: []\n",
		"duplicate": "version: 1\nskills:\n  - name: a\n  - name: a\n",
		"unnamed":   "version: 1\nskills:\n  - description: x\n",
		"syntax":    "version: [\n",
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(text)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNilCatalogLookup(t *testing.T) {
	var c *Catalog
	if _, ok := c.Skill("any"); ok {
		t.Error("expected nil catalog to resolve nothing")
	}
}
