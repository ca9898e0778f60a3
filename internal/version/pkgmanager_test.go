package version

import "testing"

func TestDetectPackageManager(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{"homebrew cellar", "/opt/homebrew/Cellar/cyroid/0.1.0/bin/cyroid", "brew"},
		{"linuxbrew", "/home/user/.linuxbrew/bin/cyroid", "brew"},
		{"nix store", "/nix/store/abc123-cyroid/bin/cyroid", "nix"},
		{"standalone", "/usr/local/bin/cyroid", ""},
		{"go install", "/Users/user/go/bin/cyroid", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectPackageManager(tt.path)
			if got != tt.want {
				t.Errorf("DetectPackageManager(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestDetectPackageManager_BuildTimeOverride(t *testing.T) {
	old := PackageManager
	PackageManager = "brew"
	defer func() { PackageManager = old }()

	got := DetectPackageManager("/usr/local/bin/cyroid")
	if got != "brew" {
		t.Errorf("expected build-time override 'brew', got %q", got)
	}
}
