package language

import "testing"

func TestFromCode(t *testing.T) {
	tests := []struct {
		code     string
		wantCode string
		wantName string
	}{
		{"en", "en", "English"},
		{"en-GB", "en-GB", "English (United Kingdom)"},
		{"pt-br", "pt-BR", "Portuguese (Brazil)"},
		{" es ", "es", "Spanish"},
		{"en-IE", "en", "English"},
		{"multi", "multi", "Multilingual"},
		{"klingon", "", "Service default"},
		{"", "", "Service default"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got := FromCode(tt.code)
			if got.Code != tt.wantCode {
				t.Errorf("FromCode(%q).Code = %q, want %q", tt.code, got.Code, tt.wantCode)
			}
			if got.Name != tt.wantName {
				t.Errorf("FromCode(%q).Name = %q, want %q", tt.code, got.Name, tt.wantName)
			}
		})
	}
}

func TestIsValidCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"en", true},
		{"en-US", true},
		{"de-AT", true},
		{"multi", true},
		{"", true},
		{"xyz", false},
		{"xx-YY", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := IsValidCode(tt.code); got != tt.want {
				t.Errorf("IsValidCode(%q) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestList(t *testing.T) {
	list := List()
	if len(list) != len(languages)+1 {
		t.Fatalf("List() returned %d languages, want %d", len(list), len(languages)+1)
	}
	if list[0] != Multi {
		t.Errorf("List()[0] = %v, want Multi", list[0])
	}

	seen := make(map[string]bool)
	for _, lang := range list {
		if lang.Code == "" {
			t.Error("List() should not include the service default")
		}
		if seen[lang.Code] {
			t.Errorf("duplicate code %q", lang.Code)
		}
		seen[lang.Code] = true
		if !IsValidCode(lang.Code) {
			t.Errorf("listed code %q is not valid", lang.Code)
		}
	}

	list[0] = Language{Code: "modified"}
	if List()[0] != Multi {
		t.Error("List() should return a copy")
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"", "Service default"},
		{"es", "Spanish (es)"},
		{"en_US", "American English (en_US)"},
		{"not a tag!", "language 'not a tag!'"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := Label(tt.code); got != tt.want {
				t.Errorf("Label(%q) = %q, want %q", tt.code, got, tt.want)
			}
		})
	}
}
