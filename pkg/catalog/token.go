package catalog

// Kind tags where a descriptor came from
type Kind int

const (
	KindPreset Kind = iota // built-in registry
	KindCustom             // added by the user through an address lookup
)

func (k Kind) String() string {
	if k == KindCustom {
		return "custom"
	}
	return "preset"
}

// Token describes a tradable token. Mint is the identity key. The JSON
// shape is the persisted custom-token record.
type Token struct {
	Mint     string `json:"mint"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals uint8  `json:"decimals"`
	LogoURI  string `json:"logoUri,omitempty"`
	Color    string `json:"color"`
	Kind     Kind   `json:"-"`
}

// HasLogo reports whether a remote logo exists; otherwise the UI draws a
// placeholder in Color
func (t Token) HasLogo() bool {
	return t.LogoURI != ""
}

// IsZero reports whether t is the zero descriptor
func (t Token) IsZero() bool {
	return t.Mint == ""
}

// AsCustom returns a copy tagged as a custom token
func (t Token) AsCustom() Token {
	t.Kind = KindCustom
	return t
}
