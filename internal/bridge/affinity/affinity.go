// Package affinity provides the owner-context token that guards registry
// lifecycle calls.
//
// Lifecycle notifications must run on exactly one designated execution
// context. Rather than inspecting ambient goroutine identity, the owner
// mints a Token at startup and presents it on every lifecycle call; the
// registry compares it against the token bound at build time
package affinity

// Token identifies a single owner context. Tokens compare by identity:
// only the exact token minted by New matches itself. The zero Token never
// matches anything, including another zero Token
type Token struct {
	id *tokenID
}

type tokenID struct {
	name string
}

// New mints a fresh owner token. The name is diagnostic only
func New(name string) Token {
	return Token{id: &tokenID{name: name}}
}

// Valid reports whether the token was minted by New
func (t Token) Valid() bool { return t.id != nil }

// Name returns the diagnostic name, or empty for the zero token
func (t Token) Name() string {
	if t.id == nil {
		return ""
	}
	return t.id.name
}

// Same reports whether other is the exact same minted token
func (t Token) Same(other Token) bool {
	return t.id != nil && t.id == other.id
}
