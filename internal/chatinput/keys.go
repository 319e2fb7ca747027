package chatinput

// Key is the kind of key press fed to Input.Key.
type Key int

const (
	KeyRune Key = iota
	KeyEnter
	KeyBackspace
)

// KeyEvent is one key press. Rune is only meaningful for KeyRune.
type KeyEvent struct {
	Key   Key
	Rune  rune
	Shift bool
}
