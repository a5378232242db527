package domain

// FAQ is a fixed question offered as a one-click shortcut.
type FAQ struct {
	Index int
	Text  string
}
