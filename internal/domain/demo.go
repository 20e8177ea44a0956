package domain

// ScriptTurn is one scripted line of a demo conversation.
type ScriptTurn struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// Script is a named demo conversation replayed by the live demo.
type Script struct {
	Name  string       `json:"name" yaml:"name"`
	Title string       `json:"title" yaml:"title"`
	Turns []ScriptTurn `json:"turns" yaml:"turns"`
}
