package style

// Key names one style dimension of a text range.
type Key string

const (
	KeyFont       Key = "font"
	KeyForeground Key = "foreground"
	KeyBackground Key = "background"
	KeyParagraph  Key = "paragraph"
	KeyLink       Key = "link"
)

// Keys lists every dimension in a stable order.
var Keys = []Key{KeyFont, KeyForeground, KeyBackground, KeyParagraph, KeyLink}

// Map is a set of style values keyed by dimension.
type Map map[Key]any
