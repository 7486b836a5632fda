package nar

// Tag identifies a fixed grammar position in the NAR wire format. The full
// vocabulary is closed: these are the only literal tokens a well-formed
// stream ever contains.
type Tag int

const (
	TagEmpty Tag = iota
	TagOpen
	TagClose
	TagType
	TagRegular
	TagSymlink
	TagDirectory
	TagEntry
	TagContents
	TagExecutable
	TagTarget
	TagName
	TagNode
)

var tagText = map[Tag]string{
	TagEmpty:      "",
	TagOpen:       "(",
	TagClose:      ")",
	TagType:       "type",
	TagRegular:    "regular",
	TagSymlink:    "symlink",
	TagDirectory:  "directory",
	TagEntry:      "entry",
	TagContents:   "contents",
	TagExecutable: "executable",
	TagTarget:     "target",
	TagName:       "name",
	TagNode:       "node",
}

// String returns the tag's wire text.
func (t Tag) String() string {
	return tagText[t]
}
