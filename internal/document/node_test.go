package document

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKind_String(t *testing.T) {
	require.Equal(t, "heading", KindHeading.String())
	require.Equal(t, "code_block", KindCodeBlock.String())
	require.Equal(t, "kind(99)", Kind(99).String())
}

func TestPosition_Valid(t *testing.T) {
	require.True(t, Position{1, 1}.Valid())
	require.False(t, Position{0, 1}.Valid())
	require.False(t, Position{1, 0}.Valid())
	require.False(t, Position{}.Valid())
}

func TestCodeBlockPayload_Language(t *testing.T) {
	require.Equal(t, "", CodeBlockPayload{}.Language())
	require.Equal(t, "", CodeBlockPayload{FenceInfo: Info("   ")}.Language())
	require.Equal(t, "go", CodeBlockPayload{FenceInfo: Info("go title=main.go")}.Language())
}

func TestNode_Walk(t *testing.T) {
	start, end := Span(1, 1, 1, 5)
	root := NewDocument(
		NewNode(KindOther, start, end,
			NewNode(KindEmphasis, start, end),
		),
		NewHeading(2, start, end),
	)

	var kinds []Kind
	root.Walk(func(n *Node) bool {
		kinds = append(kinds, n.Kind)
		return n.Kind != KindOther
	})
	require.Equal(t, []Kind{KindDocument, KindOther, KindHeading}, kinds)
}

func TestNode_Validate(t *testing.T) {
	start, end := Span(1, 1, 3, 3)

	ok := NewDocument(NewCodeBlock("x\n", nil, start, end), NewHeading(1, start, end))
	require.NoError(t, ok.Validate())

	missing := NewDocument(NewNode(KindCodeBlock, start, end))
	require.ErrorContains(t, missing.Validate(), "missing literal")

	badLevel := NewDocument(NewHeading(7, start, end))
	require.ErrorContains(t, badLevel.Validate(), "level 7")
}

func TestNode_String(t *testing.T) {
	start, end := Span(1, 1, 1, 7)
	root := NewDocument(NewHeading(1, start, end))
	require.Equal(t, "document [0:0-0:0]\n  heading [1:1-1:7]\n", root.String())
}
