package corpus

import (
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/ternarybob/consilio/internal/models"
)

// ExtractSections parses markdown source and returns its headings with
// rune offsets, in document order. Chunks are later attributed to the
// nearest preceding heading.
func ExtractSections(source []byte) []models.SectionMark {
	parser := goldmark.New().Parser()
	root := parser.Parse(text.NewReader(source))

	var sections []models.SectionMark
	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		if heading.Lines().Len() == 0 {
			return ast.WalkContinue, nil
		}

		byteOffset := heading.Lines().At(0).Start
		sections = append(sections, models.SectionMark{
			Offset: utf8.RuneCount(source[:byteOffset]),
			Title:  string(heading.Text(source)),
		})
		return ast.WalkSkipChildren, nil
	})

	return sections
}
