package transform

import (
	"github.com/cozy/docshape/model"
	"github.com/cozy/docshape/test/builder"
)

var (
	schema     = builder.Schema
	doc        = builder.Doc
	blockquote = builder.Blockquote
	h1         = builder.H1
	h2         = builder.H2
	p          = builder.P
	pre        = builder.Pre
	img        = builder.Img
	em         = builder.Em
	strong     = builder.Strong

	emMark     = schema.Mark("em")
	strongMark = schema.Mark("strong")
)

func text(s string, marks ...*model.Mark) *model.Node {
	return schema.Text(s, marks...)
}
