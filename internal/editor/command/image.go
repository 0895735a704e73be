package command

import (
	"github.com/starford/quill/internal/editor/node"
)

// ImageSpec references an already-validated image.
type ImageSpec struct {
	Src string `json:"src"`
	Alt string `json:"alt"`
}

func parseImageSpec(value any) (ImageSpec, bool) {
	switch v := value.(type) {
	case ImageSpec:
		return v, true
	case *ImageSpec:
		if v != nil {
			return *v, true
		}
	case map[string]any:
		spec := ImageSpec{}
		if s, ok := v["src"].(string); ok {
			spec.Src = s
		}
		if s, ok := v["alt"].(string); ok {
			spec.Alt = s
		}
		return spec, true
	case string:
		return ImageSpec{Src: v}, true
	}
	return ImageSpec{}, false
}

// insertImage places an image node after the anchor block, followed by a
// trailing empty paragraph, mirroring table insertion's always-leave-a-
// cursor-landing-spot policy. The caret moves into the trailing paragraph.
func insertImage(ctx *Context, value any) bool {
	spec, ok := parseImageSpec(value)
	if !ok || spec.Src == "" {
		return false
	}

	insertAt := len(ctx.Root.Children)
	if sel, ok := ctx.currentSelection(); ok {
		if leaf := ctx.anchorLeaf(sel); leaf != nil {
			if _, idx := ctx.topBlockOf(leaf); idx >= 0 {
				insertAt = idx + 1
			}
		}
	}

	trailing := node.NewBlock(node.Paragraph)
	ctx.Root.InsertChild(insertAt, node.NewImage(spec.Src, spec.Alt))
	ctx.Root.InsertChild(insertAt+1, trailing)

	return ctx.caretAtFirstText(trailing)
}
