package garment

import (
	"fmt"
	"strings"
)

// PromptPair is the positive/negative directive pair handed to the image
// generation provider. Immutable once built.
type PromptPair struct {
	Positive string
	Negative string
}

// View labels the camera angle baked into a preview prompt.
type View string

const (
	ViewFront             View = "front view"
	ViewLeftThreeQuarter  View = "left three-quarter view"
	ViewRightThreeQuarter View = "right three-quarter view"
)

var viewRotation = []View{ViewFront, ViewLeftThreeQuarter, ViewRightThreeQuarter}

// Views returns the fixed rotation used to diversify a preview batch.
func Views() []View {
	out := make([]View, len(viewRotation))
	copy(out, viewRotation)
	return out
}

// ViewForIndex cycles deterministically through the rotation so slot i of
// any batch always renders the same angle.
func ViewForIndex(i int) View {
	if i < 0 {
		i = -i
	}
	return viewRotation[i%len(viewRotation)]
}

// promptTemplate carries the category-specific visual policy. framingLead
// gets the optional view clause appended before framingRest is joined on,
// so prompts stay well-formed with or without a view.
type promptTemplate struct {
	framingLead string
	framingRest string
	outfit      string
	pose        string
	negative    string
}

const (
	negativeCommon   = "text, watermark, logo, multiple people, clutter, blur, low-res, artifacts"
	negativeExposure = "overexposed, underexposed"
	negativeAnatomy  = "bad anatomy, extra limbs"
)

var promptTemplates = map[Category]promptTemplate{
	CategoryUpperBody: {
		framingLead: "tight shoulders-to-waist crop",
		framingRest: "face out of frame, focus on chest, sleeves and torso",
		outfit:      "plain close-fit neutral top",
		pose:        "arms slightly away from torso",
		negative:    "face, eyes, head, " + negativeCommon + ", " + negativeAnatomy + ", " + negativeExposure,
	},
	CategoryLowerBody: {
		framingLead: "full view from hips to shoes",
		framingRest: "torso cropped above hips, focus on pants and legs",
		outfit:      "plain neutral fitted pants",
		pose:        "standing straight, legs visible, feet shoulder-width",
		negative:    "upper body, bare chest, shirt, t-shirt, hoodie, jacket, torso, face, head, " + negativeCommon + ", " + negativeAnatomy + ", " + negativeExposure,
	},
	CategoryDresses: {
		framingLead: "knee-up crop",
		framingRest: "full dress silhouette in frame",
		outfit:      "plain neutral dress",
		pose:        "hands relaxed by sides",
		negative:    negativeCommon + ", " + negativeAnatomy + ", " + negativeExposure,
	},
	CategoryFootwear: {
		framingLead: "close-up feet and lower legs",
		framingRest: "shoes centered, entire shoe visible",
		outfit:      "neutral ankle-length pants exposing shoes",
		pose:        "standing, feet flat on ground",
		negative:    negativeCommon + ", " + negativeExposure,
	},
	CategoryHeadwear: {
		framingLead: "tight head-and-shoulders crop",
		framingRest: "headwear centered",
		outfit:      "plain neutral top with simple neckline",
		pose:        "neutral expression",
		negative:    negativeCommon + ", " + negativeExposure,
	},
}

// genericTemplate backs any category value outside the closed set so the
// builder stays total.
var genericTemplate = promptTemplate{
	framingLead: "shoulders-to-waist crop",
	framingRest: "face out of frame",
	outfit:      "plain neutral garment",
	pose:        "neutral",
	negative:    negativeCommon + ", " + negativeExposure,
}

// BuildPrompts constructs the generation directive pair for one preview
// slot. tags may be raw classifier output; gender defaults to "male" when
// absent, and an empty view simply omits the camera-angle clause.
func BuildPrompts(tags []string, category Category, view View, gender string) PromptPair {
	tpl, ok := promptTemplates[category]
	if !ok {
		tpl = genericTemplate
	}
	if strings.TrimSpace(gender) == "" {
		gender = "male"
	}

	framing := tpl.framingLead
	if view != "" {
		framing += ", " + string(view)
	}
	framing += ", " + tpl.framingRest

	positive := fmt.Sprintf(
		"photo of a %s fashion model, %s, %s, studio lighting, soft shadows, high detail, 85mm look, seamless backdrop, %s, sharp focus, photorealistic, emphasizing %s",
		gender, framing, tpl.outfit, tpl.pose, Describe(tags),
	)
	return PromptPair{Positive: positive, Negative: tpl.negative}
}
