package rules

// catalog is the dispatch order. Type-specific input rules must come before
// KindInput, and every tag rule before KindFallback.
var catalog = []Kind{
	KindCheckable,
	KindColor,
	KindRange,
	KindSubmit,
	KindButtonInput,
	KindImage,
	KindButton,
	KindInput,
	KindSelect,
	KindTextarea,
	KindFallback,
}

// Catalog returns the rule kinds in dispatch order.
func Catalog() []Kind {
	out := make([]Kind, len(catalog))
	copy(out, catalog)
	return out
}

// Suitable reports whether the rule applies to an element with this tag and
// resolved type.
func (k Kind) Suitable(tag, typ string) bool {
	switch k {
	case KindCheckable:
		return tag == "input" && (typ == "checkbox" || typ == "radio")
	case KindColor:
		return tag == "input" && typ == "color"
	case KindRange:
		return tag == "input" && typ == "range"
	case KindSubmit:
		return tag == "input" && typ == "submit"
	case KindButtonInput:
		return tag == "input" && (typ == "button" || typ == "reset" || typ == "search")
	case KindImage:
		return tag == "input" && typ == "image"
	case KindButton:
		return tag == "button"
	case KindInput:
		return tag == "input"
	case KindSelect:
		return tag == "select"
	case KindTextarea:
		return tag == "textarea"
	case KindFallback:
		switch tag {
		case "button", "input", "select", "textarea":
			return true
		}
	}
	return false
}

// Parse runs the rule without checking suitability.
func (k Kind) Parse(in Input) []Entry {
	switch k {
	case KindCheckable:
		return parseCheckable(in)
	case KindColor:
		return parseColor(in)
	case KindRange:
		return parseRange(in)
	case KindSubmit:
		return parseSubmit(in)
	case KindButtonInput:
		return parseButtonInput(in)
	case KindImage:
		return parseImage(in)
	case KindButton:
		return parseButton(in)
	case KindInput:
		return parseInput(in)
	case KindSelect:
		return parseSelect(in)
	case KindTextarea:
		return parseTextarea(in)
	case KindFallback:
		return parseFallback(in)
	default:
		return nil
	}
}

// Match returns the first suitable rule, or KindNone.
func Match(tag, typ string) Kind {
	for _, k := range catalog {
		if k.Suitable(tag, typ) {
			return k
		}
	}
	return KindNone
}

// Dispatch parses in with the first suitable rule. Elements no rule accepts
// yield KindNone and no entries.
func Dispatch(in Input) (Kind, []Entry) {
	k := Match(in.Tag, in.Type)
	if k == KindNone {
		return KindNone, nil
	}
	return k, k.Parse(in)
}
