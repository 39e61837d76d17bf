package dom

import "fmt"

// ---------------------------------------------------------------------------
// Attribute normalization
// ---------------------------------------------------------------------------
// Host platforms split element state between attributes and properties with
// a long tail of quirks. The engine never infers the split; it is encoded in
// the tables below and selected by AttributeFor.

// attrToProp maps HTML attribute names to the DOM property that backs them.
var attrToProp = map[string]string{
	"class":           "className",
	"for":             "htmlFor",
	"id":              "id",
	"title":           "title",
	"lang":            "lang",
	"dir":             "dir",
	"value":           "value",
	"checked":         "checked",
	"selected":        "selected",
	"disabled":        "disabled",
	"readonly":        "readOnly",
	"required":        "required",
	"multiple":        "multiple",
	"autoplay":        "autoplay",
	"controls":        "controls",
	"loop":            "loop",
	"muted":           "muted",
	"open":            "open",
	"hidden":          "hidden",
	"tabindex":        "tabIndex",
	"contenteditable": "contentEditable",
	"placeholder":     "placeholder",
	"src":             "src",
	"href":            "href",
}

// propToAttrReflected lists properties whose writes reflect back into the
// attribute list. The live input state properties (value, checked) are
// deliberately absent: in a browser those do not reflect after creation.
var propToAttrReflected = map[string]string{
	"className":       "class",
	"htmlFor":         "for",
	"id":              "id",
	"title":           "title",
	"lang":            "lang",
	"dir":             "dir",
	"selected":        "selected",
	"disabled":        "disabled",
	"readOnly":        "readonly",
	"required":        "required",
	"multiple":        "multiple",
	"autoplay":        "autoplay",
	"controls":        "controls",
	"loop":            "loop",
	"muted":           "muted",
	"open":            "open",
	"hidden":          "hidden",
	"tabIndex":        "tabindex",
	"contentEditable": "contenteditable",
	"placeholder":     "placeholder",
	"src":             "src",
	"href":            "href",
}

// booleanProps are properties holding a boolean flag; writing nil resets
// them to false rather than the empty string.
var booleanProps = map[string]bool{
	"checked": true, "selected": true, "disabled": true, "readOnly": true,
	"required": true, "multiple": true, "autoplay": true, "controls": true,
	"loop": true, "muted": true, "open": true, "hidden": true,
}

// attrOnly lists (tag, attr) pairs that must bypass the property path even
// though a property of that name exists.
var attrOnly = map[[2]string]bool{
	{"input", "form"}:  true,
	{"input", "list"}:  true,
	{"select", "form"}: true,
	{"button", "form"}: true,
	{"*", "style"}:     true,
}

// svgAttrCase restores the case-sensitive spelling of SVG attributes from
// their lowercased parse form.
var svgAttrCase = map[string]string{
	"viewbox":             "viewBox",
	"preserveaspectratio": "preserveAspectRatio",
	"patternunits":        "patternUnits",
	"patterntransform":    "patternTransform",
	"patterncontentunits": "patternContentUnits",
	"gradientunits":       "gradientUnits",
	"gradienttransform":   "gradientTransform",
	"spreadmethod":        "spreadMethod",
	"markerheight":        "markerHeight",
	"markerwidth":         "markerWidth",
	"markerunits":         "markerUnits",
	"refx":                "refX",
	"refy":                "refY",
	"textlength":          "textLength",
	"lengthadjust":        "lengthAdjust",
	"clippathunits":       "clipPathUnits",
	"maskunits":           "maskUnits",
	"maskcontentunits":    "maskContentUnits",
	"primitiveunits":      "primitiveUnits",
	"basefrequency":       "baseFrequency",
	"numoctaves":          "numOctaves",
	"stddeviation":        "stdDeviation",
	"pointsatx":           "pointsAtX",
	"pointsaty":           "pointsAtY",
	"pointsatz":           "pointsAtZ",
}

func reflectedAttr(prop string) (string, bool) {
	attr, ok := propToAttrReflected[prop]
	return attr, ok
}

func isBooleanProperty(prop string) bool { return booleanProps[prop] }

// NormalizeSVGAttr returns the case-sensitive spelling for an SVG attribute.
func NormalizeSVGAttr(name string) string {
	if fixed, ok := svgAttrCase[name]; ok {
		return fixed
	}
	return name
}

// propertyFor returns the DOM property backing (tag, attr), if the write
// should go through the property path.
func propertyFor(tag, attr string) (string, bool) {
	if attrOnly[[2]string{"*", attr}] || attrOnly[[2]string{tag, attr}] {
		return "", false
	}
	prop, ok := attrToProp[attr]
	return prop, ok
}

// ---------------------------------------------------------------------------
// Strategy selection
// ---------------------------------------------------------------------------

// Strategy applies one attribute binding to an element. Set is the
// unconditional initial write and skips nil values entirely; Update is
// idempotent: nil removes the attribute or resets the property, and a value
// equal to the currently applied one must not touch the node.
type Strategy interface {
	Set(el *Node, value any)
	Update(el *Node, value any)
}

// AttributeFor selects the strategy for one (element, attribute) binding.
// The strategy set is closed: plain property, plain attribute, their
// sanitized variants, and the input value special case.
func AttributeFor(el *Node, name string, trusting bool, namespace string) Strategy {
	sanitize := !trusting && requiresSanitization(name, namespace)

	if namespace != "" {
		return attributeStrategy{name: name, namespace: namespace, sanitize: sanitize}
	}
	if el.Namespace == NamespaceSVG {
		return attributeStrategy{name: NormalizeSVGAttr(name), sanitize: sanitize}
	}
	if name == "value" && (el.Tag == "input" || el.Tag == "textarea") {
		return inputValueStrategy{}
	}
	if prop, ok := propertyFor(el.Tag, name); ok {
		return propertyStrategy{prop: prop, sanitize: sanitize}
	}
	return attributeStrategy{name: name, sanitize: sanitize}
}

// requiresSanitization reports whether the attribute can carry a URL that
// must pass through the sanitizer before reaching the node.
func requiresSanitization(name, namespace string) bool {
	if namespace == NamespaceXLink {
		return name == "href"
	}
	return name == "href" || name == "src"
}

// ---------------------------------------------------------------------------
// Strategies
// ---------------------------------------------------------------------------

// stringify renders an attribute value the way hosts coerce to string.
func stringify(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}

func (d *Document) sanitizeURL(value string) string {
	if d == nil || d.Sanitizer == nil {
		return NewSanitizer().SanitizeURL(value)
	}
	return d.Sanitizer.SanitizeURL(value)
}

// attributeStrategy writes through setAttribute/removeAttribute.
type attributeStrategy struct {
	name      string
	namespace string
	sanitize  bool
}

func (s attributeStrategy) normalized(el *Node, value any) string {
	str := stringify(value)
	if s.sanitize {
		str = el.doc.sanitizeURL(str)
	}
	return str
}

func (s attributeStrategy) Set(el *Node, value any) {
	if value == nil {
		return
	}
	el.SetAttributeNS(s.namespace, s.name, s.normalized(el, value))
}

func (s attributeStrategy) Update(el *Node, value any) {
	if value == nil {
		el.RemoveAttribute(s.name)
		return
	}
	str := s.normalized(el, value)
	if current, ok := el.GetAttribute(s.name); ok && current == str {
		return
	}
	el.SetAttributeNS(s.namespace, s.name, str)
}

// propertyStrategy writes through the backing DOM property.
type propertyStrategy struct {
	prop     string
	sanitize bool
}

func (s propertyStrategy) normalized(el *Node, value any) any {
	if s.sanitize {
		return el.doc.sanitizeURL(stringify(value))
	}
	return value
}

func (s propertyStrategy) zero() any {
	if isBooleanProperty(s.prop) {
		return false
	}
	return ""
}

func (s propertyStrategy) Set(el *Node, value any) {
	if value == nil {
		return
	}
	el.SetProperty(s.prop, s.normalized(el, value))
}

func (s propertyStrategy) Update(el *Node, value any) {
	var next any
	if value == nil {
		next = s.zero()
	} else {
		next = s.normalized(el, value)
	}
	if current := el.Property(s.prop); current == next {
		return
	}
	// Resetting a never-set property to its zero value is also a no-op.
	if value == nil && el.Property(s.prop) == nil {
		if _, present := el.GetAttribute(propToAttrReflected[s.prop]); !present {
			return
		}
	}
	el.SetProperty(s.prop, next)
}

// inputValueStrategy guards writes to the live value of input and textarea
// elements: the property is only written when the normalized new value
// differs from the value currently in the node, so an in-progress user edit
// (and the cursor position that goes with it) is never clobbered by a
// rerender that did not change the underlying data.
type inputValueStrategy struct{}

func (inputValueStrategy) normalized(value any) string {
	if value == nil {
		return ""
	}
	return stringify(value)
}

func (s inputValueStrategy) Set(el *Node, value any) {
	if value == nil {
		return
	}
	s.Update(el, value)
}

func (s inputValueStrategy) Update(el *Node, value any) {
	str := s.normalized(value)
	if el.InputValue() == str {
		return
	}
	el.SetProperty("value", str)
}
