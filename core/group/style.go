package group

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

const (
	DefaultChipClass   = "bg-slate-500"
	DefaultIcon        = "star"
	defaultHeaderExact = "hsl(0, 0%, 95%)"
	defaultHeaderClass = "bg-stone-100"
)

type hsl struct{ h, s, l int }

var (
	// tailwind *-500 colors
	tailwind500 = map[string]hsl{
		"red":     {0, 72, 51},
		"rose":    {350, 89, 60},
		"orange":  {24, 94, 50},
		"amber":   {38, 92, 50},
		"yellow":  {54, 100, 62},
		"lime":    {90, 80, 52},
		"green":   {142, 71, 45},
		"emerald": {152, 66, 41},
		"teal":    {174, 72, 40},
		"cyan":    {187, 85, 45},
		"sky":     {204, 94, 55},
		"blue":    {217, 89, 50},
		"indigo":  {244, 75, 60},
		"violet":  {262, 83, 58},
		"purple":  {271, 52, 45},
		"fuchsia": {292, 84, 60},
		"pink":    {330, 81, 60},
		"stone":   {25, 14, 47},
		"gray":    {218, 11, 65},
		"slate":   {215, 20, 50},
		"neutral": {0, 0, 50},
	}

	// lightness of the light tailwind shades
	shades = []struct {
		shade     int
		lightness int
	}{{50, 97}, {100, 94}, {200, 86}, {300, 77}}

	bgColorRegex = regexp.MustCompile(`bg-([a-z]+)-[0-9]{3}`)

	// Icons groups may use. Legacy names map to their current icon.
	IconPool = map[string]string{
		"globe": "globe", "droplets": "droplets", "flame": "flame", "sun": "sun",
		"flower2": "flower2", "wind": "wind", "cloud": "cloud", "leaf": "leaf",
		"tree-pine": "tree-pine", "mountain": "mountain", "snowflake": "snowflake",
		"moon-star": "moon-star", "palette": "palette", "brush": "brush", "blocks": "blocks",
		"puzzle": "puzzle", "music-4": "music-4", "baby": "baby", "smile": "smile",
		"users-round": "users-round", "book-open": "book-open", "star": "star", "clover": "clover",
		"sprout": "sprout", "water": "droplets", "tree": "tree-pine",
	}
)

// Style is how a Group is rendered by clients.
type Style struct {
	ChipClass         string `json:"chip_class"`
	HeaderExact       string `json:"header_exact"`
	HeaderApproxClass string `json:"header_approx_class"`
	Icon              string `json:"icon"`
}

// StyleOf derives the chip, header and icon styling of g from its tailwind color class.
func StyleOf(g Group) Style {
	chip := g.Color
	if chip == "" {
		chip = DefaultChipClass
	}
	if !strings.Contains(chip, "text-") {
		chip += " text-white"
	}

	icon, ok := IconPool[g.Icon]
	if !ok {
		icon = DefaultIcon
	}

	style := Style{
		ChipClass:         chip,
		HeaderExact:       defaultHeaderExact,
		HeaderApproxClass: defaultHeaderClass,
		Icon:              icon,
	}
	match := bgColorRegex.FindStringSubmatch(chip)
	if match == nil {
		return style
	}
	base, ok := tailwind500[match[1]]
	if !ok {
		return style
	}
	header := headerColor(base)
	style.HeaderExact = fmt.Sprintf("hsl(%d, %d%%, %d%%)", header.h, header.s, header.l)
	style.HeaderApproxClass = fmt.Sprintf("bg-%s-%d", match[1], closestShade(header.l))
	return style
}

// headerColor lightens and desaturates a base color for use as a header background.
func headerColor(c hsl) hsl {
	l := c.l + 42
	if l > 96 {
		l = 96
	}
	s := c.s - 20
	if s < 30 {
		s = 30
	}
	return hsl{h: c.h, s: s, l: l}
}

func closestShade(lightness int) int {
	best, smallest := shades[0].shade, math.MaxInt32
	for _, sh := range shades {
		diff := sh.lightness - lightness
		if diff < 0 {
			diff = -diff
		}
		if diff < smallest {
			best, smallest = sh.shade, diff
		}
	}
	return best
}
