package service

import (
	"context"
	"fmt"
	"strings"
)

type blueprint struct {
	key         string
	name        string
	description string
	themes      []string
}

var blueprints = map[string][]blueprint{
	"restaurant": {
		{"menu-highlights", "Menu Highlights", "Signature dishes and daily specials", []string{"specials", "signature dishes", "desserts"}},
		{"happy-hour", "Happy Hour", "Drink offers and time-limited deals", []string{"drinks", "deals"}},
	},
	"retail": {
		{"new-arrivals", "New Arrivals", "Products that just landed in store", []string{"new products", "trending"}},
		{"promotions", "Promotions", "Current sales and bundles", []string{"sales", "bundles", "loyalty"}},
	},
	"salon": {
		{"services", "Our Services", "Treatments and pricing", []string{"treatments", "pricing"}},
		{"before-after", "Before & After", "Results that speak for themselves", []string{"results", "reviews"}},
	},
	"gym": {
		{"classes", "Class Schedule", "This week's classes and coaches", []string{"classes", "coaches"}},
		{"motivation", "Motivation", "Tips and member milestones", []string{"tips", "milestones"}},
	},
}

var genericBlueprints = []blueprint{
	{"welcome", "Welcome", "Greeting and what makes you different", []string{"welcome", "values"}},
	{"offers", "Offers", "Current offers and promotions", []string{"offers", "promotions"}},
}

var sharedBlueprint = blueprint{"social-proof", "What People Say", "Reviews and community moments", []string{"reviews", "community"}}

// TemplateGenerator produces plans from fixed per-industry blueprints. Output depends only on its input.
type TemplateGenerator struct{}

func (TemplateGenerator) Name() string { return "template" }

func (TemplateGenerator) GeneratePlan(_ context.Context, bc BusinessContext) ([]PlannedPlaylist, error) {
	bps, ok := blueprints[strings.ToLower(bc.BusinessType)]
	if !ok {
		bps = genericBlueprints
	}
	bps = append(append([]blueprint{}, bps...), sharedBlueprint)

	out := make([]PlannedPlaylist, 0, len(bps))
	for _, bp := range bps {
		out = append(out, PlannedPlaylist{
			Key:         bp.key,
			Name:        fmt.Sprintf("%s: %s", bc.BusinessName, bp.name),
			Description: bp.description,
			Themes:      append([]string(nil), bp.themes...),
			SlideCount:  len(bp.themes) + 1,
		})
	}
	return out, nil
}

func (TemplateGenerator) GenerateSlides(_ context.Context, bc BusinessContext, p PlannedPlaylist) ([]Slide, error) {
	audience := bc.Audience
	if audience == "" {
		audience = "everyone"
	}
	slides := []Slide{{
		Title:           bc.BusinessName,
		Body:            fmt.Sprintf("%s for %s", p.Description, audience),
		DurationSeconds: 8,
	}}
	for _, theme := range p.Themes {
		slides = append(slides, Slide{
			Title:           titleCase(theme),
			Body:            fmt.Sprintf("Ask us about our %s at %s.", theme, bc.BusinessName),
			DurationSeconds: 10,
		})
	}
	return slides, nil
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

var _ Generator = TemplateGenerator{}
