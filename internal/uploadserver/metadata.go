package uploadserver

import (
	"strings"

	"github.com/Its-donkey/dynamix-mint/internal/mint"
)

// Metadata is the ERC-721 style token metadata document.
type Metadata struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	Attributes  []Attribute `json:"attributes"`
}

// Attribute is one entry of Metadata.Attributes.
type Attribute struct {
	TraitType   string `json:"trait_type"`
	Value       any    `json:"value"`
	DisplayType string `json:"display_type,omitempty"`
}

// BuildMetadata renders the document stored for a card.
func BuildMetadata(d mint.Draft, imageURI string) Metadata {
	name := strings.TrimSpace(d.DisplayName)
	return Metadata{
		Name:        name,
		Description: "DynamiX player card for " + name,
		Image:       imageURI,
		Attributes: []Attribute{
			{TraitType: "Position", Value: string(d.Position)},
			{TraitType: "Nationality", Value: strings.TrimSpace(d.Nationality)},
			{TraitType: "Goals", Value: d.GoalCount, DisplayType: "number"},
			{TraitType: "Matches Played", Value: d.MatchesPlayed, DisplayType: "number"},
			{TraitType: "World Cups Won", Value: d.TitlesWon, DisplayType: "number"},
		},
	}
}

type uploadResponse struct {
	MetadataHash string `json:"metadataHash"`
	ImageHash    string `json:"imageHash"`
}

type errorPayload struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}
