package oracle

import (
	"context"
	"fmt"
	"strings"

	"moodify/internal/services"
)

// TrackSuggestion is one track the oracle proposes.
type TrackSuggestion struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	URI    string `json:"uri,omitempty"`
}

// VibeOption is one candidate session mood.
type VibeOption struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Expansion is a vibe-consistent queue extension.
type Expansion struct {
	Items []TrackSuggestion `json:"items"`
	Mood  string            `json:"mood"`
}

// Rescue is a full queue replacement after repeated skips.
type Rescue struct {
	Items     []TrackSuggestion `json:"items"`
	Vibe      string            `json:"vibe"`
	Reasoning string            `json:"reasoning"`
}

// SkipContext summarizes one recent skip for rescue seeding.
type SkipContext struct {
	Title      string  `json:"title"`
	Artist     string  `json:"artist"`
	ListenSecs float64 `json:"listen_secs"`
}

// ExpansionSeed is the context an expansion request carries.
type ExpansionSeed struct {
	CurrentTitle  string
	CurrentArtist string
	Mood          string
	Strategy      string
	Count         int
}

// RescueSeed is the context a rescue request carries.
type RescueSeed struct {
	RecentSkips []SkipContext
	Strategy    string
	Count       int
}

const systemPrompt = "You are a music recommendation engine. Respond with JSON only, matching the schema the user describes. Never include commentary outside the JSON object."

// VibeOptions asks the oracle for candidate session moods matching an
// instruction.
func (c *Client) VibeOptions(ctx context.Context, instruction string) ([]VibeOption, error) {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return nil, services.Wrap(services.ErrValidation, "oracle", "vibe options", "instruction required", nil)
	}
	prompt := fmt.Sprintf(
		`Suggest session moods for this instruction: %q
Respond as {"options":[{"name":...,"description":...}]} with 3 to 5 options.`,
		instruction)

	content, err := c.completeJSON(ctx, "vibe options", systemPrompt, prompt)
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Options []VibeOption `json:"options"`
	}
	if err := decodeJSON(content, &parsed); err != nil {
		return nil, services.Wrap(services.ErrOracle, "oracle", "vibe options", "parse payload", err)
	}
	return parsed.Options, nil
}

// ExpandVibe asks for tracks that continue the current direction.
func (c *Client) ExpandVibe(ctx context.Context, seed ExpansionSeed) (Expansion, error) {
	count := seed.Count
	if count <= 0 {
		count = 5
	}
	prompt := fmt.Sprintf(
		`The listener is enjoying %q by %q in a %q mood (strategy: %s).
Suggest %d more tracks that continue this direction.
Respond as {"items":[{"title":...,"artist":...}],"mood":...} where mood names the (possibly refined) session mood.`,
		seed.CurrentTitle, seed.CurrentArtist, seed.Mood, seed.Strategy, count)

	content, err := c.completeJSON(ctx, "expand vibe", systemPrompt, prompt)
	if err != nil {
		return Expansion{}, err
	}
	var parsed Expansion
	if err := decodeJSON(content, &parsed); err != nil {
		return Expansion{}, services.Wrap(services.ErrOracle, "oracle", "expand vibe", "parse payload", err)
	}
	if len(parsed.Items) == 0 {
		return Expansion{}, services.Wrap(services.ErrOracle, "oracle", "expand vibe", "no suggestions returned", nil)
	}
	return parsed, nil
}

// RescueVibe asks for a full queue replacement seeded with what the
// listener just rejected.
func (c *Client) RescueVibe(ctx context.Context, seed RescueSeed) (Rescue, error) {
	count := seed.Count
	if count <= 0 {
		count = 8
	}
	var skips strings.Builder
	for _, skip := range seed.RecentSkips {
		fmt.Fprintf(&skips, "- %q by %q (bailed after %.0fs)\n", skip.Title, skip.Artist, skip.ListenSecs)
	}
	prompt := fmt.Sprintf(
		`The listener keeps skipping. Recently rejected:
%s
Pick a different direction (strategy: %s) and suggest %d tracks.
Respond as {"items":[{"title":...,"artist":...}],"vibe":...,"reasoning":...}.`,
		skips.String(), seed.Strategy, count)

	content, err := c.completeJSON(ctx, "rescue vibe", systemPrompt, prompt)
	if err != nil {
		return Rescue{}, err
	}
	var parsed Rescue
	if err := decodeJSON(content, &parsed); err != nil {
		return Rescue{}, services.Wrap(services.ErrOracle, "oracle", "rescue vibe", "parse payload", err)
	}
	if len(parsed.Items) == 0 {
		return Rescue{}, services.Wrap(services.ErrOracle, "oracle", "rescue vibe", "no suggestions returned", nil)
	}
	return parsed, nil
}
