// Package pseudonym generates the playful two-word animal names that stand in
// for children's real names throughout the application and its exports.
package pseudonym

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

var adjectives = []string{
	"Brave", "Happy", "Playful", "Cheerful", "Gentle",
	"Curious", "Friendly", "Clever", "Mighty", "Sweet",
	"Bold", "Joyful", "Bright", "Calm", "Wise",
	"Energetic", "Peaceful", "Strong", "Kind", "Creative",
	"Spirited", "Radiant", "Sunny", "Sparkly", "Bouncy",
}

var animals = []struct {
	name  string
	emoji string
}{
	{"Panda", "🐼"}, {"Dolphin", "🐬"}, {"Elephant", "🐘"}, {"Lion", "🦁"},
	{"Tiger", "🐯"}, {"Bear", "🐻"}, {"Fox", "🦊"}, {"Koala", "🐨"},
	{"Penguin", "🐧"}, {"Owl", "🦉"}, {"Butterfly", "🦋"}, {"Bunny", "🐰"},
	{"Turtle", "🐢"}, {"Unicorn", "🦄"}, {"Monkey", "🐵"}, {"Giraffe", "🦒"},
	{"Zebra", "🦓"}, {"Otter", "🦦"}, {"Hedgehog", "🦔"}, {"Dragon", "🐉"},
	{"Sloth", "🦥"}, {"Flamingo", "🦩"}, {"Peacock", "🦚"}, {"Seal", "🦭"},
	{"Llama", "🦙"}, {"Raccoon", "🦝"}, {"Puppy", "🐶"}, {"Kitten", "🐱"},
	{"Chick", "🐤"}, {"Frog", "🐸"},
}

const maxAttempts = 100

// AvailabilityFunc reports whether a candidate name is free to use.
type AvailabilityFunc func(ctx context.Context, name string) (bool, error)

// Generator draws adjective+animal names. The rand source is injectable so
// tests are deterministic.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator builds a generator seeded from the current time.
func NewGenerator() *Generator {
	return &Generator{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewGeneratorWithSource builds a generator with a fixed source.
func NewGeneratorWithSource(src rand.Source) *Generator {
	return &Generator{rng: rand.New(src)}
}

// Generate draws names until available reports one free, up to 100 attempts.
// Afterwards it falls back to appending a numeric suffix. Uniqueness is
// best-effort: the check-then-insert window is accepted for a single-writer
// deployment.
func (g *Generator) Generate(ctx context.Context, available AvailabilityFunc) (name, emoji string, err error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		adjective := adjectives[g.rng.Intn(len(adjectives))]
		animal := animals[g.rng.Intn(len(animals))]
		candidate := fmt.Sprintf("%s %s", adjective, animal.name)

		free, err := available(ctx, candidate)
		if err != nil {
			return "", "", fmt.Errorf("check pseudonym availability: %w", err)
		}
		if free {
			return candidate, animal.emoji, nil
		}
	}

	adjective := adjectives[g.rng.Intn(len(adjectives))]
	animal := animals[g.rng.Intn(len(animals))]
	suffix := time.Now().UnixMilli() % 1000
	return fmt.Sprintf("%s %s %d", adjective, animal.name, suffix), animal.emoji, nil
}
