// Package mockdata generates fake user records for the demo
// front-ends and the dataset generator command. Generation is
// deterministic for a given seed so demo runs and tests are
// reproducible.
package mockdata

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/conneroisu/vlist/internal/types"
)

var (
	firstNames = []string{
		"james", "mary", "robert", "patricia", "john", "jennifer",
		"michael", "linda", "david", "elizabeth", "william", "barbara",
		"richard", "susan", "joseph", "jessica", "thomas", "sarah",
		"christopher", "karen", "charles", "lisa", "daniel", "nancy",
	}
	lastNames = []string{
		"smith", "johnson", "williams", "brown", "jones", "garcia",
		"miller", "davis", "rodriguez", "martinez", "hernandez", "lopez",
		"gonzalez", "wilson", "anderson", "thomas", "taylor", "moore",
	}
	domains = []string{"example.com", "test.org", "demo.net", "sample.io"}
	roles   = []string{
		"engineer", "designer", "product manager", "analyst",
		"researcher", "writer", "architect", "consultant",
	}
	cities = []string{
		"berlin", "lisbon", "tokyo", "austin", "oslo", "nairobi",
		"toronto", "seoul", "melbourne", "bogota",
	}
)

// Generator produces fake user items from a seeded random source.
type Generator struct {
	rng   *rand.Rand
	title cases.Caser
}

// NewGenerator creates a generator. Seed zero derives one from the
// clock; any other value is reproducible.
func NewGenerator(seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Generator{
		rng:   rand.New(rand.NewSource(seed)),
		title: cases.Title(language.English),
	}
}

// Users generates count fake user items with stable shapes, so the
// collection's structure analysis produces useful placeholder bounds.
func (g *Generator) Users(count int) []types.Item {
	items := make([]types.Item, count)
	for i := range items {
		items[i] = g.user(i)
	}

	return items
}

func (g *Generator) user(index int) types.Item {
	first := firstNames[g.rng.Intn(len(firstNames))]
	last := lastNames[g.rng.Intn(len(lastNames))]
	role := roles[g.rng.Intn(len(roles))]
	city := cities[g.rng.Intn(len(cities))]

	// UUIDs from the seeded source keep ids reproducible per seed.
	id := uuid.Must(uuid.NewRandomFromReader(g.rng)).String()

	joined := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, g.rng.Intn(3650))

	return types.Item{
		"id":     id,
		"index":  index,
		"name":   g.title.String(first + " " + last),
		"email":  fmt.Sprintf("%s.%s@%s", first, last, domains[g.rng.Intn(len(domains))]),
		"role":   g.title.String(role),
		"city":   g.title.String(city),
		"joined": joined.Format("2006-01-02"),
	}
}

// WriteJSON writes count generated users to path as a JSON array, the
// format the file adapter reads.
func (g *Generator) WriteJSON(path string, count int) error {
	items := g.Users(count)

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding dataset: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing dataset: %w", err)
	}

	return nil
}
