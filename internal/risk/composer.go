package risk

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
)

// Source is the random source used to pick phrases.
type Source interface {
	IntN(n int) int
}

// lockedSource serialises access to a *rand.Rand, which is not safe for
// concurrent use.
type lockedSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (s *lockedSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.IntN(n)
}

// NewSeededSource returns a deterministic Source.
func NewSeededSource(seed uint64) Source {
	return &lockedSource{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewEntropySource returns a Source seeded from the runtime's entropy.
func NewEntropySource() Source {
	return &lockedSource{r: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

var (
	openers = []string{
		"Analysis indicates",
		"Risk assessment reveals",
		"Pattern recognition shows",
		"Behavioral analysis suggests",
		"Data synthesis demonstrates",
	}
	connectors = []string{
		"however",
		"specifically regarding",
		"compounded by",
		"in conjunction with",
		"particularly when examining",
	}
	closers = []string{
		"warranting enhanced verification protocols",
		"suggesting a measured protective stance",
		"indicating standard processing is appropriate",
		"requiring human oversight for optimal outcome",
		"justifying automated approval with monitoring",
	}
)

// Composer writes the long-form risk narrative used for webhook orders.
type Composer struct {
	src Source
}

// NewComposer returns a Composer drawing from src. A nil src uses entropy.
func NewComposer(src Source) *Composer {
	if src == nil {
		src = NewEntropySource()
	}
	return &Composer{src: src}
}

func (c *Composer) pick(pool []string) string {
	return pool[c.src.IntN(len(pool))]
}

// Compose returns one paragraph describing why the order received label l.
func (c *Composer) Compose(o Order, l Label) string {
	opener := c.pick(openers)

	var body string
	switch l {
	case LabelHigh:
		body = c.highRisk(o)
	case LabelMedium:
		body = mediumRisk(o)
	default:
		body = lowRisk(o)
	}
	return opener + " " + body
}

func (c *Composer) highRisk(o Order) string {
	s := DeriveSignals(o)
	var factors []string
	if s.ReturnCount >= 3 {
		factors = append(factors, fmt.Sprintf("a recurring pattern of %d previous returns", s.ReturnCount))
	}
	if s.IsCOD {
		factors = append(factors, "cash-on-delivery payment selection")
	}
	if s.Price > 2000 {
		factors = append(factors, fmt.Sprintf("the high-value nature of this $%s transaction", formatAmount(s.Price)))
	}
	if s.CategoryRisk > 60 && s.Category != "" {
		factors = append(factors, "elevated category risk in "+s.Category)
	}
	if s.AccountAgeDays > 0 && s.AccountAgeDays < 30 {
		factors = append(factors, "limited account history")
	}

	primary := "a combination of elevated risk signals"
	if len(factors) > 0 {
		primary = joinAnd(factors[:min(2, len(factors))])
	}
	secondary := "transaction characteristics"
	if len(factors) > 2 {
		secondary = factors[2]
	}
	connector := c.pick(connectors)
	return fmt.Sprintf("that %s, %s %s, %s.", primary, connector, secondary, closers[3])
}

func mediumRisk(o Order) string {
	s := DeriveSignals(o)
	var factors []string
	if s.ReturnCount > 0 {
		factors = append(factors, fmt.Sprintf("%d prior return events", s.ReturnCount))
	} else {
		factors = append(factors, "limited negative history")
	}
	if s.Price > 1000 {
		factors = append(factors, "moderate transaction value")
	}
	if s.IsCOD {
		factors = append(factors, "delivery-based payment")
	}

	secondary := "standard order patterns"
	if len(factors) > 1 {
		secondary = factors[1]
	}
	return fmt.Sprintf("moderate risk markers including %s, %s %s, %s.", factors[0], connectors[2], secondary, closers[1])
}

func lowRisk(o Order) string {
	s := DeriveSignals(o)
	var positives []string
	if !s.IsCOD {
		positives = append(positives, "prepaid transaction security")
	}
	if s.AccountAgeDays > 90 {
		positives = append(positives, "established account tenure")
	}
	if s.ReturnCount == 0 {
		positives = append(positives, "clean return history")
	}

	summary := "a neutral order profile"
	if len(positives) > 0 {
		summary = joinAnd(positives[:min(2, len(positives))])
	}
	return fmt.Sprintf("favorable indicators including %s, %s.", summary, closers[2])
}

func joinAnd(parts []string) string {
	return strings.Join(parts, " and ")
}
