package trade

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/susu3304/pokediabot/internal/catalog"
	"github.com/susu3304/pokediabot/internal/models"
)

var ErrInvalidFilter = errors.New("invalid filter")

var statKeys = map[string]models.Stat{
	"hp":    models.StatHP,
	"atk":   models.StatAttack,
	"def":   models.StatDefense,
	"spatk": models.StatSpAtk,
	"spdef": models.StatSpDef,
	"spd":   models.StatSpeed,
}

var (
	comparisonRe = regexp.MustCompile(`^(<=|>=|==|<|>|=)?(\d+(?:\.\d+)?)$`)
	inlineStatRe = regexp.MustCompile(`^--([a-z]+)(<=|>=|==|<|>|=)(\d+)$`)
)

type Comparison struct {
	Op    string
	Value float64
}

func (c Comparison) Match(v float64) bool {
	switch c.Op {
	case ">":
		return v > c.Value
	case "<":
		return v < c.Value
	case ">=":
		return v >= c.Value
	case "<=":
		return v <= c.Value
	}
	return v == c.Value
}

func parseComparison(s string) (Comparison, bool) {
	m := comparisonRe.FindStringSubmatch(s)
	if m == nil {
		return Comparison{}, false
	}
	v, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return Comparison{}, false
	}
	op := m[1]
	if op == "" || op == "==" {
		op = "="
	}
	return Comparison{Op: op, Value: v}, true
}

// Filter selects pokemon for the add-all path. Zero values match everything.
type Filter struct {
	ShinyOnly  bool
	Name       string
	IV         *Comparison
	Stats      map[models.Stat]Comparison
	Rare       bool
	Legendary  bool
	Mythical   bool
	UltraBeast bool
	Event      bool
	Fusionable bool
	Skip       *int
	Limit      *int
}

// ParseFilter reads --flag tokens such as "--shiny --name pikachu --iv >80 --atk>=20 --limit 5".
func ParseFilter(args []string) (Filter, error) {
	f := Filter{Stats: map[models.Stat]Comparison{}}
	for i := 0; i < len(args); i++ {
		arg := strings.ToLower(args[i])
		next := func() (string, error) {
			if i+1 >= len(args) {
				return "", fmt.Errorf("%w: %s needs a value", ErrInvalidFilter, arg)
			}
			i++
			return args[i], nil
		}

		switch arg {
		case "--shiny", "--sh":
			f.ShinyOnly = true
		case "--rare":
			f.Rare = true
		case "--leg", "--legendary":
			f.Legendary = true
		case "--my", "--mythical":
			f.Mythical = true
		case "--ub", "--ultrabeast":
			f.UltraBeast = true
		case "--ev", "--event":
			f.Event = true
		case "--fn", "--fusionable":
			f.Fusionable = true
		case "--name", "--n":
			v, err := next()
			if err != nil {
				return f, err
			}
			f.Name = catalog.Normalize(v)
		case "--limit", "--skip":
			v, err := next()
			if err != nil {
				return f, err
			}
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return f, fmt.Errorf("%w: %s expects a non-negative number", ErrInvalidFilter, arg)
			}
			if arg == "--limit" {
				f.Limit = &n
			} else {
				f.Skip = &n
			}
		case "--iv":
			v, err := next()
			if err != nil {
				return f, err
			}
			c, ok := parseComparison(v)
			if !ok {
				return f, fmt.Errorf("%w: bad iv comparison %q", ErrInvalidFilter, v)
			}
			f.IV = &c
		default:
			if err := f.parseStat(arg, args, &i); err != nil {
				return f, err
			}
		}
	}
	return f, nil
}

// parseStat handles "--atk>=20" and "--atk >=20".
func (f *Filter) parseStat(arg string, args []string, i *int) error {
	if m := inlineStatRe.FindStringSubmatch(arg); m != nil {
		stat, ok := statKeys[m[1]]
		if !ok {
			return fmt.Errorf("%w: unknown stat %q", ErrInvalidFilter, m[1])
		}
		c, _ := parseComparison(m[2] + m[3])
		f.Stats[stat] = c
		return nil
	}
	key := strings.TrimPrefix(arg, "--")
	stat, ok := statKeys[key]
	if !ok || key == arg {
		return fmt.Errorf("%w: unknown flag %q", ErrInvalidFilter, arg)
	}
	if *i+1 >= len(args) {
		return fmt.Errorf("%w: %s needs a value", ErrInvalidFilter, arg)
	}
	c, ok := parseComparison(args[*i+1])
	if !ok {
		return fmt.Errorf("%w: bad %s comparison %q", ErrInvalidFilter, key, args[*i+1])
	}
	*i++
	f.Stats[stat] = c
	return nil
}

// Match reports whether p passes every criterion except skip and limit.
func (f Filter) Match(p models.Pokemon, cat *catalog.Catalog) bool {
	if f.ShinyOnly && !p.Shiny {
		return false
	}
	if f.Fusionable && !p.Fusionable {
		return false
	}
	if f.Name != "" && !nameMatches(f.Name, p.Name, cat) {
		return false
	}
	if f.IV != nil && !f.IV.Match(p.IVPercent) {
		return false
	}
	for stat, c := range f.Stats {
		v, ok := p.IVs.Get(stat)
		if !ok || !c.Match(float64(v)) {
			return false
		}
	}
	if f.Rare && !cat.Rare(p.Name) {
		return false
	}
	if f.Legendary && !cat.In(catalog.TierLegendary, p.Name) {
		return false
	}
	if f.Mythical && !cat.In(catalog.TierMythical, p.Name) {
		return false
	}
	if f.UltraBeast && !cat.In(catalog.TierUltraBeast, p.Name) {
		return false
	}
	if f.Event && !cat.In(catalog.TierEvent, p.Name) {
		return false
	}
	return true
}

// nameMatches accepts the exact name, or a query whose words all appear in
// the name or in one of its aliases.
func nameMatches(query, name string, cat *catalog.Catalog) bool {
	name = catalog.Normalize(name)
	if name == query {
		return true
	}
	words := strings.Fields(query)
	if containsWords(name, words) {
		return true
	}
	for _, alias := range cat.Aliases(name) {
		if containsWords(alias, words) {
			return true
		}
	}
	return false
}

func containsWords(s string, words []string) bool {
	have := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		have[w] = struct{}{}
	}
	for _, w := range words {
		if _, ok := have[w]; !ok {
			return false
		}
	}
	return true
}

// Select returns the guarded-free matches from list in the owner's sort
// order, with skip then limit applied. exclude drops ids already offered.
func (f Filter) Select(list []models.Pokemon, order SortOrder, cat *catalog.Catalog, exclude func(id int) bool) []models.Pokemon {
	var out []models.Pokemon
	for _, p := range list {
		if p.Guarded() || (exclude != nil && exclude(p.ID)) {
			continue
		}
		if f.Match(p, cat) {
			out = append(out, p)
		}
	}
	order.Sort(out)
	if f.Skip != nil {
		if *f.Skip >= len(out) {
			return nil
		}
		out = out[*f.Skip:]
	}
	if f.Limit != nil && *f.Limit < len(out) {
		out = out[:*f.Limit]
	}
	return out
}

// SortOrder is a player's inventory ordering preference.
type SortOrder string

const (
	OrderNone      SortOrder = ""
	OrderIVDesc    SortOrder = "iv-"
	OrderIVAsc     SortOrder = "iv+"
	OrderLevelDesc SortOrder = "level-"
	OrderLevelAsc  SortOrder = "level+"
	OrderIDDesc    SortOrder = "id-"
	OrderIDAsc     SortOrder = "id+"
)

var ErrInvalidOrder = errors.New("invalid order, use iv-, iv+, level-, level+, id- or id+")

func ParseSortOrder(s string) (SortOrder, error) {
	o := SortOrder(strings.ToLower(strings.TrimSpace(s)))
	switch o {
	case OrderIVDesc, OrderIVAsc, OrderLevelDesc, OrderLevelAsc, OrderIDDesc, OrderIDAsc:
		return o, nil
	}
	return OrderNone, ErrInvalidOrder
}

// Sort orders list in place. Unknown orders leave it untouched.
func (o SortOrder) Sort(list []models.Pokemon) {
	var less func(a, b models.Pokemon) bool
	switch o {
	case OrderIVDesc:
		less = func(a, b models.Pokemon) bool { return a.IVPercent > b.IVPercent }
	case OrderIVAsc:
		less = func(a, b models.Pokemon) bool { return a.IVPercent < b.IVPercent }
	case OrderLevelDesc:
		less = func(a, b models.Pokemon) bool { return a.Level > b.Level }
	case OrderLevelAsc:
		less = func(a, b models.Pokemon) bool { return a.Level < b.Level }
	case OrderIDDesc:
		less = func(a, b models.Pokemon) bool { return a.ID > b.ID }
	case OrderIDAsc:
		less = func(a, b models.Pokemon) bool { return a.ID < b.ID }
	default:
		return
	}
	sort.SliceStable(list, func(i, j int) bool { return less(list[i], list[j]) })
}
