package trade

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/susu3304/pokediabot/internal/models"
)

// ItemSpec is what a participant asked to add or remove: either an amount of
// one currency, or a list of pokemon ids.
type ItemSpec struct {
	Currency models.Currency
	Amount   int64
	IDs      []int
	// Invalid holds tokens that were neither a currency nor an id.
	Invalid []string
}

// MaxAmount is the largest currency amount a single command may name.
const MaxAmount int64 = 1_000_000_000_000

func (s ItemSpec) IsCurrency() bool { return s.Currency != "" }

// ParseItemSpec reads "cash 500", "redeem 2" or "12 15 19".
func ParseItemSpec(args []string) (ItemSpec, error) {
	var spec ItemSpec
	if len(args) == 0 {
		return spec, ErrEmptyItemSpec
	}

	if c, err := models.ParseCurrency(args[0]); err == nil {
		if len(args) != 2 {
			return spec, fmt.Errorf("use `%s <amount>`: %w", c, ErrInvalidAmount)
		}
		amount, err := strconv.ParseInt(strings.ReplaceAll(args[1], ",", ""), 10, 64)
		if err != nil || amount <= 0 || amount > MaxAmount {
			return spec, ErrInvalidAmount
		}
		spec.Currency = c
		spec.Amount = amount
		return spec, nil
	}

	seen := make(map[int]struct{}, len(args))
	for _, tok := range args {
		id, err := strconv.Atoi(tok)
		if err != nil || id <= 0 {
			spec.Invalid = append(spec.Invalid, tok)
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		spec.IDs = append(spec.IDs, id)
	}
	return spec, nil
}
